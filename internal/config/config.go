package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Data backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendSheets = "sheets"
	BackendMemory = "memory"
)

var validBackends = []string{BackendCSV, BackendSQLite, BackendSheets, BackendMemory}

type Config struct {
	// HTTP Server
	Port string

	// TrustedProxies is a comma separated CIDR list; empty uses the
	// loopback and private ranges.
	TrustedProxies string

	// Logging
	LogLevel  string
	LogFormat string

	// Source
	DataBackend   string
	DataFile      string
	CSVDelimiter  string
	SQLiteDBPath  string
	SourceTimeout time.Duration
	SourceRetries int

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetRange          string
	GoogleServiceAccountFile  string
	GoogleServiceAccountJSON  string
	GoogleApplicationCredFile string

	// AMQP, optional for the web server
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Dashboard
	TopN            int
	DatasetTTL      time.Duration
	DatasetRetain   int
	ExportRateLimit int
	ReloadInterval  time.Duration // 0 disables periodic reloads
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8081"),
		TrustedProxies: getEnv("TRUSTED_PROXIES", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:   getEnv("DATA_BACKEND", BackendCSV),
		DataFile:      getEnv("DATA_FILE", "./data/disputes.csv"),
		CSVDelimiter:  getEnv("CSV_DELIMITER", ","),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/disputes.db"),
		SourceTimeout: getEnvDuration("SOURCE_TIMEOUT", 30*time.Second),
		SourceRetries: getEnvInt("SOURCE_MAX_RETRIES", 3),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:          getEnv("GOOGLE_SHEET_RANGE", "Disputes!A:Z"),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "disputes"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "summary_requests"),

		TopN:            getEnvInt("TOP_N", 10),
		DatasetTTL:      getEnvDuration("DATASET_TTL", 30*time.Minute),
		DatasetRetain:   getEnvInt("DATASET_RETAIN", 4),
		ExportRateLimit: getEnvInt("EXPORT_RATE_LIMIT", 30),
		ReloadInterval:  getEnvDuration("RELOAD_INTERVAL", 0),
	}
}

// Delimiter returns the first rune of CSVDelimiter; "\t" and "tab" select a
// tab.
func (c *Config) Delimiter() rune {
	switch c.CSVDelimiter {
	case `\t`, "tab", "\t":
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	if r == utf8.RuneError {
		return ','
	}
	return r
}

// TrustedProxyList splits TrustedProxies into CIDRs.
func (c *Config) TrustedProxyList() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	for _, cidr := range c.TrustedProxyList() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid TRUSTED_PROXIES entry '%s': must be a CIDR", cidr))
		}
	}

	if !slices.Contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendCSV:
		if c.DataFile == "" {
			errors = append(errors, "DATA_FILE is required when using csv backend")
		}
		if utf8.RuneCountInString(c.CSVDelimiter) != 1 && c.Delimiter() != '\t' {
			errors = append(errors, fmt.Sprintf("invalid CSV delimiter '%s': must be a single character", c.CSVDelimiter))
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetRange == "" {
			errors = append(errors, "Google sheet range is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be set for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.TopN < 1 || c.TopN > 100 {
		errors = append(errors, fmt.Sprintf("invalid TOP_N %d: must be between 1 and 100", c.TopN))
	}
	if c.DatasetRetain < 1 {
		errors = append(errors, fmt.Sprintf("invalid DATASET_RETAIN %d: must be at least 1", c.DatasetRetain))
	}
	if c.DatasetTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid DATASET_TTL %v: must be at least 1 minute", c.DatasetTTL))
	}
	if c.ExportRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid EXPORT_RATE_LIMIT %d: must be at least 1 per minute", c.ExportRateLimit))
	}
	if c.SourceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid SOURCE_TIMEOUT %v: must be at least 1 second", c.SourceTimeout))
	}
	if c.ReloadInterval != 0 && c.ReloadInterval < 10*time.Second {
		errors = append(errors, fmt.Sprintf("invalid RELOAD_INTERVAL %v: must be 0 or at least 10 seconds", c.ReloadInterval))
	}
	if c.SourceRetries < 0 || c.SourceRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid SOURCE_MAX_RETRIES %d: must be between 0 and 10", c.SourceRetries))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package backend

import (
	"fmt"
	"time"

	"disputes/internal/config"
)

// Config holds configuration for source creation
type Config struct {
	Type BackendType

	// CSV / XLSX file
	DataFile  string
	Delimiter rune

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID     string
	GoogleSheetRange        string
	GoogleCredentialsJSON   string
	GoogleCredentialsFile   string
	GoogleRequestTimeout    time.Duration
	GoogleRequestMaxRetries int
}

// BackendType represents the type of data source
type BackendType string

const (
	CSVBackend    BackendType = config.BackendCSV
	SQLiteBackend BackendType = config.BackendSQLite
	SheetsBackend BackendType = config.BackendSheets
	MemoryBackend BackendType = config.BackendMemory
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	credFile := appConfig.GoogleServiceAccountFile
	if credFile == "" {
		credFile = appConfig.GoogleApplicationCredFile
	}

	return Config{
		Type: backendType,

		DataFile:  appConfig.DataFile,
		Delimiter: appConfig.Delimiter(),

		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:     appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:        appConfig.GoogleSheetRange,
		GoogleCredentialsJSON:   appConfig.GoogleServiceAccountJSON,
		GoogleCredentialsFile:   credFile,
		GoogleRequestTimeout:    appConfig.SourceTimeout,
		GoogleRequestMaxRetries: appConfig.SourceRetries,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case CSVBackend:
		if c.DataFile == "" {
			return fmt.Errorf("data file is required for csv backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.GoogleSheetRange == "" {
			return fmt.Errorf("Google sheet range is required for sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			return fmt.Errorf("service account credentials are required for sheets backend")
		}
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := []BackendType{CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

// Package google reads the dispute table from a Google Sheets range.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"disputes/internal/core"
	"disputes/internal/log"
	"disputes/internal/resilience"
	ports "disputes/internal/sheets"
)

var _ ports.TableSource = (*Client)(nil)

// Config selects the spreadsheet range and credentials. CredentialsJSON wins
// over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsJSON string
	CredentialsFile string
	Timeout         time.Duration
	MaxRetries      int
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	readRange     string
	timeout       time.Duration
	retry         resilience.Config
	breaker       *gobreaker.CircuitBreaker
	logger        *log.Logger
}

// New builds a client authenticated with a service account. Extra options
// are appended after the credentials (tests point the endpoint at a fake).
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Default()
	}
	svc, err := newSheetsService(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.Range,
		timeout:       timeout,
		retry:         resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: 500 * time.Millisecond},
		breaker:       resilience.NewCircuitBreaker("sheets:" + cfg.SpreadsheetID),
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config, extra ...goption.ClientOption) (*gsheet.Service, error) {
	var opts []goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(b))
	case len(extra) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	opts = append(opts, extra...)
	return gsheet.NewService(ctx, opts...)
}

func (c *Client) Name() string {
	return fmt.Sprintf("sheets:%s/%s", c.spreadsheetID, c.readRange)
}

// ReadTable fetches the range with retries behind a circuit breaker.
// Client errors (bad range, no access) are not retried.
func (c *Client) ReadTable(ctx context.Context) (core.Table, error) {
	values, err := resilience.Guard(ctx, c.breaker, c.retry, func(ctx context.Context) ([][]interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.readRange).
			MajorDimension("ROWS").
			ValueRenderOption("FORMATTED_VALUE").
			Context(ctx).Do()
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests {
				return nil, resilience.Permanent(err)
			}
			c.logger.WarnContext(ctx, "Sheets read failed", log.FieldError, err.Error())
			return nil, err
		}
		return resp.Values, nil
	})
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return core.Table{}, &core.LoadError{Kind: core.LoadNotFound, Source: c.Name(), Err: err}
		}
		return core.Table{}, fmt.Errorf("read %s: %w", c.Name(), err)
	}
	c.logger.DebugContext(ctx, "Sheets range read", log.FieldSource, c.Name(), log.FieldRecords, len(values))
	return toTable(values), nil
}

// toTable treats the first row as the header.
func toTable(values [][]interface{}) core.Table {
	if len(values) == 0 {
		return core.Table{}
	}
	t := core.Table{Header: toStrings(values[0])}
	for _, row := range values[1:] {
		t.Rows = append(t.Rows, toStrings(row))
	}
	return t
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

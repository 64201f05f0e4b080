package backend

import (
	"context"
	"fmt"
	"time"

	"disputes/internal/core"
	"disputes/internal/loader"
	"disputes/internal/log"
	"disputes/internal/services"
	"disputes/internal/sheets"
	gsheet "disputes/internal/sheets/google"
	"disputes/internal/sheets/memory"
	"disputes/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*SourceResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createFileSource(config)
	case SQLiteBackend:
		return f.createSQLiteSource(config)
	case SheetsBackend:
		return f.createSheetsSource(ctx, config)
	case MemoryBackend:
		return f.createMemorySource()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileSource(config Config) (*SourceResult, error) {
	src := &loader.FileSource{Path: config.DataFile, Delimiter: config.Delimiter}
	f.logger.Info("Initialized file source", "path", config.DataFile, "delimiter", string(src.Delimiter))
	return &SourceResult{Source: src}, nil
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*SourceResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite source", "db_path", config.SQLiteDBPath)
	return &SourceResult{Source: repo, Writer: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*SourceResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Range:           config.GoogleSheetRange,
		CredentialsJSON: config.GoogleCredentialsJSON,
		CredentialsFile: config.GoogleCredentialsFile,
		Timeout:         config.GoogleRequestTimeout,
		MaxRetries:      config.GoogleRequestMaxRetries,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets source", "range", config.GoogleSheetRange)
	return &SourceResult{Source: cli}, nil
}

func (f *DefaultFactory) createMemorySource() (*SourceResult, error) {
	store := memory.NewDemo()
	f.logger.Info("Initialized memory source with demo data")
	return &SourceResult{Source: store, Writer: store}, nil
}

// LoadFunc adapts a source to the dataset registry. Each load is bounded by
// timeout.
func LoadFunc(src sheets.TableSource, timeout time.Duration) services.LoadFunc {
	return func(ctx context.Context) (*core.Dataset, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return loader.LoadFrom(ctx, src)
	}
}

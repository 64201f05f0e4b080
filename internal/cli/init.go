// Package cli provides common CLI initialization utilities shared by
// cmd/disputes, cmd/disputes-worker and cmd/disputes-import.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"disputes/internal/backend"
	"disputes/internal/config"
	"disputes/internal/log"
	"disputes/internal/metrics"
	"disputes/internal/services"
	"disputes/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitSource opens the configured data backend. Exits on failure.
func InitSource(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.SourceResult {
	bc, err := backend.FromAppConfig(cfg)
	if err == nil {
		err = bc.Validate()
	}
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateSource(ctx, bc)
	if err != nil {
		logger.Error("Failed to open data source", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	logger.Info("Data source ready", "backend", cfg.DataBackend, log.FieldSource, res.Source.Name())
	return res
}

// InitDashboard wires the registry and dashboard to src and performs the
// initial load. A failed initial load exits the process.
func InitDashboard(ctx context.Context, logger *log.Logger, cfg *config.Config, res *backend.SourceResult, m *metrics.Metrics) *services.Dashboard {
	reg := services.NewDatasetRegistry(
		backend.LoadFunc(res.Source, cfg.SourceTimeout),
		services.RegistryConfig{Retain: cfg.DatasetRetain, TTL: cfg.DatasetTTL},
		m,
		logger,
	)
	ds, err := reg.Reload(ctx)
	if err != nil {
		logger.Error("Initial dataset load failed",
			log.FieldOperation, log.OpStartup,
			log.FieldSource, res.Source.Name(),
			log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Dataset loaded",
		log.FieldOperation, log.OpStartup,
		log.FieldDatasetID, ds.ID.String(),
		log.FieldRecords, ds.Len())
	return services.NewDashboard(reg, cfg.TopN, m)
}

// InitSQLite opens a SQLite repository at dbPath. Exits on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// cancellation cleanup runs with a context bounded by timeout, then done is
// closed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

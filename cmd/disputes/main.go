package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"disputes/internal/amqp"
	"disputes/internal/cache"
	"disputes/internal/cli"
	apphttp "disputes/internal/http"
	"disputes/internal/log"
	"disputes/internal/metrics"
	"disputes/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(log.Default())
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	// Remote clients keep the construction context for token refresh.
	src := cli.InitSource(context.Background(), logger, cfg)
	defer src.Close()

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.SourceTimeout*2)

	m := metrics.New()
	dash := cli.InitDashboard(startCtx, logger, cfg, src, m)
	startCancel()

	caches := cache.NewManager(logger)
	caches.Register("datasets", dash.Registry().Cleaner())
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Dashboard:       dash,
		Metrics:         m,
		Logger:          logger,
		ExportRateLimit: cfg.ExportRateLimit,
		TrustedProxies:  cfg.TrustedProxyList(),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", "addr", srv.Addr, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	summaries := worker.NewSummaryWorker(dash, m, logger)
	if cfg.ReloadInterval > 0 {
		g.Go(func() error {
			logger.Info("Periodic reload enabled", "interval", cfg.ReloadInterval.String())
			return ignoreCanceled(summaries.ReloadLoop(gctx, cfg.ReloadInterval))
		})
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The dashboard still works without the RPC surface.
			logger.Warn("AMQP unavailable, summary requests disabled", log.FieldError, err.Error())
		} else {
			defer client.Close()
			g.Go(func() error {
				return ignoreCanceled(client.ConsumeSummaryRequests(gctx, summaries.HandleSummaryRequest))
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	<-done
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

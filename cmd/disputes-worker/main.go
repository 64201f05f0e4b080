package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"disputes/internal/amqp"
	"disputes/internal/cli"
	"disputes/internal/core"
	"disputes/internal/log"
	"disputes/internal/metrics"
	"disputes/internal/worker"
)

type askFlags struct {
	enabled   bool
	start     string
	end       string
	statuses  string
	types     string
	customers string
	dataset   string
	top       int
	asJSON    bool
	timeout   time.Duration
}

func main() {
	var ask askFlags
	flag.BoolVar(&ask.enabled, "ask", false, "Send one summary request and print the reply instead of serving")
	flag.StringVar(&ask.start, "start", "", "Start date (YYYY-MM-DD)")
	flag.StringVar(&ask.end, "end", "", "End date (YYYY-MM-DD)")
	flag.StringVar(&ask.statuses, "status", "", "Comma separated statuses")
	flag.StringVar(&ask.types, "type", "", "Comma separated discrepancy types")
	flag.StringVar(&ask.customers, "customer", "", "Comma separated customers")
	flag.StringVar(&ask.dataset, "dataset", "", "Dataset id (default: current)")
	flag.IntVar(&ask.top, "top", 0, "Top-N size")
	flag.BoolVar(&ask.asJSON, "json", false, "Print the full reply as JSON")
	flag.DurationVar(&ask.timeout, "timeout", 30*time.Second, "Reply timeout")
	flag.Parse()

	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(log.Default())
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for disputes-worker")
		os.Exit(1)
	}

	if ask.enabled {
		if err := runAsk(logger, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, ask); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	logger.Info("Starting disputes-worker")

	// Remote clients keep the construction context for token refresh.
	src := cli.InitSource(context.Background(), logger, cfg)
	defer src.Close()

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.SourceTimeout*2)

	m := metrics.New()
	dash := cli.InitDashboard(startCtx, logger, cfg, src, m)
	startCancel()

	client, err := amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err.Error())
		}
	})

	w := worker.NewSummaryWorker(dash, m, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.ReloadLoop(gctx, cfg.ReloadInterval)
	})
	g.Go(func() error {
		logger.Info("Consuming summary requests", "queue", cfg.AMQPQueue)
		return client.ConsumeSummaryRequests(gctx, w.HandleSummaryRequest)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, amqp.ErrClosed) {
		logger.Error("Worker stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	<-done
	logger.Info("disputes-worker stopped")
}

func runAsk(logger *log.Logger, url, exchange, queue string, f askFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	start, ok := core.ParseDate(f.start)
	if f.start != "" && !ok {
		return fmt.Errorf("start %q: %w", f.start, core.ErrInvalidDate)
	}
	end, ok := core.ParseDate(f.end)
	if f.end != "" && !ok {
		return fmt.Errorf("end %q: %w", f.end, core.ErrInvalidDate)
	}

	client, err := amqp.NewClient(ctx, url, exchange, queue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	req := amqp.NewSummaryRequest(core.FilterCriteria{
		Start:     start,
		End:       end,
		Statuses:  splitList(f.statuses),
		Types:     splitList(f.types),
		Customers: splitList(f.customers),
	}, f.top)
	req.DatasetID = f.dataset

	reply, err := client.Call(ctx, req)
	if err != nil {
		return err
	}
	if f.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	fmt.Println(worker.Describe(reply))
	if reply.Error != "" {
		return errors.New(reply.Error)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

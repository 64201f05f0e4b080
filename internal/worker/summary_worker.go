// Package worker answers summary requests arriving over AMQP and keeps the
// dataset fresh.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"disputes/internal/amqp"
	"disputes/internal/core"
	"disputes/internal/log"
	"disputes/internal/services"
)

// RPCObserver records the outcome of every handled request.
type RPCObserver interface {
	ObserveRPC(err error)
}

// SummaryWorker serves summary requests from a dashboard.
type SummaryWorker struct {
	dashboard *services.Dashboard
	observer  RPCObserver
	logger    *log.Logger
}

func NewSummaryWorker(dashboard *services.Dashboard, observer RPCObserver, logger *log.Logger) *SummaryWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &SummaryWorker{
		dashboard: dashboard,
		observer:  observer,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSummaryRequest answers one request. Failures are reported in the
// reply, never as a dropped message.
func (w *SummaryWorker) HandleSummaryRequest(ctx context.Context, req *amqp.SummaryRequest) *amqp.SummaryReply {
	reply, err := w.handle(ctx, req)
	if w.observer != nil {
		w.observer.ObserveRPC(err)
	}
	if err != nil {
		w.logger.WarnContext(ctx, "Summary request failed",
			log.FieldDatasetID, req.DatasetID,
			log.FieldError, err.Error(),
			log.FieldErrorType, errorType(err))
		reply.Error = err.Error()
	}
	reply.Timestamp = time.Now()
	return reply
}

func (w *SummaryWorker) handle(ctx context.Context, req *amqp.SummaryRequest) (*amqp.SummaryReply, error) {
	reply := &amqp.SummaryReply{DatasetID: req.DatasetID}

	filters, err := req.Criteria()
	if err != nil {
		return reply, err
	}
	out, err := w.dashboard.Run(ctx, services.Query{
		DatasetID: req.DatasetID,
		Filters:   filters,
		TopN:      req.TopN,
	})
	if err != nil {
		return reply, err
	}

	reply.DatasetID = out.Dataset.ID.String()
	reply.Source = out.Dataset.Source
	reply.Records = out.Dataset.Len()
	reply.Filtered = len(out.Filtered)
	reply.Summary = &out.Summary
	if out.FilterErr != nil {
		reply.Warning = out.FilterErr.Error()
	}

	w.logger.DebugContext(ctx, "Summary computed",
		log.FieldDatasetID, reply.DatasetID,
		log.FieldRecords, reply.Records,
		log.FieldFiltered, reply.Filtered)
	return reply, nil
}

// ReloadLoop reloads the dataset every interval until ctx is done. Failed
// reloads keep serving the previous dataset.
func (w *SummaryWorker) ReloadLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ds, err := w.dashboard.Registry().Reload(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "Periodic reload failed",
					log.FieldOperation, log.OpReload,
					log.FieldError, err.Error(),
					log.FieldErrorType, errorType(err))
				continue
			}
			w.logger.InfoContext(ctx, "Dataset reloaded",
				log.FieldOperation, log.OpReload,
				log.FieldDatasetID, ds.ID.String(),
				log.FieldRecords, ds.Len())
		}
	}
}

func errorType(err error) string {
	switch {
	case core.IsLoadError(err):
		return log.ErrorTypeLoad
	case errors.Is(err, services.ErrDatasetNotFound), errors.Is(err, services.ErrNoDataset):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrEmptyRange):
		return log.ErrorTypeValidation
	case errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeTimeout
	}
	return log.ErrorTypeInternal
}

// Describe is a one-line summary of a reply for CLI output.
func Describe(r *amqp.SummaryReply) string {
	if r.Summary == nil {
		return fmt.Sprintf("dataset %s: error: %s", r.DatasetID, r.Error)
	}
	t := r.Summary.Totals
	line := fmt.Sprintf("dataset %s (%s): %d/%d records, savings %s, underbilled %s, net %s",
		r.DatasetID, r.Source, r.Filtered, r.Records, t.TotalSavings, t.TotalUnderbilled, t.NetImpact)
	if r.Warning != "" {
		line += " (warning: " + r.Warning + ")"
	}
	return line
}

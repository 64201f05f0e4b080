package services

import (
	"context"
	"time"

	"disputes/internal/core"
)

// SummaryObserver is notified after every summarize pass.
type SummaryObserver interface {
	ObserveSummary(elapsed time.Duration, filtered int)
}

// Query is one dashboard interaction.
type Query struct {
	DatasetID string
	Filters   core.FilterCriteria
	TopN      int
}

// Outcome carries everything a presenter needs for one request.
type Outcome struct {
	Dataset  *core.Dataset
	Filtered []core.DisputeRecord
	Summary  core.SummaryResult
	// FilterErr is a recovered *core.FilterError; the selection is empty.
	FilterErr error
}

// Dashboard runs filter and summarize against a registry handle. Nothing is
// cached between calls.
type Dashboard struct {
	registry    *DatasetRegistry
	defaultTopN int
	observer    SummaryObserver
}

func NewDashboard(registry *DatasetRegistry, defaultTopN int, observer SummaryObserver) *Dashboard {
	return &Dashboard{
		registry:    registry,
		defaultTopN: NormalizeTopN(defaultTopN),
		observer:    observer,
	}
}

func (d *Dashboard) Registry() *DatasetRegistry { return d.registry }

// Run resolves the dataset and computes the summary for q.
func (d *Dashboard) Run(ctx context.Context, q Query) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	ds, err := d.registry.Get(q.DatasetID)
	if err != nil {
		return Outcome{}, err
	}

	topN := q.TopN
	if topN <= 0 {
		topN = d.defaultTopN
	}

	start := time.Now()
	filtered := Filter(ds.Records, q.Filters)
	summary := Aggregate(filtered, SummaryOptions{TopN: topN})
	if d.observer != nil {
		d.observer.ObserveSummary(time.Since(start), len(filtered))
	}

	return Outcome{
		Dataset:   ds,
		Filtered:  filtered,
		Summary:   summary,
		FilterErr: q.Filters.Validate(),
	}, nil
}

// Options returns the filter form values for a dataset.
func (d *Dashboard) Options(datasetID string) (core.FilterOptions, error) {
	ds, err := d.registry.Get(datasetID)
	if err != nil {
		return core.FilterOptions{}, err
	}
	return FilterOptions(ds.Records), nil
}

package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"disputes/internal/cache"
	"disputes/internal/core"
	"disputes/internal/log"
)

var (
	ErrNoDataset       = errors.New("no dataset loaded")
	ErrDatasetNotFound = errors.New("dataset not found")
)

// LoadFunc produces a fresh dataset from the configured source.
type LoadFunc func(ctx context.Context) (*core.Dataset, error)

// LoadObserver is notified after every load attempt.
type LoadObserver interface {
	ObserveLoad(source string, records int, elapsed time.Duration, err error)
}

// DatasetRegistry owns the current dataset handle. Reload swaps in a new
// handle; the previous ones stay addressable by id until they age out of
// the retained cache. Datasets themselves are never mutated.
type DatasetRegistry struct {
	mu       sync.RWMutex
	current  *core.Dataset
	retained *cache.LRUCache[*core.Dataset]
	load     LoadFunc
	observer LoadObserver
	logger   *log.Logger
}

// RegistryConfig sizes the retained-handle cache.
type RegistryConfig struct {
	Retain int
	TTL    time.Duration
}

func NewDatasetRegistry(load LoadFunc, cfg RegistryConfig, observer LoadObserver, logger *log.Logger) *DatasetRegistry {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Retain < 1 {
		cfg.Retain = 4
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	l := logger.WithComponent(log.ComponentLoader)
	return &DatasetRegistry{
		retained: cache.NewLRUCache(cfg.Retain, cfg.TTL, cache.WithEvictHook(func(id string, ds *core.Dataset) {
			l.Debug("Retired dataset handle dropped", log.FieldDatasetID, id, log.FieldSource, ds.Source)
		})),
		load:     load,
		observer: observer,
		logger:   l,
	}
}

// Reload loads a new dataset and makes it current. On failure the previous
// handle stays current and the *core.LoadError is returned.
func (r *DatasetRegistry) Reload(ctx context.Context) (*core.Dataset, error) {
	start := time.Now()
	ds, err := r.load(ctx)
	elapsed := time.Since(start)

	source := ""
	records := 0
	if ds != nil {
		source, records = ds.Source, ds.Len()
	}
	if r.observer != nil {
		r.observer.ObserveLoad(source, records, elapsed, err)
	}
	if err != nil {
		log.LogError(ctx, r.logger, "Dataset load failed", err, log.OpLoad, log.ErrorTypeLoad, nil)
		return nil, err
	}

	r.mu.Lock()
	prev := r.current
	r.current = ds
	r.mu.Unlock()
	if prev != nil {
		r.retained.Set(prev.ID.String(), prev)
	}

	r.logger.InfoContext(ctx, "Dataset loaded",
		log.NewFields().WithDataset(ds.ID.String(), ds.Source, ds.Len()).
			WithOperation(log.OpLoad).ToSlice()...)
	return ds, nil
}

// Current returns the active dataset, or nil before the first load.
func (r *DatasetRegistry) Current() *core.Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Get resolves a handle id; "" means the current dataset.
func (r *DatasetRegistry) Get(id string) (*core.Dataset, error) {
	cur := r.Current()
	if id == "" {
		if cur == nil {
			return nil, ErrNoDataset
		}
		return cur, nil
	}
	if cur != nil && cur.ID.String() == id {
		return cur, nil
	}
	if ds, ok := r.retained.Get(id); ok {
		return ds, nil
	}
	return nil, ErrDatasetNotFound
}

// Retained lists ids of previous handles still addressable.
func (r *DatasetRegistry) Retained() []string { return r.retained.Keys() }

// Cleaner exposes the retained cache to a cache.Manager.
func (r *DatasetRegistry) Cleaner() cache.Cleaner { return r.retained }

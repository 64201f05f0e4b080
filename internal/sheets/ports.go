package sheets

import (
	"context"

	"disputes/internal/core"
)

// Ports for inbound table sources.
type (
	// TableSource returns the raw dispute table from wherever it lives.
	// Implementations return a *core.LoadError for "not found" and
	// "empty" conditions they can detect themselves.
	TableSource interface {
		Name() string
		ReadTable(ctx context.Context) (core.Table, error)
	}

	// TableWriter replaces the stored table wholesale.
	TableWriter interface {
		ImportTable(ctx context.Context, name string, table core.Table) error
	}
)

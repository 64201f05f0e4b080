// Package backend builds the configured dispute table source.
package backend

import (
	"context"

	"disputes/internal/sheets"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// SourceResult holds the source and an optional cleanup function. Writer is
// set for backends that accept imports.
type SourceResult struct {
	Source  sheets.TableSource
	Writer  sheets.TableWriter
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *SourceResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*SourceResult, error)
}

package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyRange    = errors.New("start date is after end date")
)

// LoadErrorKind classifies why a dataset could not be loaded.
type LoadErrorKind string

const (
	LoadNotFound      LoadErrorKind = "not_found"
	LoadEmpty         LoadErrorKind = "empty"
	LoadMissingColumn LoadErrorKind = "missing_column"
	LoadRead          LoadErrorKind = "read"
)

// LoadError is the only hard failure of the pipeline. No partial dataset is
// returned alongside it.
type LoadError struct {
	Kind   LoadErrorKind
	Source string
	Column string // set for LoadMissingColumn
	Err    error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case LoadNotFound:
		return fmt.Sprintf("load %s: source not found", e.Source)
	case LoadEmpty:
		return fmt.Sprintf("load %s: no data rows", e.Source)
	case LoadMissingColumn:
		return fmt.Sprintf("load %s: missing required column %q", e.Source, e.Column)
	}
	if e.Err != nil {
		return fmt.Sprintf("load %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Kind)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is (or wraps) a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// FilterError reports an impossible filter combination. It is recovered by
// treating the selection as empty.
type FilterError struct {
	Start Date
	End   Date
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s", e.Start, e.End)
}

func (e *FilterError) Unwrap() error { return ErrEmptyRange }

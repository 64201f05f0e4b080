// Package http provides HTTP server and handler implementations.
//
// This file parses dashboard filters from query parameters and encodes them
// back for links (exports, dataset switching).

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"disputes/internal/core"
	"disputes/internal/services"
)

// Query parameter names.
const (
	paramStart     = "start"
	paramEnd       = "end"
	paramStatus    = "status"
	paramType      = "type"
	paramCustomer  = "customer"
	paramTop       = "top"
	paramDataset   = "dataset"
	paramDimension = "dimension"
	paramColumns   = "cols"
)

// DashboardParams is one parsed dashboard request.
type DashboardParams struct {
	Query     services.Query
	Dimension core.CategoryDimension

	// Columns selects the detail table columns by header name.
	Columns []string
}

// ParamError reports an unusable query parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ParseDashboardParams reads filters from query values. Unknown dimensions
// fall back to customer; out-of-range top values are clamped.
func ParseDashboardParams(query url.Values) (DashboardParams, error) {
	var p DashboardParams
	f := &p.Query.Filters

	var ok bool
	if v := strings.TrimSpace(query.Get(paramStart)); v != "" {
		if f.Start, ok = core.ParseDate(v); !ok {
			return p, &ParamError{Param: paramStart, Value: v, Err: core.ErrInvalidDate}
		}
	}
	if v := strings.TrimSpace(query.Get(paramEnd)); v != "" {
		if f.End, ok = core.ParseDate(v); !ok {
			return p, &ParamError{Param: paramEnd, Value: v, Err: core.ErrInvalidDate}
		}
	}
	f.Statuses = multiValue(query, paramStatus)
	f.Types = multiValue(query, paramType)
	f.Customers = multiValue(query, paramCustomer)

	if v := strings.TrimSpace(query.Get(paramTop)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &ParamError{Param: paramTop, Value: v, Err: err}
		}
		p.Query.TopN = services.NormalizeTopN(n)
	}
	if v := strings.TrimSpace(query.Get(paramDataset)); v != "" {
		if _, err := uuid.Parse(v); err != nil {
			return p, &ParamError{Param: paramDataset, Value: v, Err: err}
		}
		p.Query.DatasetID = v
	}
	p.Dimension = core.ParseDimension(query.Get(paramDimension))
	p.Columns = multiValue(query, paramColumns)
	return p, nil
}

// Encode is the inverse of ParseDashboardParams.
func (p DashboardParams) Encode() string {
	q := url.Values{}
	f := p.Query.Filters
	if !f.Start.IsEmpty() {
		q.Set(paramStart, f.Start.String())
	}
	if !f.End.IsEmpty() {
		q.Set(paramEnd, f.End.String())
	}
	for _, v := range f.Statuses {
		q.Add(paramStatus, v)
	}
	for _, v := range f.Types {
		q.Add(paramType, v)
	}
	for _, v := range f.Customers {
		q.Add(paramCustomer, v)
	}
	if p.Query.TopN > 0 {
		q.Set(paramTop, strconv.Itoa(p.Query.TopN))
	}
	if p.Query.DatasetID != "" {
		q.Set(paramDataset, p.Query.DatasetID)
	}
	if p.Dimension != "" && p.Dimension != core.DimensionCustomer {
		q.Set(paramDimension, string(p.Dimension))
	}
	for _, v := range p.Columns {
		q.Add(paramColumns, v)
	}
	return q.Encode()
}

// multiValue returns the non-empty, sanitized values of a repeated parameter.
func multiValue(query url.Values, key string) []string {
	var out []string
	for _, v := range query[key] {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

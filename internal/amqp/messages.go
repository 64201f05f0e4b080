package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"disputes/internal/core"
)

// SummaryRequest asks a worker to summarize the current (or a retained)
// dataset. Dates use the YYYY-MM-DD form; empty means unbounded.
type SummaryRequest struct {
	DatasetID string    `json:"datasetId,omitempty"`
	Start     string    `json:"start,omitempty"`
	End       string    `json:"end,omitempty"`
	Statuses  []string  `json:"statuses,omitempty"`
	Types     []string  `json:"types,omitempty"`
	Customers []string  `json:"customers,omitempty"`
	TopN      int       `json:"topN,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SummaryReply is the answer to a SummaryRequest. Error is set instead of
// Summary when the request could not be served. Warning accompanies a
// Summary that was computed from a degraded request, such as an inverted
// date range.
type SummaryReply struct {
	DatasetID string              `json:"datasetId,omitempty"`
	Source    string              `json:"source,omitempty"`
	Records   int                 `json:"records"`
	Filtered  int                 `json:"filtered"`
	Summary   *core.SummaryResult `json:"summary,omitempty"`
	Error     string              `json:"error,omitempty"`
	Warning   string              `json:"warning,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

func NewSummaryRequest(f core.FilterCriteria, topN int) *SummaryRequest {
	return &SummaryRequest{
		Start:     f.Start.String(),
		End:       f.End.String(),
		Statuses:  f.Statuses,
		Types:     f.Types,
		Customers: f.Customers,
		TopN:      topN,
		Timestamp: time.Now(),
	}
}

// Criteria converts the request into filter criteria.
func (r *SummaryRequest) Criteria() (core.FilterCriteria, error) {
	f := core.FilterCriteria{
		Statuses:  r.Statuses,
		Types:     r.Types,
		Customers: r.Customers,
	}
	var ok bool
	if s := strings.TrimSpace(r.Start); s != "" {
		if f.Start, ok = core.ParseDate(s); !ok {
			return f, fmt.Errorf("start %q: %w", s, core.ErrInvalidDate)
		}
	}
	if s := strings.TrimSpace(r.End); s != "" {
		if f.End, ok = core.ParseDate(s); !ok {
			return f, fmt.Errorf("end %q: %w", s, core.ErrInvalidDate)
		}
	}
	return f, nil
}

func (r *SummaryRequest) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func SummaryRequestFromJSON(data []byte) (*SummaryRequest, error) {
	var req SummaryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *SummaryReply) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

func SummaryReplyFromJSON(data []byte) (*SummaryReply, error) {
	var reply SummaryReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

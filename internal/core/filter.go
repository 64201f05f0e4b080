package core

// FilterCriteria is a user selection. A zero bound or empty set means no
// restriction on that attribute.
type FilterCriteria struct {
	Start     Date     `json:"start"`
	End       Date     `json:"end"`
	Statuses  []string `json:"statuses,omitempty"`
	Types     []string `json:"types,omitempty"`
	Customers []string `json:"customers,omitempty"`
}

// HasDateRange reports whether any date bound is active.
func (f FilterCriteria) HasDateRange() bool {
	return !f.Start.IsEmpty() || !f.End.IsEmpty()
}

// IsEmpty reports whether no constraint is active.
func (f FilterCriteria) IsEmpty() bool {
	return !f.HasDateRange() && len(f.Statuses) == 0 && len(f.Types) == 0 && len(f.Customers) == 0
}

// Validate returns a *FilterError when both bounds are set and start is
// after end.
func (f FilterCriteria) Validate() error {
	if !f.Start.IsEmpty() && !f.End.IsEmpty() && f.Start.After(f.End) {
		return &FilterError{Start: f.Start, End: f.End}
	}
	return nil
}

// Matcher compiles the criteria into a predicate. An invalid range yields a
// predicate that rejects everything.
func (f FilterCriteria) Matcher() func(DisputeRecord) bool {
	if f.Validate() != nil {
		return func(DisputeRecord) bool { return false }
	}
	statuses := toSet(f.Statuses)
	types := toSet(f.Types)
	customers := toSet(f.Customers)
	start, end := f.Start.StartOfDay(), f.End.StartOfDay()
	dated := f.HasDateRange()

	return func(r DisputeRecord) bool {
		if dated {
			if r.DisputedAt.IsEmpty() {
				return false
			}
			day := r.DisputedAt.StartOfDay()
			if !start.IsEmpty() && day.Before(start) {
				return false
			}
			if !end.IsEmpty() && day.After(end) {
				return false
			}
		}
		if statuses != nil {
			if _, ok := statuses[r.Status]; !ok {
				return false
			}
		}
		if types != nil {
			if _, ok := types[r.DiscrepancyType]; !ok {
				return false
			}
		}
		if customers != nil {
			if _, ok := customers[r.CustomerName]; !ok {
				return false
			}
		}
		return true
	}
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

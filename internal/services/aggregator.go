// Package services holds the dispute aggregation pipeline and the registry
// of loaded dataset handles.
package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"disputes/internal/core"
)

const (
	DefaultTopN = 10
	MaxTopN     = 100
)

// SummaryOptions tunes Summarize.
type SummaryOptions struct {
	TopN int
}

// NormalizeTopN clamps n into [1, MaxTopN]; zero or negative selects the
// default.
func NormalizeTopN(n int) int {
	switch {
	case n <= 0:
		return DefaultTopN
	case n > MaxTopN:
		return MaxTopN
	}
	return n
}

// Filter returns the records that satisfy every active constraint, in their
// original order. An inverted date range selects nothing.
func Filter(records []core.DisputeRecord, f core.FilterCriteria) []core.DisputeRecord {
	match := f.Matcher()
	out := make([]core.DisputeRecord, 0, len(records))
	for _, r := range records {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize filters records and aggregates the result. It never fails: an
// empty selection yields zero totals and empty collections.
func Summarize(records []core.DisputeRecord, f core.FilterCriteria, opts SummaryOptions) core.SummaryResult {
	return Aggregate(Filter(records, f), opts)
}

// Aggregate computes the summary of an already filtered set.
func Aggregate(filtered []core.DisputeRecord, opts SummaryOptions) core.SummaryResult {
	topN := NormalizeTopN(opts.TopN)
	res := core.SummaryResult{
		Totals:         totals(filtered),
		Daily:          series(filtered, core.Date.StartOfDay),
		Monthly:        series(filtered, core.Date.StartOfMonth),
		Categories:     make([]core.CategoryBreakdown, 0, len(core.Dimensions)),
		TopSavings:     topSavings(filtered, topN),
		TopUnderbilled: topUnderbilled(filtered, topN),
		TopN:           topN,
	}
	for _, r := range filtered {
		if r.DisputedAt.IsEmpty() {
			res.UndatedExcluded++
		}
	}
	for _, dim := range core.Dimensions {
		res.Categories = append(res.Categories, core.CategoryBreakdown{
			Dimension: dim,
			Rows:      Breakdown(filtered, dim),
		})
	}
	return res
}

func totals(records []core.DisputeRecord) core.Totals {
	var (
		t        core.Totals
		gallonsN int64
	)
	t.TotalGallons = decimal.Zero
	t.AvgGallons = decimal.Zero
	for _, r := range records {
		v := r.Value()
		switch v.Sign() {
		case 1:
			t.TotalSavings = t.TotalSavings.Add(v)
			t.SavingsCount++
		case -1:
			t.TotalUnderbilled = t.TotalUnderbilled.Add(v)
			t.UnderbilledCount++
		default:
			t.NeutralCount++
		}
		if r.Gallons.Valid {
			t.TotalGallons = t.TotalGallons.Add(r.Gallons.Decimal)
			gallonsN++
		}
	}
	t.RecordCount = len(records)
	t.NetImpact = t.TotalSavings.Add(t.TotalUnderbilled)
	t.AvgDiscrepancy = t.NetImpact.DivRound(int64(t.RecordCount))
	if gallonsN > 0 {
		t.AvgGallons = t.TotalGallons.Div(decimal.NewFromInt(gallonsN)).Round(2)
	}
	return t
}

// series groups dated records by the bucket key, chronologically. Buckets
// whose savings and underbilled are both zero are omitted.
func series(records []core.DisputeRecord, bucket func(core.Date) core.Date) []core.SeriesPoint {
	groups := make(map[core.Date]*core.SeriesPoint)
	for _, r := range records {
		if r.DisputedAt.IsEmpty() {
			continue
		}
		key := bucket(r.DisputedAt)
		p, ok := groups[key]
		if !ok {
			p = &core.SeriesPoint{Date: key}
			groups[key] = p
		}
		v := r.Value()
		switch v.Sign() {
		case 1:
			p.Savings = p.Savings.Add(v)
		case -1:
			p.Underbilled = p.Underbilled.Add(v)
		}
		p.Count++
	}

	out := make([]core.SeriesPoint, 0, len(groups))
	for _, p := range groups {
		if p.Savings.IsZero() && p.Underbilled.IsZero() {
			continue
		}
		p.Net = p.Savings.Add(p.Underbilled)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

type categoryAcc struct {
	row                     core.CategoryRow
	gallonsN, expN, billedN int64
	expectedSum, billedSum  decimal.Decimal
}

// Breakdown groups records by dim, ordered by descending |net| with ties in
// order of first appearance. Blank values form their own group.
func Breakdown(records []core.DisputeRecord, dim core.CategoryDimension) []core.CategoryRow {
	index := make(map[string]int)
	var accs []*categoryAcc
	for _, r := range records {
		key := r.Category(dim)
		i, ok := index[key]
		if !ok {
			i = len(accs)
			index[key] = i
			accs = append(accs, &categoryAcc{
				row:         core.CategoryRow{Value: key, TotalGallons: decimal.Zero},
				expectedSum: decimal.Zero,
				billedSum:   decimal.Zero,
			})
		}
		a := accs[i]
		v := r.Value()
		switch v.Sign() {
		case 1:
			a.row.Savings = a.row.Savings.Add(v)
		case -1:
			a.row.Underbilled = a.row.Underbilled.Add(v)
		}
		a.row.Count++
		if r.Gallons.Valid {
			a.row.TotalGallons = a.row.TotalGallons.Add(r.Gallons.Decimal)
			a.gallonsN++
		}
		if r.ExpectedRate.Valid {
			a.expectedSum = a.expectedSum.Add(r.ExpectedRate.Decimal)
			a.expN++
		}
		if r.BilledRate.Valid {
			a.billedSum = a.billedSum.Add(r.BilledRate.Decimal)
			a.billedN++
		}
	}

	rows := make([]core.CategoryRow, len(accs))
	for i, a := range accs {
		row := a.row
		row.Net = row.Savings.Add(row.Underbilled)
		row.AvgDiscrepancy = row.Net.DivRound(int64(row.Count))
		row.AvgGallons = mean(row.TotalGallons, a.gallonsN, 2)
		row.AvgExpectedRate = mean(a.expectedSum, a.expN, 4)
		row.AvgBilledRate = mean(a.billedSum, a.billedN, 4)
		rows[i] = row
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Net.Abs().Cents > rows[j].Net.Abs().Cents
	})
	return rows
}

func mean(sum decimal.Decimal, n int64, places int32) decimal.NullDecimal {
	if n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(n)).Round(places))
}

func topSavings(records []core.DisputeRecord, n int) []core.DisputeRecord {
	out := make([]core.DisputeRecord, 0)
	for _, r := range records {
		if r.IsSavings() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value().Cents > out[j].Value().Cents })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topUnderbilled(records []core.DisputeRecord, n int) []core.DisputeRecord {
	out := make([]core.DisputeRecord, 0)
	for _, r := range records {
		if r.IsUnderbilled() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value().Cents < out[j].Value().Cents })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FilterOptions lists the distinct filterable values (blank values skipped, sorted)
// and the disputed date bounds.
func FilterOptions(records []core.DisputeRecord) core.FilterOptions {
	statuses := map[string]struct{}{}
	types := map[string]struct{}{}
	customers := map[string]struct{}{}
	var opts core.FilterOptions
	for _, r := range records {
		add(statuses, r.Status)
		add(types, r.DiscrepancyType)
		add(customers, r.CustomerName)
		d := r.DisputedAt
		if d.IsEmpty() {
			continue
		}
		if opts.MinDate.IsEmpty() || d.Before(opts.MinDate) {
			opts.MinDate = d.StartOfDay()
		}
		if opts.MaxDate.IsEmpty() || d.After(opts.MaxDate) {
			opts.MaxDate = d.StartOfDay()
		}
	}
	opts.Statuses = sortedKeys(statuses)
	opts.Types = sortedKeys(types)
	opts.Customers = sortedKeys(customers)
	return opts
}

func add(set map[string]struct{}, v string) {
	if v != "" {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

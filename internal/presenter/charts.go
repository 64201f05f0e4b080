package presenter

import (
	"fmt"

	"disputes/internal/core"
)

// Charts builds every dashboard chart for one summary.
func Charts(res core.SummaryResult, filtered []core.DisputeRecord, dim core.CategoryDimension) []Chart {
	return []Chart{
		dailyChart(res.Daily),
		dailyCountChart(res.Daily),
		monthlyChart(res.Monthly),
		CategoryBar(res.Breakdown(dim), dim),
		CategoryDonut(res.Breakdown(dim), dim),
		Histogram(filtered, histogramBins),
		Timeline(filtered),
	}
}

func savingsUnderbilled(points []core.SeriesPoint, label func(core.Date) string) []Series {
	savings := Series{Name: "Savings", Color: ColorSavings, Points: make([]Point, 0, len(points))}
	under := Series{Name: "Underbilled", Color: ColorUnderbilled, Points: make([]Point, 0, len(points))}
	for _, p := range points {
		x := label(p.Date)
		savings.Points = append(savings.Points, Point{X: x, Y: p.Savings.Dollars()})
		under.Points = append(under.Points, Point{X: x, Y: p.Underbilled.Dollars()})
	}
	return []Series{savings, under}
}

func dayLabel(d core.Date) string   { return d.Format(core.DayLayout) }
func monthLabel(d core.Date) string { return d.Format("2006-01") }

func dailyChart(points []core.SeriesPoint) Chart {
	return Chart{
		ID:     "daily",
		Title:  "Daily savings vs underbilled",
		Kind:   "bar",
		XLabel: "Date",
		YLabel: "Amount ($)",
		Series: savingsUnderbilled(points, dayLabel),
	}
}

func dailyCountChart(points []core.SeriesPoint) Chart {
	s := Series{Name: "Disputes", Color: ColorCount, Points: make([]Point, 0, len(points))}
	for _, p := range points {
		s.Points = append(s.Points, Point{X: dayLabel(p.Date), Y: float64(p.Count)})
	}
	return Chart{
		ID:     "daily-count",
		Title:  "Disputes per day",
		Kind:   "bar",
		XLabel: "Date",
		YLabel: "Count",
		Series: []Series{s},
	}
}

func monthlyChart(points []core.SeriesPoint) Chart {
	return Chart{
		ID:     "monthly",
		Title:  "Monthly savings vs underbilled",
		Kind:   "bar",
		XLabel: "Month",
		YLabel: "Amount ($)",
		Series: savingsUnderbilled(points, monthLabel),
	}
}

// CategoryBar plots the largest groups by |net| as stacked savings and
// underbilled bars. Rows must already be ordered.
func CategoryBar(rows []core.CategoryRow, dim core.CategoryDimension) Chart {
	if len(rows) > categoryBarLimit {
		rows = rows[:categoryBarLimit]
	}
	savings := Series{Name: "Savings", Color: ColorSavings, Points: make([]Point, 0, len(rows))}
	under := Series{Name: "Underbilled", Color: ColorUnderbilled, Points: make([]Point, 0, len(rows))}
	for _, r := range rows {
		x := categoryLabel(r.Value)
		savings.Points = append(savings.Points, Point{X: x, Y: r.Savings.Dollars()})
		under.Points = append(under.Points, Point{X: x, Y: r.Underbilled.Dollars()})
	}
	return Chart{
		ID:     "category",
		Title:  fmt.Sprintf("Top %d by %s", categoryBarLimit, dim.Label()),
		Kind:   "stacked",
		XLabel: dim.Label(),
		YLabel: "Amount ($)",
		Series: []Series{savings, under},
	}
}

// CategoryDonut shows each group's share of absolute net impact. Groups with
// zero net are left out. Slices are colored by the sign of their net.
func CategoryDonut(rows []core.CategoryRow, dim core.CategoryDimension) Chart {
	savings := Series{Name: "Net savings", Color: ColorSavings}
	under := Series{Name: "Net underbilled", Color: ColorUnderbilled}
	for _, r := range rows {
		switch r.Net.Sign() {
		case 1:
			savings.Points = append(savings.Points, Point{X: categoryLabel(r.Value), Y: r.Net.Dollars()})
		case -1:
			under.Points = append(under.Points, Point{X: categoryLabel(r.Value), Y: r.Net.Abs().Dollars()})
		}
	}
	return Chart{
		ID:     "category-share",
		Title:  "Share of net impact by " + dim.Label(),
		Kind:   "doughnut",
		Series: []Series{savings, under},
	}
}

// Histogram buckets non-zero discrepancy values into bins equal-width bins
// spanning the observed range.
func Histogram(records []core.DisputeRecord, bins int) Chart {
	chart := Chart{
		ID:     "distribution",
		Title:  "Distribution of discrepancy values",
		Kind:   "stacked",
		XLabel: "Discrepancy ($)",
		YLabel: "Count",
	}
	if bins < 1 {
		bins = 1
	}

	var lo, hi int64
	seen := false
	for _, r := range records {
		c := r.Value().Cents
		if c == 0 {
			continue
		}
		if !seen || c < lo {
			lo = c
		}
		if !seen || c > hi {
			hi = c
		}
		seen = true
	}
	savings := Series{Name: "Savings", Color: ColorSavings, Points: []Point{}}
	under := Series{Name: "Underbilled", Color: ColorUnderbilled, Points: []Point{}}
	if !seen {
		chart.Series = []Series{savings, under}
		return chart
	}

	width := float64(hi-lo) / float64(bins)
	if width == 0 {
		width = 1
		bins = 1
	}
	pos := make([]int, bins)
	neg := make([]int, bins)
	for _, r := range records {
		c := r.Value().Cents
		if c == 0 {
			continue
		}
		i := int(float64(c-lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if c > 0 {
			pos[i]++
		} else {
			neg[i]++
		}
	}
	for i := 0; i < bins; i++ {
		center := (float64(lo) + (float64(i)+0.5)*width) / 100
		x := fmt.Sprintf("%.2f", center)
		savings.Points = append(savings.Points, Point{X: x, Y: float64(pos[i])})
		under.Points = append(under.Points, Point{X: x, Y: float64(neg[i])})
	}
	chart.Series = []Series{savings, under}
	return chart
}

// Timeline scatters individual dated, non-zero records.
func Timeline(records []core.DisputeRecord) Chart {
	savings := Series{Name: "Savings", Color: ColorSavings, Points: []Point{}}
	under := Series{Name: "Underbilled", Color: ColorUnderbilled, Points: []Point{}}
	for _, r := range records {
		if r.DisputedAt.IsEmpty() {
			continue
		}
		v := r.Value()
		p := Point{X: dayLabel(r.DisputedAt), Y: v.Dollars()}
		switch v.Sign() {
		case 1:
			savings.Points = append(savings.Points, p)
		case -1:
			under.Points = append(under.Points, p)
		}
	}
	return Chart{
		ID:     "timeline",
		Title:  "Disputes over time",
		Kind:   "scatter",
		XLabel: "Date",
		YLabel: "Discrepancy ($)",
		Series: []Series{savings, under},
	}
}

func categoryLabel(v string) string {
	if v == "" {
		return "(blank)"
	}
	return v
}

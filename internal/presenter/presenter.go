// Package presenter maps summaries to chart descriptors and display rows.
// It formats and colors; all arithmetic lives in services.
package presenter

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"disputes/internal/core"
)

// Series colors.
const (
	ColorSavings     = "#00CC96"
	ColorUnderbilled = "#EF553B"
	ColorCount       = "#636EFA"
)

const (
	categoryBarLimit = 15
	histogramBins    = 30
	recordTableLimit = 500
)

type (
	// Point is one X/Y pair of a series.
	Point struct {
		X string  `json:"x"`
		Y float64 `json:"y"`
	}

	Series struct {
		Name   string  `json:"name"`
		Color  string  `json:"color"`
		Points []Point `json:"points"`
	}

	// Chart is a renderer-neutral chart descriptor.
	Chart struct {
		ID     string   `json:"id"`
		Title  string   `json:"title"`
		Kind   string   `json:"kind"` // bar, stacked, doughnut, scatter
		XLabel string   `json:"xLabel,omitempty"`
		YLabel string   `json:"yLabel,omitempty"`
		Series []Series `json:"series"`
	}

	TotalsView struct {
		TotalSavings     string
		TotalUnderbilled string
		NetImpact        string
		NetPositive      bool
		RecordCount      string
		SavingsCount     string
		UnderbilledCount string
		NeutralCount     string
		TotalGallons     string
		AvgDiscrepancy   string
		AvgGallons       string
	}

	CategoryRowView struct {
		Value          string
		Savings        string
		Underbilled    string
		Net            string
		Count          int
		AvgDiscrepancy string
		TotalGallons   string
		AvgGallons     string
		Class          string
	}

	RecordRow struct {
		PONumber        string
		DisputedAt      string
		CustomerName    string
		SiteName        string
		Item            string
		DiscrepancyType string
		Status          string
		Value           string
		Gallons         string
		Class           string
	}

	// View is everything the dashboard templates render.
	View struct {
		Totals          TotalsView
		Dimension       core.CategoryDimension
		DimensionLabel  string
		Categories      []CategoryRowView
		TopSavings      []RecordRow
		TopUnderbilled  []RecordRow
		Detail          DetailTable
		UndatedExcluded int
		TopN            int
		Charts          []Chart
		Empty           bool
	}
)

// Build assembles the view for one request. Detail is left for the caller,
// which knows the loaded header and the column selection.
func Build(res core.SummaryResult, filtered []core.DisputeRecord, dim core.CategoryDimension) View {
	v := View{
		Totals:          totalsView(res.Totals),
		Dimension:       dim,
		DimensionLabel:  dim.Label(),
		UndatedExcluded: res.UndatedExcluded,
		TopN:            res.TopN,
		Charts:          Charts(res, filtered, dim),
		Empty:           res.IsEmpty(),
	}
	for _, row := range res.Breakdown(dim) {
		v.Categories = append(v.Categories, categoryView(row))
	}
	v.TopSavings = recordRows(res.TopSavings, len(res.TopSavings))
	v.TopUnderbilled = recordRows(res.TopUnderbilled, len(res.TopUnderbilled))
	return v
}

// FormatMoney renders "$1,234.56" or "-$40.00".
func FormatMoney(m core.Money) string {
	sign := ""
	whole, frac := m.Cents/100, m.Cents%100
	if m.Cents < 0 {
		// negate the parts: -math.MinInt64 does not fit
		sign = "-"
		whole, frac = -whole, -frac
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(whole), frac)
}

// FormatQuantity renders a decimal with thousands separators and the given
// number of places.
func FormatQuantity(d decimal.Decimal, places int32) string {
	f, _ := d.Round(places).Float64()
	return humanize.CommafWithDigits(f, int(places))
}

func formatNullQuantity(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return "–"
	}
	return FormatQuantity(d.Decimal, places)
}

func signClass(m core.Money) string {
	switch m.Sign() {
	case 1:
		return "savings"
	case -1:
		return "underbilled"
	}
	return "neutral"
}

func totalsView(t core.Totals) TotalsView {
	return TotalsView{
		TotalSavings:     FormatMoney(t.TotalSavings),
		TotalUnderbilled: FormatMoney(t.TotalUnderbilled),
		NetImpact:        FormatMoney(t.NetImpact),
		NetPositive:      t.NetImpact.Cents >= 0,
		RecordCount:      humanize.Comma(int64(t.RecordCount)),
		SavingsCount:     humanize.Comma(int64(t.SavingsCount)),
		UnderbilledCount: humanize.Comma(int64(t.UnderbilledCount)),
		NeutralCount:     humanize.Comma(int64(t.NeutralCount)),
		TotalGallons:     FormatQuantity(t.TotalGallons, 2),
		AvgDiscrepancy:   FormatMoney(t.AvgDiscrepancy),
		AvgGallons:       FormatQuantity(t.AvgGallons, 2),
	}
}

func categoryView(r core.CategoryRow) CategoryRowView {
	value := r.Value
	if value == "" {
		value = "(blank)"
	}
	return CategoryRowView{
		Value:          value,
		Savings:        FormatMoney(r.Savings),
		Underbilled:    FormatMoney(r.Underbilled),
		Net:            FormatMoney(r.Net),
		Count:          r.Count,
		AvgDiscrepancy: FormatMoney(r.AvgDiscrepancy),
		TotalGallons:   FormatQuantity(r.TotalGallons, 2),
		AvgGallons:     formatNullQuantity(r.AvgGallons, 2),
		Class:          signClass(r.Net),
	}
}

func recordRows(records []core.DisputeRecord, limit int) []RecordRow {
	if len(records) < limit {
		limit = len(records)
	}
	rows := make([]RecordRow, 0, limit)
	for _, r := range records[:limit] {
		value := "–"
		if r.DiscrepancyValue.Valid {
			value = FormatMoney(r.DiscrepancyValue.Money)
		}
		rows = append(rows, RecordRow{
			PONumber:        r.PONumber,
			DisputedAt:      r.DisputedAt.String(),
			CustomerName:    r.CustomerName,
			SiteName:        r.SiteName,
			Item:            r.Item,
			DiscrepancyType: r.DiscrepancyType,
			Status:          r.Status,
			Value:           value,
			Gallons:         formatNullQuantity(r.Gallons, 2),
			Class:           signClass(r.Value()),
		})
	}
	return rows
}

package core

import "github.com/shopspring/decimal"

// CategoryDimension names one of the categorical columns used for breakdowns.
type CategoryDimension string

const (
	DimensionCustomer CategoryDimension = "customerName"
	DimensionSite     CategoryDimension = "siteName"
	DimensionItem     CategoryDimension = "item"
	DimensionType     CategoryDimension = "discrepancyType"
)

// Dimensions lists the breakdown dimensions in display order.
var Dimensions = []CategoryDimension{DimensionCustomer, DimensionSite, DimensionItem, DimensionType}

// ParseDimension maps user input to a dimension; unknown values fall back to
// customers.
func ParseDimension(s string) CategoryDimension {
	for _, d := range Dimensions {
		if string(d) == s {
			return d
		}
	}
	switch s {
	case "customer":
		return DimensionCustomer
	case "site":
		return DimensionSite
	case "type", "discrepancy_type":
		return DimensionType
	}
	return DimensionCustomer
}

// Label is the human readable dimension name.
func (d CategoryDimension) Label() string {
	switch d {
	case DimensionSite:
		return "Site"
	case DimensionItem:
		return "Item"
	case DimensionType:
		return "Discrepancy type"
	}
	return "Customer"
}

type (
	// Totals over the filtered set. TotalUnderbilled is always <= 0 and
	// NetImpact == TotalSavings + TotalUnderbilled.
	Totals struct {
		TotalSavings     Money           `json:"totalSavings"`
		TotalUnderbilled Money           `json:"totalUnderbilled"`
		NetImpact        Money           `json:"netImpact"`
		RecordCount      int             `json:"recordCount"`
		SavingsCount     int             `json:"savingsCount"`
		UnderbilledCount int             `json:"underbilledCount"`
		NeutralCount     int             `json:"neutralCount"`
		TotalGallons     decimal.Decimal `json:"totalGallons"`
		AvgDiscrepancy   Money           `json:"avgDiscrepancy"`
		AvgGallons       decimal.Decimal `json:"avgGallons"`
	}

	// SeriesPoint is one day or month of the time series.
	SeriesPoint struct {
		Date        Date  `json:"date"`
		Savings     Money `json:"savings"`
		Underbilled Money `json:"underbilled"`
		Net         Money `json:"net"`
		Count       int   `json:"count"`
	}

	// CategoryRow aggregates one value of a categorical dimension.
	CategoryRow struct {
		Value           string              `json:"value"`
		Savings         Money               `json:"savings"`
		Underbilled     Money               `json:"underbilled"`
		Net             Money               `json:"net"`
		Count           int                 `json:"count"`
		AvgDiscrepancy  Money               `json:"avgDiscrepancy"`
		TotalGallons    decimal.Decimal     `json:"totalGallons"`
		AvgGallons      decimal.NullDecimal `json:"avgGallons"`
		AvgExpectedRate decimal.NullDecimal `json:"avgExpectedRate"`
		AvgBilledRate   decimal.NullDecimal `json:"avgBilledRate"`
	}

	// CategoryBreakdown holds the rows of one dimension ordered by
	// descending |Net|.
	CategoryBreakdown struct {
		Dimension CategoryDimension `json:"dimension"`
		Rows      []CategoryRow     `json:"rows"`
	}

	// SummaryResult is the aggregator output for one request.
	SummaryResult struct {
		Totals          Totals              `json:"totals"`
		Daily           []SeriesPoint       `json:"daily"`
		Monthly         []SeriesPoint       `json:"monthly"`
		Categories      []CategoryBreakdown `json:"categories"`
		TopSavings      []DisputeRecord     `json:"topSavings"`
		TopUnderbilled  []DisputeRecord     `json:"topUnderbilled"`
		TopN            int                 `json:"topN"`
		UndatedExcluded int                 `json:"undatedExcluded"`
	}

	// FilterOptions describes the values available for the filter form.
	FilterOptions struct {
		Statuses  []string `json:"statuses"`
		Types     []string `json:"types"`
		Customers []string `json:"customers"`
		MinDate   Date     `json:"minDate"`
		MaxDate   Date     `json:"maxDate"`
	}
)

// Breakdown returns the rows for dim, or nil when absent.
func (s SummaryResult) Breakdown(dim CategoryDimension) []CategoryRow {
	for _, c := range s.Categories {
		if c.Dimension == dim {
			return c.Rows
		}
	}
	return nil
}

// IsEmpty reports whether the filtered set had no records.
func (s SummaryResult) IsEmpty() bool { return s.Totals.RecordCount == 0 }

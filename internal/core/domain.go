// Package core holds the dispute domain: records, money and dates, filter
// criteria and the summary shapes produced by the aggregator.
package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Canonical column names of the input table.
const (
	ColPONumber          = "po_number"
	ColDisputedAt        = "disputedAt"
	ColDiscrepancyValue  = "discrepancy_value"
	ColCustomerName      = "customerName"
	ColSiteName          = "siteName"
	ColItem              = "item"
	ColDiscrepancyType   = "discrepancy_type"
	ColGallons           = "gallons"
	ColStatus            = "status"
	ColStatusAlias       = "discrepancy_status"
	ColExpectedRate      = "expected_rate"
	ColBilledRate        = "billed_rate"
	ColDifferencePerUnit = "difference_per_unit"
	ColOverriddenAt      = "overriddenAt"
	ColArchivedAt        = "archivedAt"
)

type (
	// DisputeRecord is one row of the input table. Optional fields use
	// zero Date, invalid NullMoney or invalid NullDecimal for "missing".
	DisputeRecord struct {
		PONumber          string              `json:"poNumber"`
		DisputedAt        Date                `json:"disputedAt"`
		DiscrepancyValue  NullMoney           `json:"discrepancyValue"`
		CustomerName      string              `json:"customerName"`
		SiteName          string              `json:"siteName"`
		Item              string              `json:"item"`
		DiscrepancyType   string              `json:"discrepancyType"`
		Gallons           decimal.NullDecimal `json:"gallons"`
		Status            string              `json:"status"`
		ExpectedRate      decimal.NullDecimal `json:"expectedRate"`
		BilledRate        decimal.NullDecimal `json:"billedRate"`
		DifferencePerUnit decimal.NullDecimal `json:"differencePerUnit"`
		OverriddenAt      Date                `json:"overriddenAt"`
		ArchivedAt        Date                `json:"archivedAt"`

		Row int      `json:"row"` // 0-based position in the source table
		Raw []string `json:"-"`   // original cells, passed through on export
	}

	// Dataset is an immutable loaded table. Callers hold it as a handle and
	// never mutate Records.
	Dataset struct {
		ID       uuid.UUID
		Source   string
		LoadedAt time.Time
		Header   []string
		Records  []DisputeRecord
	}
)

// Value returns the discrepancy amount, treating a missing value as zero.
func (r DisputeRecord) Value() Money {
	return r.DiscrepancyValue.OrZero()
}

// IsSavings reports whether the record's discrepancy is positive.
func (r DisputeRecord) IsSavings() bool { return r.Value().Cents > 0 }

// IsUnderbilled reports whether the record's discrepancy is negative.
func (r DisputeRecord) IsUnderbilled() bool { return r.Value().Cents < 0 }

// Category returns the record's value for the given dimension.
func (r DisputeRecord) Category(dim CategoryDimension) string {
	switch dim {
	case DimensionCustomer:
		return r.CustomerName
	case DimensionSite:
		return r.SiteName
	case DimensionItem:
		return r.Item
	case DimensionType:
		return r.DiscrepancyType
	}
	return ""
}

// NewDataset stamps a fresh handle around already parsed records.
func NewDataset(source string, header []string, records []DisputeRecord) *Dataset {
	h := make([]string, len(header))
	copy(h, header)
	return &Dataset{
		ID:       uuid.New(),
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Header:   h,
		Records:  records,
	}
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

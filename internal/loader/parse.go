package loader

import (
	"strings"

	"github.com/shopspring/decimal"

	"disputes/internal/core"
)

// columnIndex maps canonical column names to header positions.
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// pos returns the header position of a canonical column, or -1.
func (c columnIndex) pos(name string) int {
	if i, ok := c[strings.ToLower(name)]; ok {
		return i
	}
	return -1
}

// Parse coerces a raw table into a dataset. source names the table in
// errors and on the dataset handle.
func Parse(source string, t core.Table) (*core.Dataset, error) {
	if len(t.Header) == 0 {
		return nil, &core.LoadError{Kind: core.LoadEmpty, Source: source}
	}
	cols := indexHeader(t.Header)
	valuePos := cols.pos(core.ColDiscrepancyValue)
	if valuePos < 0 {
		return nil, &core.LoadError{Kind: core.LoadMissingColumn, Source: source, Column: core.ColDiscrepancyValue}
	}
	statusPos := cols.pos(core.ColStatus)
	if statusPos < 0 {
		statusPos = cols.pos(core.ColStatusAlias)
	}

	var (
		po       = cols.pos(core.ColPONumber)
		disputed = cols.pos(core.ColDisputedAt)
		customer = cols.pos(core.ColCustomerName)
		site     = cols.pos(core.ColSiteName)
		item     = cols.pos(core.ColItem)
		dtype    = cols.pos(core.ColDiscrepancyType)
		gallons  = cols.pos(core.ColGallons)
		expected = cols.pos(core.ColExpectedRate)
		billed   = cols.pos(core.ColBilledRate)
		perUnit  = cols.pos(core.ColDifferencePerUnit)
		overrode = cols.pos(core.ColOverriddenAt)
		archived = cols.pos(core.ColArchivedAt)
		width    = len(t.Header)
		records  = make([]core.DisputeRecord, 0, len(t.Rows))
	)

	for _, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		raw := make([]string, width)
		copy(raw, row)

		rec := core.DisputeRecord{
			PONumber:          text(raw, po),
			DisputedAt:        date(raw, disputed),
			CustomerName:      text(raw, customer),
			SiteName:          text(raw, site),
			Item:              text(raw, item),
			DiscrepancyType:   text(raw, dtype),
			Status:            text(raw, statusPos),
			Gallons:           quantity(raw, gallons),
			ExpectedRate:      quantity(raw, expected),
			BilledRate:        quantity(raw, billed),
			DifferencePerUnit: quantity(raw, perUnit),
			OverriddenAt:      date(raw, overrode),
			ArchivedAt:        date(raw, archived),
			Row:               len(records),
			Raw:               raw,
		}
		if m, err := core.ParseMoney(core.Cell(raw, valuePos)); err == nil {
			rec.DiscrepancyValue = core.SomeMoney(m)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &core.LoadError{Kind: core.LoadEmpty, Source: source}
	}
	return core.NewDataset(source, t.Header, records), nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func text(row []string, i int) string {
	return strings.TrimSpace(core.Cell(row, i))
}

func date(row []string, i int) core.Date {
	d, _ := core.ParseDate(core.Cell(row, i))
	return d
}

func quantity(row []string, i int) decimal.NullDecimal {
	return core.ParseQuantity(core.Cell(row, i))
}

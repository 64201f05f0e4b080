package presenter

import (
	"strings"

	"disputes/internal/core"
)

// DefaultDetailColumns are shown when no column selection is given.
var DefaultDetailColumns = []string{
	core.ColPONumber,
	core.ColDisputedAt,
	core.ColCustomerName,
	core.ColSiteName,
	core.ColDiscrepancyType,
	core.ColItem,
	core.ColDiscrepancyValue,
	core.ColGallons,
}

type (
	// DetailTable is the record table with user-chosen columns, cells shown
	// as loaded.
	DetailTable struct {
		Columns []string
		Rows    []DetailRow
		Total   int
		Trimmed bool
	}

	DetailRow struct {
		Class string
		Cells []string
	}
)

// DetailColumns resolves a column selection against the loaded header.
// Names are matched case-insensitively and reported with the header's
// spelling; unknown names are dropped. An empty result falls back to the
// defaults present in the header, and then to the whole header.
func DetailColumns(header, selected []string) []int {
	if idx := columnIndexes(header, selected); len(idx) > 0 {
		return idx
	}
	if idx := columnIndexes(header, DefaultDetailColumns); len(idx) > 0 {
		return idx
	}
	idx := make([]int, len(header))
	for i := range header {
		idx[i] = i
	}
	return idx
}

func columnIndexes(header, names []string) []int {
	var idx []int
	seen := make(map[int]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) && !seen[i] {
				idx = append(idx, i)
				seen[i] = true
				break
			}
		}
	}
	return idx
}

// Detail builds the record table for the selected columns, capped at the
// record table limit.
func Detail(header []string, records []core.DisputeRecord, selected []string) DetailTable {
	idx := DetailColumns(header, selected)
	t := DetailTable{
		Columns: make([]string, len(idx)),
		Total:   len(records),
		Trimmed: len(records) > recordTableLimit,
	}
	for i, c := range idx {
		t.Columns[i] = header[c]
	}
	if t.Trimmed {
		records = records[:recordTableLimit]
	}
	t.Rows = make([]DetailRow, 0, len(records))
	for _, r := range records {
		cells := make([]string, len(idx))
		for i, c := range idx {
			cells[i] = core.Cell(r.Raw, c)
		}
		t.Rows = append(t.Rows, DetailRow{Class: signClass(r.Value()), Cells: cells})
	}
	return t
}

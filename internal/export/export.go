// Package export writes a filtered selection back out in the loaded column
// layout.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"disputes/internal/core"
)

// Supported formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const sheetName = "Disputes"

// FileName is the download name for an export produced at now.
func FileName(format string, now time.Time) string {
	return fmt.Sprintf("disputes_filtered_%s.%s", now.Format("20060102"), format)
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// WriteCSV writes header and the raw cells of records unchanged.
func WriteCSV(w io.Writer, header []string, records []core.DisputeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(rawRow(r, len(header))); err != nil {
			return fmt.Errorf("write row %d: %w", r.Row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
// Cells are written as text so values round-trip exactly.
func WriteXLSX(w io.Writer, header []string, records []core.DisputeRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", head, excelize.RowOpts{}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		raw := rawRow(r, len(header))
		row := make([]interface{}, len(raw))
		for j, c := range raw {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", r.Row, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, format string, header []string, records []core.DisputeRecord) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, header, records)
	case FormatXLSX:
		return WriteXLSX(w, header, records)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func rawRow(r core.DisputeRecord, width int) []string {
	if len(r.Raw) == width {
		return r.Raw
	}
	out := make([]string, width)
	copy(out, r.Raw)
	return out
}

package loader

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"disputes/internal/core"
)

// ReadXLSX reads the first sheet of a workbook as a table.
func ReadXLSX(r io.Reader) (core.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return core.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return core.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return core.Table{}, nil
	}
	return core.Table{Header: rows[0], Rows: rows[1:]}, nil
}

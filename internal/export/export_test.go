package export_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputes/internal/core"
	"disputes/internal/export"
	"disputes/internal/loader"
	"disputes/internal/services"
)

const source = "po_number,disputedAt,discrepancy_value,customerName,siteName,item,discrepancy_type,gallons,status,extra\n" +
	"PO-1,2024-01-01,100,A,North,Diesel,rate,50,open,x\n" +
	"PO-2,2024-01-01,-40,B,South,Gas,volume,,closed,\n" +
	"PO-3,2024-01-02,0,A,North,Diesel,rate,10,open,\"quoted, cell\"\n" +
	"PO-4,2024-02-10,\"$1,000.10\",A,East,Gas,rate,7,open,\n" +
	"PO-5,,-12.5,C,East,Gas,volume,3,closed,\n"

func loadSource(t *testing.T) *core.Dataset {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(p, []byte(source), 0o600))
	ds, err := loader.Load(p)
	require.NoError(t, err)
	return ds
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "disputes_filtered_20240309.csv", export.FileName(export.FormatCSV, now))
	assert.Equal(t, "disputes_filtered_20240309.xlsx", export.FileName(export.FormatXLSX, now))
}

func TestWriteCSVPassThrough(t *testing.T) {
	ds := loadSource(t)
	f := core.FilterCriteria{Customers: []string{"A"}}
	subset := services.Filter(ds.Records, f)

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, ds.Header, subset))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Split(source, "\n")[0], lines[0], "same columns, same order")
	assert.Equal(t, "PO-1,2024-01-01,100,A,North,Diesel,rate,50,open,x", lines[1])
	assert.Equal(t, `PO-3,2024-01-02,0,A,North,Diesel,rate,10,open,"quoted, cell"`, lines[2])
	assert.Equal(t, `PO-4,2024-02-10,"$1,000.10",A,East,Gas,rate,7,open,`, lines[3])
}

func TestExportRoundTrip(t *testing.T) {
	ds := loadSource(t)
	filters := []core.FilterCriteria{
		{Customers: []string{"A"}},
		{Types: []string{"volume"}},
		{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)},
	}
	for _, format := range []string{export.FormatCSV, export.FormatXLSX} {
		for i, f := range filters {
			want := services.Summarize(ds.Records, f, services.SummaryOptions{})
			subset := services.Filter(ds.Records, f)

			dir := t.TempDir()
			path := filepath.Join(dir, export.FileName(format, time.Now()))
			var buf bytes.Buffer
			require.NoError(t, export.Write(&buf, format, ds.Header, subset))
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

			back, err := loader.Load(path)
			require.NoError(t, err, "%s filter %d", format, i)
			got := services.Summarize(back.Records, core.FilterCriteria{}, services.SummaryOptions{})

			assert.Equal(t, want.Totals.TotalSavings, got.Totals.TotalSavings, "%s filter %d", format, i)
			assert.Equal(t, want.Totals.TotalUnderbilled, got.Totals.TotalUnderbilled, "%s filter %d", format, i)
			assert.Equal(t, want.Totals.NetImpact, got.Totals.NetImpact, "%s filter %d", format, i)
			assert.Equal(t, want.Totals.RecordCount, got.Totals.RecordCount, "%s filter %d", format, i)
			assert.Equal(t, ds.Header, back.Header)
		}
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	err := export.Write(&bytes.Buffer{}, "pdf", nil, nil)
	assert.Error(t, err)
}

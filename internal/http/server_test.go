package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputes/internal/core"
	"disputes/internal/loader"
	"disputes/internal/log"
	"disputes/internal/metrics"
	"disputes/internal/presenter"
	"disputes/internal/services"
	"disputes/internal/sheets/memory"
)

var sampleTable = core.Table{
	Header: []string{"po_number", "disputedAt", "discrepancy_value", "customerName", "siteName", "discrepancy_type", "gallons", "status"},
	Rows: [][]string{
		{"PO-1", "2024-01-01", "100", "A", "North", "rate", "50", "open"},
		{"PO-2", "2024-01-01", "-40", "B", "South", "volume", "", "closed"},
		{"PO-3", "2024-01-02", "0", "A", "North", "rate", "10", "open"},
		{"PO-4", "2024-02-10", "25.50", "C", "East", "rate", "7", "open"},
	},
}

func newTestServer(t *testing.T, exportLimit int) *Server {
	t.Helper()
	store := memory.New("mem", sampleTable)
	load := func(ctx context.Context) (*core.Dataset, error) { return loader.LoadFrom(ctx, store) }
	reg := services.NewDatasetRegistry(load, services.RegistryConfig{}, nil, log.Discard())
	_, err := reg.Reload(context.Background())
	require.NoError(t, err)

	srv := NewServer(":0", Deps{
		Dashboard:       services.NewDashboard(reg, 10, nil),
		Metrics:         metrics.New(),
		Logger:          log.Discard(),
		ExportRateLimit: exportLimit,
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	assert.Contains(t, body, "Disputes dashboard")
	assert.Contains(t, body, "$125.50", "total savings")
	assert.Contains(t, body, "-$40.00", "total underbilled")
	assert.Contains(t, body, `id="chart-data"`)
	assert.NotEmpty(t, rr.Header().Get("X-Content-Type-Options"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestReadyWithoutDataset(t *testing.T) {
	reg := services.NewDatasetRegistry(nil, services.RegistryConfig{}, nil, log.Discard())
	srv := NewServer(":0", Deps{Dashboard: services.NewDashboard(reg, 10, nil), Logger: log.Discard()})
	defer srv.Shutdown(context.Background())

	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/readyz", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/api/summary", nil).Code)
}

func TestAPISummary(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	resp := decode[summaryResponse](t, rr)
	assert.Equal(t, 4, resp.Records)
	assert.Equal(t, 4, resp.Filtered)
	assert.Equal(t, int64(12550), resp.Summary.Totals.TotalSavings.Cents)
	assert.Equal(t, int64(-4000), resp.Summary.Totals.TotalUnderbilled.Cents)
	assert.Equal(t, int64(8550), resp.Summary.Totals.NetImpact.Cents)

	rr = do(t, srv, http.MethodGet, "/api/summary?customer=A&start=2024-01-01&end=2024-01-31&top=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[summaryResponse](t, rr)
	assert.Equal(t, 2, resp.Filtered)
	assert.Equal(t, int64(10000), resp.Summary.Totals.NetImpact.Cents)
	assert.Len(t, resp.Summary.TopSavings, 1)
}

func TestAPISummaryInvertedRange(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/api/summary?start=2024-02-01&end=2024-01-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[summaryResponse](t, rr)
	assert.Equal(t, 0, resp.Filtered)
	assert.NotEmpty(t, resp.Warning)
	assert.True(t, resp.Summary.Totals.NetImpact.IsZero())

	rr = do(t, srv, http.MethodGet, "/?start=2024-02-01&end=2024-01-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "no records match")
}

func TestAPIErrors(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/api/summary?start=notadate", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, "start")

	rr = do(t, srv, http.MethodGet, "/api/summary?dataset=6f1c0e2a-8d3b-4c56-9a1e-0b7d2f3c4e5a", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/ui/summary?top=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="error"`)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/nope", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/admin/reload", nil).Code)
}

func TestAPIChartsAndOptions(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/api/charts?dimension=siteName", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	charts := decode[[]presenter.Chart](t, rr)
	require.Len(t, charts, 7)
	for _, c := range charts {
		if c.ID == "category" {
			assert.Contains(t, c.Title, "Site")
		}
	}

	rr = do(t, srv, http.MethodGet, "/api/options", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	opts := decode[core.FilterOptions](t, rr)
	assert.Equal(t, []string{"closed", "open"}, opts.Statuses)
	assert.Equal(t, []string{"A", "B", "C"}, opts.Customers)
	assert.Equal(t, "2024-01-01", opts.MinDate.String())
	assert.Equal(t, "2024-02-10", opts.MaxDate.String())
}

func TestSummaryPartial(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/ui/summary?status=closed", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "/?status=closed", rr.Header().Get("HX-Push-Url"))
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(body), `<section id="summary"`))
	assert.Contains(t, body, "1 of 4 records selected")
	assert.Contains(t, body, "/export.csv?status=closed")
}

func TestSummaryDetailColumns(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/ui/summary?cols=status&cols=PO_NUMBER&cols=missing", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<thead><tr><th>status</th><th>po_number</th></tr></thead>")
	assert.Contains(t, body, "<td>open</td><td>PO-1</td>")
	assert.NotContains(t, body, "<th>siteName</th>")

	rr = do(t, srv, http.MethodGet, "/ui/summary", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(),
		"<thead><tr><th>po_number</th><th>disputedAt</th><th>customerName</th><th>siteName</th><th>discrepancy_type</th><th>discrepancy_value</th><th>gallons</th></tr></thead>",
		"default columns present in the header")

	rr = do(t, srv, http.MethodGet, "/?cols=status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := rr.Body.String()
	assert.Contains(t, page, `<option value="status" selected>status</option>`)
	assert.Contains(t, page, `<option value="siteName" >siteName</option>`)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, 10)

	rr := do(t, srv, http.MethodGet, "/export.csv?customer=A", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Regexp(t, `attachment; filename="disputes_filtered_\d{8}\.csv"`, rr.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(sampleTable.Header, ","), lines[0])
	assert.Equal(t, "PO-1,2024-01-01,100,A,North,rate,50,open", lines[1])

	rr = do(t, srv, http.MethodGet, "/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	tbl, err := loader.ReadXLSX(rr.Body)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 4)
}

func TestExportRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/export.csv", nil).Code)
	}
	rr := do(t, srv, http.MethodGet, "/export.csv", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/summary", nil).Code, "other routes are not limited")
}

func TestRateLimitIgnoresSpoofedForwardingHeaders(t *testing.T) {
	srv := newTestServer(t, 2)

	accepted := 0
	for i := 0; i < 10; i++ {
		fake := fmt.Sprintf("203.0.113.%d", i+1)
		rr := do(t, srv, http.MethodPost, "/admin/reload", map[string]string{
			"X-Real-IP":       fake,
			"X-Forwarded-For": fake,
		})
		if rr.Code != http.StatusTooManyRequests {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted, "an untrusted peer is limited by its own address")
}

func TestRateLimitPerClientBehindTrustedProxy(t *testing.T) {
	srv := newTestServer(t, 1)

	fromProxy := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/export.csv", nil)
		req.RemoteAddr = "10.0.0.5:40000"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	assert.Equal(t, http.StatusOK, fromProxy("198.51.100.1"))
	assert.Equal(t, http.StatusOK, fromProxy("198.51.100.2"), "distinct clients behind the proxy get their own window")
	assert.Equal(t, http.StatusTooManyRequests, fromProxy("198.51.100.1"))
}

func TestReloadKeepsPreviousAddressable(t *testing.T) {
	srv := newTestServer(t, 10)
	before := srv.dashboard.Registry().Current().ID.String()

	rr := do(t, srv, http.MethodPost, "/admin/reload", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[reloadResponse](t, rr)
	assert.Equal(t, before, resp.Previous)
	assert.NotEqual(t, before, resp.DatasetID)
	assert.Equal(t, 4, resp.Records)

	rr = do(t, srv, http.MethodGet, "/api/summary?dataset="+before, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, before, decode[summaryResponse](t, rr).DatasetID)

	rr = do(t, srv, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ds := decode[datasetsResponse](t, rr)
	assert.Equal(t, resp.DatasetID, ds.Current)
	assert.Contains(t, ds.Retained, before)

	rr = do(t, srv, http.MethodPost, "/admin/reload", map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "dataset:reloaded")
}

func TestReloadFailureKeepsCurrent(t *testing.T) {
	store := memory.New("mem", sampleTable)
	load := func(ctx context.Context) (*core.Dataset, error) { return loader.LoadFrom(ctx, store) }
	reg := services.NewDatasetRegistry(load, services.RegistryConfig{}, nil, log.Discard())
	_, err := reg.Reload(context.Background())
	require.NoError(t, err)
	srv := NewServer(":0", Deps{Dashboard: services.NewDashboard(reg, 10, nil), Logger: log.Discard(), ExportRateLimit: 10})
	defer srv.Shutdown(context.Background())
	before := reg.Current().ID

	require.NoError(t, store.ImportTable(context.Background(), "", core.Table{Header: []string{"po_number"}}))
	rr := do(t, srv, http.MethodPost, "/admin/reload", map[string]string{"HX-Request": "true"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "discrepancy_value")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"error"`)
	assert.Equal(t, before, reg.Current().ID)
}

func TestMetricsAndCompression(t *testing.T) {
	srv := newTestServer(t, 10)
	do(t, srv, http.MethodGet, "/api/summary", nil)

	rr := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `disputes_http_requests_total{code="200",route="/api/summary"}`)

	rr = do(t, srv, http.MethodGet, "/", map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, 10)
	rr := do(t, srv, http.MethodGet, "/static/app.js", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObservers(t *testing.T) {
	m := New()
	m.ObserveLoad("a.csv", 42, time.Millisecond, nil)
	m.ObserveLoad("a.csv", 0, time.Millisecond, errors.New("x"))
	m.ObserveExport("csv")
	m.ObserveExport("csv")
	m.ObserveRPC(nil)

	if got := testutil.ToFloat64(m.loadsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok loads = %v", got)
	}
	if got := testutil.ToFloat64(m.loadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("failed loads = %v", got)
	}
	if got := testutil.ToFloat64(m.datasetRecords); got != 42 {
		t.Errorf("records gauge = %v", got)
	}
	if got := testutil.ToFloat64(m.exportsTotal.WithLabelValues("csv")); got != 2 {
		t.Errorf("csv exports = %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.ObserveSummary(2*time.Millisecond, 7)
	m.ObserveHTTP("/api/summary", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"disputes_summarize_duration_seconds_count 1",
		`disputes_http_requests_total{code="200",route="/api/summary"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

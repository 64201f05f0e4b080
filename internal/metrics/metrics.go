// Package metrics owns the Prometheus collectors for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector, registered in a private registry so tests
// can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	summarizeDuration prometheus.Histogram
	filteredRecords   prometheus.Histogram
	datasetRecords    prometheus.Gauge
	datasetLoadedAt   prometheus.Gauge
	loadsTotal        *prometheus.CounterVec
	loadDuration      prometheus.Histogram
	exportsTotal      *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	rpcTotal          *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		summarizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "disputes_summarize_duration_seconds",
			Help:    "Time spent filtering and aggregating one request.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		filteredRecords: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "disputes_filtered_records",
			Help:    "Records left after filtering.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		datasetRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "disputes_dataset_records",
			Help: "Records in the current dataset.",
		}),
		datasetLoadedAt: factory.NewGauge(prometheus.GaugeOpts{
			Name: "disputes_dataset_loaded_timestamp_seconds",
			Help: "Unix time of the last successful load.",
		}),
		loadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "disputes_loads_total",
			Help: "Dataset load attempts by outcome.",
		}, []string{"status"}),
		loadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "disputes_load_duration_seconds",
			Help:    "Time spent reading and parsing the source.",
			Buckets: prometheus.DefBuckets,
		}),
		exportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "disputes_exports_total",
			Help: "Exports served by format.",
		}, []string{"format"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "disputes_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "disputes_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rpcTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "disputes_rpc_requests_total",
			Help: "Summary requests handled over the message broker by outcome.",
		}, []string{"status"}),
	}
}

// ObserveLoad records a load attempt.
func (m *Metrics) ObserveLoad(_ string, records int, elapsed time.Duration, err error) {
	m.loadDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.loadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.loadsTotal.WithLabelValues("ok").Inc()
	m.datasetRecords.Set(float64(records))
	m.datasetLoadedAt.SetToCurrentTime()
}

// ObserveSummary records one summarize pass.
func (m *Metrics) ObserveSummary(elapsed time.Duration, filtered int) {
	m.summarizeDuration.Observe(elapsed.Seconds())
	m.filteredRecords.Observe(float64(filtered))
}

func (m *Metrics) ObserveExport(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

func (m *Metrics) ObserveRPC(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.rpcTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

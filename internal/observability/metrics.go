// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptopunks-analysis/internal/analytics"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	PassDuration      *prometheus.HistogramVec
	PassErrors        *prometheus.CounterVec
	TransfersAnalyzed prometheus.Counter

	// Ingestion metrics
	FetchRequests *prometheus.CounterVec
	FetchLatency  *prometheus.HistogramVec
	PriceCache    *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses a fresh private registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if namespace == "" {
		namespace = "cryptopunks"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		PassDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "pass_duration_seconds",
			Help:      "Duration of analysis passes",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"pass"}),
		PassErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "pass_errors_total",
			Help:      "Total number of failed analysis passes",
		}, []string{"pass", "kind"}),
		TransfersAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "transfers_analyzed_total",
			Help:      "Total number of transfers that went through a full analysis",
		}),

		FetchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_requests_total",
			Help:      "Total number of upstream API requests",
		}, []string{"source", "outcome"}),
		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_latency_seconds",
			Help:      "Upstream API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		PriceCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "price_cache_total",
			Help:      "Price cache lookups by result",
		}, []string{"result"}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}, []string{"status"}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of dashboard API requests",
		}, []string{"route", "code"}),

		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObservePass records one analysis pass. Implements analytics.Recorder.
func (m *Metrics) ObservePass(pass string, d time.Duration, err error) {
	m.PassDuration.WithLabelValues(pass).Observe(d.Seconds())
	if err != nil {
		m.PassErrors.WithLabelValues(pass, analytics.ErrorKind(err)).Inc()
	}
}

// AddTransfersAnalyzed counts transfers in a completed analysis.
func (m *Metrics) AddTransfersAnalyzed(n int) {
	m.TransfersAnalyzed.Add(float64(n))
}

// RecordFetch records an upstream request to source ("etherscan", "coingecko").
func (m *Metrics) RecordFetch(source string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.FetchRequests.WithLabelValues(source, outcome).Inc()
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
}

// RecordCacheLookup records a price cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		m.PriceCache.WithLabelValues("hit").Inc()
		return
	}
	m.PriceCache.WithLabelValues("miss").Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func (m *Metrics) RecordPipelineRun(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.ReportsGenerated.Inc()
	}
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(route string, code int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

var _ analytics.Recorder = (*Metrics)(nil)

// Package metrics provides Prometheus metrics for the extraction service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Document pipeline metrics
	DocumentsTotal   *prometheus.CounterVec
	DocumentDuration prometheus.Histogram
	PagesTotal       *prometheus.CounterVec
	FieldHitsTotal   *prometheus.CounterVec
	QueueDepth       prometheus.Gauge

	// Ledger metrics
	LedgerUpsertsTotal   *prometheus.CounterVec
	LedgerFallbacksTotal prometheus.Counter
	LedgerUpsertDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{}

	m.GrpcRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpod_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)
	m.GrpcRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dpod_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	m.GrpcRequestsInFlight = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpod_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.DocumentsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpod_documents_total",
			Help: "Documents processed, by final status",
		},
		[]string{"status"},
	)
	m.DocumentDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dpod_document_duration_seconds",
			Help:    "End-to-end processing time per document",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 180},
		},
	)
	m.PagesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpod_pages_total",
			Help: "Pages processed, by recognition outcome",
		},
		[]string{"outcome"},
	)
	m.FieldHitsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpod_field_hits_total",
			Help: "Master fields populated, by field name",
		},
		[]string{"field"},
	)
	m.QueueDepth = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "dpod_queue_depth",
			Help: "Files waiting in the async processing queue",
		},
	)

	m.LedgerUpsertsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dpod_ledger_upserts_total",
			Help: "Ledger upserts, by backend and status",
		},
		[]string{"backend", "status"},
	)
	m.LedgerFallbacksTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "dpod_ledger_fallbacks_total",
			Help: "Upserts that could not read the existing ledger and wrote a fresh one",
		},
	)
	m.LedgerUpsertDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dpod_ledger_upsert_duration_seconds",
			Help:    "Duration of ledger upserts in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"backend"},
	)
	return m
}

// GrpcStarted marks a request in flight.
func (m *Metrics) GrpcStarted() {
	if m == nil {
		return
	}
	m.GrpcRequestsInFlight.Inc()
}

// GrpcFinished records a finished gRPC request with its status code.
func (m *Metrics) GrpcFinished(method string, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GrpcRequestsInFlight.Dec()
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordDocument records one finished document.
func (m *Metrics) RecordDocument(status string, pagesOK, pagesFailed int, fields []string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(status).Inc()
	m.DocumentDuration.Observe(duration.Seconds())
	m.PagesTotal.WithLabelValues("ok").Add(float64(pagesOK))
	m.PagesTotal.WithLabelValues("failed").Add(float64(pagesFailed))
	for _, f := range fields {
		m.FieldHitsTotal.WithLabelValues(f).Inc()
	}
}

// RecordUpsert records a ledger write.
func (m *Metrics) RecordUpsert(backend string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LedgerUpsertsTotal.WithLabelValues(backend, status).Inc()
	m.LedgerUpsertDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordFallback counts a degraded ledger write.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.LedgerFallbacksTotal.Inc()
}

// SetQueueDepth reports the async queue backlog.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

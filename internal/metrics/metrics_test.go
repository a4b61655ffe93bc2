package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDocument(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordDocument("Partial", 2, 1, []string{"invoice_number", "has_sticker"}, time.Second)

	if got := testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("Partial")); got != 1 {
		t.Errorf("documents = %v", got)
	}
	if got := testutil.ToFloat64(m.PagesTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed pages = %v", got)
	}
	if got := testutil.ToFloat64(m.FieldHitsTotal.WithLabelValues("invoice_number")); got != 1 {
		t.Errorf("field hits = %v", got)
	}
}

func TestRecordUpsert(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordUpsert("xlsx", nil, time.Millisecond)
	m.RecordUpsert("xlsx", errors.New("disk full"), time.Millisecond)
	m.RecordFallback()

	if got := testutil.ToFloat64(m.LedgerUpsertsTotal.WithLabelValues("xlsx", "error")); got != 1 {
		t.Errorf("error upserts = %v", got)
	}
	if got := testutil.ToFloat64(m.LedgerFallbacksTotal); got != 1 {
		t.Errorf("fallbacks = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordDocument("Success", 1, 0, nil, time.Second)
	m.RecordUpsert("sqlite", nil, 0)
	m.GrpcStarted()
	m.GrpcFinished("/x", "OK", 0)
	m.RecordFallback()
	m.SetQueueDepth(3)
}

func TestGrpcInFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.GrpcStarted()
	m.GrpcStarted()
	m.GrpcFinished("/dpod.v1.Extraction/ProcessFile", "OK", time.Millisecond)

	if got := testutil.ToFloat64(m.GrpcRequestsInFlight); got != 1 {
		t.Errorf("in flight = %v", got)
	}
	if got := testutil.ToFloat64(m.GrpcRequestsTotal.WithLabelValues("/dpod.v1.Extraction/ProcessFile", "OK")); got != 1 {
		t.Errorf("requests = %v", got)
	}
}

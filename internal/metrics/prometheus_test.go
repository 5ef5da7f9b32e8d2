package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("parse", 150*time.Millisecond)
	pr.IncStageResult("parse", ResultSuccess)
	pr.ObserveTransformDuration("markdown", 200*time.Millisecond)
	pr.IncTransformOutcome("markdown", ResultFailed)
	pr.SetQueueDepth(3)
	pr.IncCacheLookup(true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetQueueDepth(7)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "ubreader_ingest_queue_depth 7") {
		t.Errorf("expected queue depth in scrape output, got %q", body)
	}
}

func TestNilPrometheusRecorder(t *testing.T) {
	var pr *PrometheusRecorder
	pr.ObserveStageDuration("parse", time.Second)
	pr.IncCacheLookup(false)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("parse", time.Second)
	r.IncTransformOutcome("markdown", ResultSuccess)
}

package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ubreader"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	stageDuration     *prom.HistogramVec
	stageResults      *prom.CounterVec
	transformDuration *prom.HistogramVec
	transformOutcomes *prom.CounterVec
	queueDepth        prom.Gauge
	cacheLookups      *prom.CounterVec
}

// NewPrometheusRecorder registers the collectors on reg. A nil reg gets a
// fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual transformation stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		transformDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "transform_duration_seconds",
			Help:      "End-to-end transformation duration by document type",
			Buckets:   prom.DefBuckets,
		}, []string{"document_type"}),
		transformOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transform_outcomes_total",
			Help:      "Transformation outcomes by document type",
		}, []string{"document_type", "result"}),
		queueDepth: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_queue_depth",
			Help:      "Jobs waiting in the ingest queue",
		}),
		cacheLookups: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Document cache lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.transformDuration, pr.transformOutcomes, pr.queueDepth, pr.cacheLookups)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveTransformDuration(docType string, d time.Duration) {
	if p == nil {
		return
	}
	p.transformDuration.WithLabelValues(docType).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTransformOutcome(docType string, result ResultLabel) {
	if p == nil {
		return
	}
	p.transformOutcomes.WithLabelValues(docType, string(result)).Inc()
}

func (p *PrometheusRecorder) SetQueueDepth(n int) {
	if p == nil {
		return
	}
	p.queueDepth.Set(float64(n))
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	p.cacheLookups.WithLabelValues(res).Inc()
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder receives transformation and ingest metrics. The pipeline only
// talks to this interface so metrics stay optional.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveTransformDuration(docType string, d time.Duration)
	IncTransformOutcome(docType string, result ResultLabel)
	SetQueueDepth(n int)
	IncCacheLookup(hit bool)
}

// NoopRecorder is the default when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)     {}
func (NoopRecorder) IncStageResult(string, ResultLabel)             {}
func (NoopRecorder) ObserveTransformDuration(string, time.Duration) {}
func (NoopRecorder) IncTransformOutcome(string, ResultLabel)        {}
func (NoopRecorder) SetQueueDepth(int)                              {}
func (NoopRecorder) IncCacheLookup(bool)                            {}

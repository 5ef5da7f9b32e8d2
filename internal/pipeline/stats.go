package pipeline

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	docType    string
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates transformation latencies within the window.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// StatsReport is the overall snapshot plus one per document type.
type StatsReport struct {
	Window string                   `json:"window"`
	All    StatsSnapshot            `json:"all"`
	ByType map[string]StatsSnapshot `json:"by_type"`
}

// TransformStats tracks recent transformation latencies within a rolling window.
type TransformStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewTransformStats(maxAge time.Duration) *TransformStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &TransformStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one transformation outcome.
func (s *TransformStats) Record(docType string, d time.Duration, failed bool) {
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		docType:    docType,
		durationMs: ms,
		failed:     failed,
	})
}

func (s *TransformStats) Report() StatsReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())

	byType := map[string][]sample{}
	for _, sm := range s.samples {
		byType[sm.docType] = append(byType[sm.docType], sm)
	}
	report := StatsReport{
		Window: s.maxAge.String(),
		All:    summarize(s.samples),
		ByType: make(map[string]StatsSnapshot, len(byType)),
	}
	for t, samples := range byType {
		report.ByType[t] = summarize(samples)
	}
	return report
}

func (s *TransformStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	keep := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	s.samples = keep
}

func summarize(samples []sample) StatsSnapshot {
	if len(samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(samples))
	var sum int64
	failures := 0
	for _, sm := range samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		if sm.failed {
			failures++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:    len(values),
		Failures: failures,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
	}
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(rank-float64(lower))
}

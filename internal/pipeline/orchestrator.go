package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/ubreader/internal/cache"
	"github.com/dgallion1/ubreader/internal/cms"
	"github.com/dgallion1/ubreader/internal/config"
	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/metrics"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/transform"
)

const cleanupInterval = 5 * time.Minute

// Orchestrator manages the asynchronous ingest queue and the synchronous
// transform path that shares its cache and stats.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	worker  *Worker
	cache   cache.Cache
	cms     *cms.Client
	stats   *TransformStats
	metrics metrics.Recorder
	log     *slog.Logger
	cfg     config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. cmsClient may be nil.
func NewOrchestrator(cfg config.Config, t *transform.Transformer, c cache.Cache, cmsClient *cms.Client, rec metrics.Recorder, log *slog.Logger) *Orchestrator {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	stats := NewTransformStats(cfg.StatsWindow)
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		worker:  NewWorker(t, c, cmsClient, stats, rec, log),
		cache:   c,
		cms:     cmsClient,
		stats:   stats,
		metrics: rec,
		log:     log,
		cfg:     cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for n, workers := 0, o.cfg.WorkerCount; n < workers; n++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.metrics.SetQueueDepth(len(o.queue))
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store and cache cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.cleanup()
			}
		}
	}()
}

func (o *Orchestrator) cleanup() {
	o.jobs.Cleanup()
	if m, ok := o.cache.(*cache.Memory); ok {
		m.Cleanup()
	}
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	if job.Source == SourceCMS && o.cms == nil {
		return ErrCMSDisabled
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.metrics.SetQueueDepth(len(o.queue))
		return nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queued")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Transform runs a transformation synchronously through the cache.
func (o *Orchestrator) Transform(ctx context.Context, docType parser.DocumentType, data []byte, opts doctree.TransformOptions) (*Outcome, error) {
	return o.worker.Transform(ctx, docType, data, opts, nil)
}

// Document returns a previously transformed document by ID.
func (o *Orchestrator) Document(ctx context.Context, docID string) (*doctree.TransformedDocument, bool, error) {
	if o.cache == nil {
		return nil, false, nil
	}
	return o.cache.Get(ctx, docID)
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the rolling transformation latency report.
func (o *Orchestrator) Stats() StatsReport {
	return o.stats.Report()
}

// CMSClient returns the CMS client for direct use by API handlers. It is nil
// when no CMS is configured.
func (o *Orchestrator) CMSClient() *cms.Client {
	return o.cms
}

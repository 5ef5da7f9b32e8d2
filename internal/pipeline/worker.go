package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/dgallion1/ubreader/internal/cache"
	"github.com/dgallion1/ubreader/internal/cms"
	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/metrics"
	"github.com/dgallion1/ubreader/internal/parser"
	"github.com/dgallion1/ubreader/internal/transform"
)

// ErrCMSDisabled is returned for CMS jobs when no CMS is configured.
var ErrCMSDisabled = errors.New("cms source not configured")

// Outcome is the result of one cached transformation.
type Outcome struct {
	DocID    string
	Document *doctree.TransformedDocument
	Cached   bool
}

// Worker runs transformations through the document cache.
type Worker struct {
	transformer *transform.Transformer
	cache       cache.Cache
	cms         *cms.Client
	stats       *TransformStats
	metrics     metrics.Recorder
	log         *slog.Logger
}

func NewWorker(t *transform.Transformer, c cache.Cache, cmsClient *cms.Client, stats *TransformStats, rec metrics.Recorder, log *slog.Logger) *Worker {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Worker{
		transformer: t,
		cache:       c,
		cms:         cmsClient,
		stats:       stats,
		metrics:     rec,
		log:         log,
	}
}

// Transform returns the cached document for the input if there is one and
// otherwise transforms it and caches the result. Cache failures are logged
// and never fail the transformation.
func (w *Worker) Transform(ctx context.Context, docType parser.DocumentType, data []byte, opts doctree.TransformOptions, progress transform.ProgressFunc) (*Outcome, error) {
	docID := DocumentID(docType, opts, data)
	log := w.log.With("doc_id", docID, "document_type", docType)

	if w.cache != nil {
		doc, ok, err := w.cache.Get(ctx, docID)
		if err != nil {
			log.Warn("cache lookup failed", "error", err)
		}
		w.metrics.IncCacheLookup(ok)
		if ok {
			return &Outcome{DocID: docID, Document: doc, Cached: true}, nil
		}
	}

	src := parser.SniffSource(docType, data)
	start := time.Now()
	doc, err := w.transformer.TransformWithProgress(ctx, src, docType, &opts, progress)
	if w.stats != nil && !rejected(err) {
		w.stats.Record(string(docType), time.Since(start), err != nil)
	}
	if err != nil {
		return nil, err
	}

	if w.cache != nil {
		if err := w.cache.Set(ctx, docID, doc); err != nil {
			log.Warn("cache store failed", "error", err)
		}
	}
	return &Outcome{DocID: docID, Document: doc}, nil
}

// rejected reports whether err refused the input before any stage ran.
func rejected(err error) bool {
	return errors.Is(err, parser.ErrUnsupportedType) || errors.Is(err, parser.ErrPayloadMismatch)
}

// Process runs a queued job to a terminal status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source)
	defer job.ReleaseFileData()

	if job.Source == SourceCMS {
		job.SetStatus(StatusFetching, "fetching")
		if err := w.fetch(ctx, job, log); err != nil {
			log.Error("cms fetch failed", "slug", job.CMSSlug, "error", err)
			job.AddError(fmt.Sprintf("fetch: %s", err))
			job.SetStatus(StatusFailed, "fetching")
			return
		}
	}

	docType, opts, data := job.Input()
	phase := "queued"
	progress := func(s transform.Stage) {
		phase = string(s)
		job.SetStatus(statusForStage(s), phase)
	}

	out, err := w.Transform(ctx, docType, data, opts, progress)
	if err != nil {
		log.Error("transform failed", "phase", phase, "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}

	if out.Cached {
		job.SetCached()
	}
	log.Info("transform complete", "doc_id", out.DocID, "cached", out.Cached)
	job.SetStatus(StatusCompleted, "done")
}

// fetch loads a CMS entry into the job. Entry metadata and publication type
// fill in whatever the caller left unset.
func (w *Worker) fetch(ctx context.Context, job *Job, log *slog.Logger) error {
	if w.cms == nil {
		return ErrCMSDisabled
	}

	entry, err := w.cms.FetchWithRetry(ctx, job.CMSSlug, func(err error, wait time.Duration) {
		log.Warn("retryable cms error", "slug", job.CMSSlug, "wait", wait, "error", err)
	})
	if err != nil {
		return err
	}

	docType, err := parser.ParseType(entry.DocumentType)
	if err != nil {
		return err
	}

	data := []byte(entry.Body)
	if docType.Binary() {
		if data, err = base64.StdEncoding.DecodeString(entry.Body); err != nil {
			return fmt.Errorf("decode %s body: %w", docType, err)
		}
	}

	_, opts, _ := job.Input()
	opts = mergeEntryOptions(opts, entry)
	job.SetSource(docType, data, opts)
	return nil
}

func mergeEntryOptions(opts doctree.TransformOptions, entry *cms.Entry) doctree.TransformOptions {
	merged := make(map[string]any, len(entry.Metadata)+len(opts.Metadata)+1)
	if entry.Title != "" {
		merged["title"] = entry.Title
	}
	maps.Copy(merged, entry.Metadata)
	maps.Copy(merged, opts.Metadata)
	if len(merged) > 0 {
		opts.Metadata = merged
	}

	if opts.PublicationType == "" && entry.PublicationType != "" {
		if pt, err := doctree.ParsePublicationType(entry.PublicationType); err == nil {
			opts.PublicationType = pt
		}
	}
	return opts
}

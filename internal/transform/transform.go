package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/dgallion1/ubreader/internal/metrics"
	"github.com/dgallion1/ubreader/internal/parser"
)

// Stage names one step of a transformation.
type Stage string

const (
	StageParse     Stage = "parse"
	StageNormalize Stage = "normalize"
	StageEnrich    Stage = "enrich"
	StageValidate  Stage = "validate"
)

// ProgressFunc is told when each stage starts.
type ProgressFunc func(Stage)

// Transformer runs the parse, normalize, enrich and validate stages. It holds
// no per-call state, so one Transformer may serve concurrent calls.
type Transformer struct {
	log        *slog.Logger
	metrics    metrics.Recorder
	parserOpts parser.Options
}

// New creates a Transformer. A nil log or recorder falls back to the default
// logger and a no-op recorder.
func New(log *slog.Logger, rec metrics.Recorder, parserOpts parser.Options) *Transformer {
	if log == nil {
		log = slog.Default()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if parserOpts.Log == nil {
		parserOpts.Log = log
	}
	return &Transformer{log: log, metrics: rec, parserOpts: parserOpts}
}

// TransformContent converts src, declared as docType, into a TransformedDocument.
// A nil opts means DefaultOptions. Unsupported types and payload mismatches
// are rejected before anything is parsed.
func (t *Transformer) TransformContent(ctx context.Context, src parser.Source, docType parser.DocumentType, opts *doctree.TransformOptions) (*doctree.TransformedDocument, error) {
	return t.TransformWithProgress(ctx, src, docType, opts, nil)
}

// TransformWithProgress is TransformContent with a stage callback.
func (t *Transformer) TransformWithProgress(ctx context.Context, src parser.Source, docType parser.DocumentType, opts *doctree.TransformOptions, progress ProgressFunc) (*doctree.TransformedDocument, error) {
	p, err := parser.ForType(docType, t.parserOpts)
	if err != nil {
		return nil, err
	}
	if err := parser.CheckPayload(docType, src); err != nil {
		return nil, err
	}

	options := doctree.DefaultOptions()
	if opts != nil {
		options = *opts
	}

	start := time.Now()
	doc, err := t.run(ctx, p, src, options, progress)
	t.metrics.ObserveTransformDuration(string(docType), time.Since(start))
	t.metrics.IncTransformOutcome(string(docType), resultLabel(err))
	if err != nil {
		t.log.Debug("transform failed", "document_type", docType, "error", err)
		return nil, err
	}
	return doc, nil
}

func (t *Transformer) run(ctx context.Context, p parser.Parser, src parser.Source, opts doctree.TransformOptions, progress ProgressFunc) (*doctree.TransformedDocument, error) {
	var draft doctree.Draft

	err := t.stage(ctx, StageParse, progress, func() error {
		res, err := p.Parse(ctx, src)
		if err != nil {
			return fmt.Errorf("parse: %w", err)
		}
		draft = doctree.Draft{Content: res.Content, HTML: res.HTML, Text: res.Text, Fields: res.Fields}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = t.stage(ctx, StageNormalize, progress, func() error {
		draft.Content = NormalizeContent(draft.Content)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = t.stage(ctx, StageEnrich, progress, func() error {
		draft = EnrichMetadata(draft, opts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var doc *doctree.TransformedDocument
	err = t.stage(ctx, StageValidate, progress, func() error {
		if err := ValidateContentStructure(draft.Content); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		doc = &doctree.TransformedDocument{
			Content:         draft.Content,
			Metadata:        CoerceMetadata(draft.Fields),
			PublicationType: opts.PublicationType,
			HTML:            draft.HTML,
			Text:            draft.Text,
		}
		if opts.Sanitize {
			doc.Content = SanitizeContent(doc.Content)
			doc.HTML = SanitizeHTML(doc.HTML)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// stage runs fn unless ctx is done, recording its duration and result.
func (t *Transformer) stage(ctx context.Context, s Stage, progress ProgressFunc, fn func() error) error {
	if err := ctx.Err(); err != nil {
		t.metrics.IncStageResult(string(s), metrics.ResultCanceled)
		return err
	}
	if progress != nil {
		progress(s)
	}
	start := time.Now()
	err := fn()
	t.metrics.ObserveStageDuration(string(s), time.Since(start))
	t.metrics.IncStageResult(string(s), resultLabel(err))
	return err
}

func resultLabel(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"linkbrief/internal/classifier"
	"linkbrief/internal/domain"
	"linkbrief/internal/extractor"
	"linkbrief/internal/summarizer"
)

type Extractor interface {
	Extract(ctx context.Context, category domain.Category, rawURL string) (*domain.Document, error)
}

type Augmenter interface {
	ShouldAugment(doc *domain.Document) bool
	Augment(ctx context.Context, doc *domain.Document) domain.Context
}

// Orchestrator runs classify, extract, augment and summarize strictly in
// sequence. Every failure leaves as a *Failure.
type Orchestrator struct {
	extractor  Extractor
	augmenter  Augmenter
	summarizer summarizer.Summarizer
	log        *slog.Logger
	newID      func() string
}

// New builds an Orchestrator. A nil augmenter disables the augment stage.
func New(
	e Extractor,
	a Augmenter,
	s summarizer.Summarizer,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		extractor:  e,
		augmenter:  a,
		summarizer: s,
		log:        log,
		newID:      uuid.NewString,
	}
}

// Run summarizes the first http(s) link in text. The returned error is always
// a *Failure.
func (o *Orchestrator) Run(ctx context.Context, text string) (*Result, error) {
	requestID := o.newID()
	log := o.log.With("requestID", requestID)

	rawURL, category := classifier.Classify(text)
	log.InfoContext(ctx, "Classified message",
		"url", rawURL,
		"category", category.String())

	if category == domain.CategoryUnsupported {
		return nil, o.fail(ctx, log, &Failure{
			Stage:  StageClassify,
			Kind:   KindUnsupportedContent,
			Detail: "no supported http(s) URL in message (url = " + rawURL + ")",
		}, nil)
	}

	doc, err := o.extractor.Extract(ctx, category, rawURL)
	if err != nil {
		return nil, o.fail(ctx, log, &Failure{
			Stage:  StageExtract,
			Kind:   extractionKind(ctx, err),
			Detail: err.Error(),
		}, err)
	}

	log.InfoContext(ctx, "Extracted document",
		"url", doc.SourceURL,
		"textLength", len(doc.RawText),
		"title", doc.Title)

	var extra domain.Context
	if o.augmenter != nil && o.augmenter.ShouldAugment(doc) {
		extra = o.augmenter.Augment(ctx, doc)

		log.InfoContext(ctx, "Augmented document",
			"url", doc.SourceURL,
			"contextLength", len(extra.Text))
	}

	res, err := o.summarizer.Summarize(ctx, summarizer.Input{Document: doc, Context: extra})
	if err != nil {
		kind := KindAllBackendsExhausted
		if ctx.Err() != nil {
			kind = KindCanceled
		}

		return nil, o.fail(ctx, log, &Failure{
			Stage:  StageSummarize,
			Kind:   kind,
			Detail: err.Error(),
		}, err)
	}

	log.InfoContext(ctx, "Summarized document",
		"url", doc.SourceURL,
		"backend", res.Backend,
		"attempts", res.Attempts,
		"framing", res.Framing.String())

	return &Result{
		RequestID: requestID,
		URL:       doc.SourceURL,
		Category:  doc.Category,
		Title:     doc.Title,
		Author:    doc.Author,
		Summary:   res.Summary,
		Backend:   res.Backend,
		Augmented: !extra.Empty(),
	}, nil
}

func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, f *Failure, err error) *Failure {
	level := slog.LevelError
	if f.Kind == KindUnsupportedContent || f.Kind == KindCanceled {
		level = slog.LevelInfo
	}

	log.Log(ctx, level, "Failed to summarize link",
		"error", err,
		"stage", string(f.Stage),
		"kind", string(f.Kind),
		"detail", f.Detail)

	return f
}

func extractionKind(ctx context.Context, err error) ErrorKind {
	if ctx.Err() != nil {
		return KindCanceled
	}

	if errors.Is(err, extractor.ErrUnsupported) {
		return KindUnsupportedContent
	}

	var extractErr *extractor.Error
	if !errors.As(err, &extractErr) {
		return KindExtractionParseFailure
	}

	switch extractErr.Kind {
	case extractor.KindNotFound:
		return KindExtractionNotFound
	case extractor.KindTimeout:
		return KindExtractionTimeout
	case extractor.KindAccessDenied:
		return KindExtractionAccessDenied
	default:
		return KindExtractionParseFailure
	}
}

package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"linkbrief/internal/domain"
)

const DefaultTimeout = 30 * time.Second

// Extractor turns one URL into a Document with a single outbound fetch.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*domain.Document, error)
}

type Registry struct {
	extractors map[domain.Category]Extractor
	timeout    time.Duration
	log        *slog.Logger
}

func NewRegistry(timeout time.Duration, log *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Registry{
		extractors: make(map[domain.Category]Extractor),
		timeout:    timeout,
		log:        log,
	}
}

// Options carries credentials and limits for the built-in extractors.
type Options struct {
	MaxBodyBytes     int64
	MinWebpageChars  int
	FirecrawlAPIKey  string
	FirecrawlBaseURL string
	TwitterAPIKey    string
	TwitterBaseURL   string
	TranscriptAPIURL string
	TranscriptAPIKey string
}

// NewDefaultRegistry wires one extractor per supported category.
func NewDefaultRegistry(
	opts Options,
	client *http.Client,
	timeout time.Duration,
	log *slog.Logger,
) *Registry {
	f := newFetcher(client, opts.MaxBodyBytes, log)

	webpage := NewWebpage(f, NewFirecrawl(f, opts.FirecrawlAPIKey, opts.FirecrawlBaseURL), opts.MinWebpageChars, log)

	r := NewRegistry(timeout, log)
	r.Register(domain.CategoryWebpage, webpage)
	r.Register(domain.CategoryPDF, NewPDF(f))
	r.Register(domain.CategorySocialPostA, NewTwitter(f, opts.TwitterAPIKey, opts.TwitterBaseURL, log))
	r.Register(domain.CategorySocialPostB, NewLinkedIn(f))
	r.Register(domain.CategoryVideo, NewYouTube(f, opts.TranscriptAPIURL, opts.TranscriptAPIKey, log))
	r.Register(domain.CategoryGenericText, NewPlainText(f, webpage))

	return r
}

func (r *Registry) Register(category domain.Category, e Extractor) {
	if category == domain.CategoryUnsupported || e == nil {
		return
	}

	r.extractors[category] = e
}

type extractResult struct {
	doc *domain.Document
	err error
}

// Extract runs the category's extractor under the registry timeout. Failures
// are returned as *Error; ErrUnsupported is returned before any fetch when the
// category has no extractor.
func (r *Registry) Extract(
	ctx context.Context,
	category domain.Category,
	rawURL string,
) (*domain.Document, error) {
	e, ok := r.extractors[category]
	if !ok {
		return nil, fmt.Errorf("extract (category = %s): %w", category, ErrUnsupported)
	}

	extractCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultCh := make(chan extractResult, 1)
	go func() {
		doc, err := e.Extract(extractCtx, rawURL)
		resultCh <- extractResult{doc: doc, err: err}
	}()

	var res extractResult
	select {
	case res = <-resultCh:
	case <-extractCtx.Done():
		res = extractResult{err: extractCtx.Err()}
	}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return nil, fmt.Errorf("extract: %w", ctx.Err())
	}

	if res.err != nil {
		return nil, wrapError(rawURL, res.err)
	}

	return r.normalize(res.doc, category, rawURL)
}

func (r *Registry) normalize(
	doc *domain.Document,
	category domain.Category,
	rawURL string,
) (*domain.Document, error) {
	if doc == nil {
		return nil, wrapError(rawURL, ErrEmptyText)
	}

	normalized := *doc
	normalized.RawText = strings.TrimSpace(doc.RawText)
	normalized.Title = strings.TrimSpace(doc.Title)
	normalized.Author = strings.TrimSpace(doc.Author)
	// Extractors may report a different category once they have seen the
	// content, such as a PDF served from an extensionless URL.
	if normalized.Category == domain.CategoryUnsupported {
		normalized.Category = category
	}

	if normalized.SourceURL == "" {
		normalized.SourceURL = rawURL
	}

	if normalized.RawText == "" {
		return nil, wrapError(rawURL, ErrEmptyText)
	}

	return &normalized, nil
}

package augmenter

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"linkbrief/internal/domain"
)

const (
	DefaultThreshold = 3000
	DefaultTimeout   = 15 * time.Second

	maxContextChars = 6000
)

type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type Augmenter struct {
	searcher  Searcher
	threshold int
	always    map[domain.Category]struct{}
	timeout   time.Duration
	log       *slog.Logger
}

// New returns an Augmenter. A nil searcher is allowed; every Augment call then
// yields an empty Context.
func New(
	searcher Searcher,
	threshold int,
	always []domain.Category,
	timeout time.Duration,
	log *slog.Logger,
) *Augmenter {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	set := make(map[domain.Category]struct{}, len(always))
	for _, c := range always {
		set[c] = struct{}{}
	}

	return &Augmenter{
		searcher:  searcher,
		threshold: threshold,
		always:    set,
		timeout:   timeout,
		log:       log,
	}
}

func (a *Augmenter) ShouldAugment(doc *domain.Document) bool {
	if doc == nil {
		return false
	}

	if _, ok := a.always[doc.Category]; ok {
		return true
	}

	return utf8.RuneCountInString(doc.RawText) < a.threshold
}

// Augment never fails: search errors are logged and produce an empty Context.
func (a *Augmenter) Augment(ctx context.Context, doc *domain.Document) domain.Context {
	if a.searcher == nil || doc == nil {
		return domain.Context{}
	}

	query := doc.Title
	if query == "" {
		query = doc.SourceURL
	}

	searchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.searcher.Search(searchCtx, query)
	if err != nil {
		a.log.WarnContext(ctx, "Failed to augment document, continuing without context",
			"error", err,
			"url", doc.SourceURL,
			"category", doc.Category.String())

		return domain.Context{}
	}

	return domain.Context{Text: truncateRunes(text, maxContextChars)}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit])
}

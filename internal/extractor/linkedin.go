package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"linkbrief/internal/domain"
)

const linkedInPostTextSelector = ".attributed-text-segment-list__content, " +
	".feed-shared-update-v2__description, article .commentary"

// LinkedIn reads the public rendering of a post.
type LinkedIn struct {
	fetch *fetcher
}

func NewLinkedIn(f *fetcher) *LinkedIn {
	return &LinkedIn{fetch: f}
}

func (l *LinkedIn) Extract(ctx context.Context, rawURL string) (*domain.Document, error) {
	res, err := l.fetch.get(ctx, rawURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	var fragments []string
	page.Find(linkedInPostTextSelector).Each(func(_ int, s *goquery.Selection) {
		s.Find("br").Each(func(_ int, br *goquery.Selection) {
			br.ReplaceWithHtml("\n")
		})

		if fragment := strings.TrimSpace(s.Text()); fragment != "" {
			fragments = append(fragments, fragment)
		}
	})

	text := strings.Join(fragments, "\n\n")
	if text == "" {
		text = metaContent(page, "og:description")
	}

	if text == "" {
		return nil, fmt.Errorf("find post text: %w", ErrEmptyText)
	}

	author := strings.TrimSpace(page.Find("meta[name='author']").AttrOr("content", ""))
	if author == "" {
		author = strings.TrimSpace(page.Find("a[data-tracking-control-name='public_post_feed-actor-name']").First().Text())
	}

	return &domain.Document{
		SourceURL: res.finalURL,
		RawText:   text,
		Title:     metaContent(page, "og:title"),
		Author:    author,
	}, nil
}

func metaContent(page *goquery.Document, property string) string {
	selector := fmt.Sprintf("meta[property='%s'], meta[name='%s']", property, property)

	return strings.TrimSpace(page.Find(selector).First().AttrOr("content", ""))
}

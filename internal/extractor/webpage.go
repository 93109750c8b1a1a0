package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"

	"linkbrief/internal/domain"
)

const DefaultMinWebpageChars = 200

//nolint:gochecknoglobals // Compiled once, read-only.
var blankLinesRe = regexp.MustCompile(`\n\s*\n`)

const noiseSelector = "script, style, noscript, nav, footer, header, aside, form, iframe, svg"

type Webpage struct {
	fetch     *fetcher
	converter *md.Converter
	firecrawl *Firecrawl
	minChars  int
	log       *slog.Logger
}

func NewWebpage(f *fetcher, firecrawl *Firecrawl, minChars int, log *slog.Logger) *Webpage {
	if minChars <= 0 {
		minChars = DefaultMinWebpageChars
	}

	return &Webpage{
		fetch:     f,
		converter: md.NewConverter("", true, nil),
		firecrawl: firecrawl,
		minChars:  minChars,
		log:       log,
	}
}

func (w *Webpage) Extract(ctx context.Context, rawURL string) (*domain.Document, error) {
	res, basicErr := w.fetch.get(ctx, rawURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})

	var doc *domain.Document
	if basicErr == nil {
		doc, basicErr = w.parse(res)
	}

	basicLen := 0
	if doc != nil {
		basicLen = len(doc.RawText)
	}

	if basicLen >= w.minChars || !w.firecrawl.Enabled() {
		if basicErr != nil {
			return nil, basicErr
		}

		return doc, nil
	}

	w.log.WarnContext(ctx, "Basic scrape is insufficient, trying Firecrawl",
		"url", rawURL,
		"textLength", basicLen,
		"minChars", w.minChars,
		"error", basicErr)

	scraped, err := w.firecrawl.Scrape(ctx, rawURL)
	if err != nil {
		w.log.WarnContext(ctx, "Firecrawl scrape failed",
			"error", err,
			"url", rawURL,
			"textLength", basicLen)

		if doc != nil {
			return doc, nil
		}

		return nil, basicErr
	}

	if doc != nil && scraped.Title == "" {
		scraped.Title = doc.Title
		scraped.Author = doc.Author
	}

	return scraped, nil
}

func (w *Webpage) parse(res *fetchResult) (*domain.Document, error) {
	if isPDF(res) {
		return pdfDocument(res)
	}

	if res.contentType != "" &&
		!strings.Contains(res.contentType, "html") &&
		!strings.HasPrefix(res.contentType, "text/") {
		return nil, fmt.Errorf("parse webpage (type = %s): %w", res.contentType, ErrUnsupportedContentType)
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	title, author := pageMetadata(res.body, page)

	page.Find(noiseSelector).Remove()

	content := page.Find("main").First()
	if content.Length() == 0 {
		content = page.Find("article").First()
	}
	if content.Length() == 0 {
		content = page.Find("body").First()
	}

	text := collapseBlankLines(w.converter.Convert(content))
	if text == "" {
		return nil, fmt.Errorf("convert webpage: %w", ErrEmptyText)
	}

	return &domain.Document{
		SourceURL: res.finalURL,
		RawText:   text,
		Title:     title,
		Author:    author,
	}, nil
}

func pageMetadata(body []byte, page *goquery.Document) (string, string) {
	var title string

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(body)); err == nil {
		title = strings.TrimSpace(og.Title)
	}

	if title == "" {
		title = strings.TrimSpace(page.Find("title").First().Text())
	}

	author := strings.TrimSpace(page.Find("meta[name='author']").AttrOr("content", ""))
	if author == "" {
		author = strings.TrimSpace(page.Find("meta[property='article:author']").AttrOr("content", ""))
	}

	return title, author
}

func collapseBlankLines(text string) string {
	return strings.TrimSpace(blankLinesRe.ReplaceAllString(text, "\n\n"))
}

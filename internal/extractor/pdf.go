package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"linkbrief/internal/domain"
)

type PDF struct {
	fetch *fetcher
}

func NewPDF(f *fetcher) *PDF {
	return &PDF{fetch: f}
}

func (p *PDF) Extract(ctx context.Context, rawURL string) (*domain.Document, error) {
	res, err := p.fetch.get(ctx, rawURL, map[string]string{
		"Accept": "application/pdf,*/*;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	return pdfDocument(res)
}

func pdfDocument(res *fetchResult) (*domain.Document, error) {
	text, title, err := readPDF(res.body)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}

	if text == "" {
		return nil, fmt.Errorf("read PDF: %w", ErrEmptyText)
	}

	return &domain.Document{
		SourceURL: res.finalURL,
		Category:  domain.CategoryPDF,
		RawText:   text,
		Title:     title,
	}, nil
}

func isPDF(res *fetchResult) bool {
	return res.contentType == "application/pdf" || bytes.HasPrefix(res.body, []byte("%PDF-"))
}

// readPDF recovers from panics raised by the parser on malformed input.
func readPDF(body []byte) (text string, title string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", "", fmt.Errorf("create reader: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", "", fmt.Errorf("get plain text: %w", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", "", fmt.Errorf("read plain text: %w", err)
	}

	title = strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())

	return collapseBlankLines(string(raw)), title, nil
}

package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"linkbrief/internal/domain"
)

const defaultFirecrawlBaseURL = "https://api.firecrawl.dev"

// Firecrawl re-scrapes pages whose plain HTML yields too little text.
// A Firecrawl without an API key is disabled.
type Firecrawl struct {
	fetch   *fetcher
	apiKey  string
	baseURL string
}

func NewFirecrawl(f *fetcher, apiKey, baseURL string) *Firecrawl {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultFirecrawlBaseURL
	}

	return &Firecrawl{fetch: f, apiKey: strings.TrimSpace(apiKey), baseURL: baseURL}
}

func (fc *Firecrawl) Enabled() bool {
	return fc != nil && fc.apiKey != ""
}

type firecrawlResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title     string `json:"title"`
			Author    string `json:"author"`
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	} `json:"data"`
}

func (fc *Firecrawl) Scrape(ctx context.Context, rawURL string) (*domain.Document, error) {
	if !fc.Enabled() {
		return nil, fmt.Errorf("firecrawl: %w", ErrMissingCredentials)
	}

	payload, err := json.Marshal(map[string]any{
		"url":             rawURL,
		"formats":         []string{"markdown"},
		"onlyMainContent": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fc.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+fc.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := fc.fetch.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl scrape: %w", err)
	}

	var decoded firecrawlResponse
	if err = json.Unmarshal(res.body, &decoded); err != nil {
		return nil, fmt.Errorf("decode firecrawl response: %w", err)
	}

	if !decoded.Success {
		return nil, fmt.Errorf("firecrawl scrape (error = %s): %w", decoded.Error, ErrEmptyText)
	}

	text := collapseBlankLines(decoded.Data.Markdown)
	if text == "" {
		return nil, fmt.Errorf("firecrawl scrape: %w", ErrEmptyText)
	}

	sourceURL := strings.TrimSpace(decoded.Data.Metadata.SourceURL)
	if sourceURL == "" {
		sourceURL = rawURL
	}

	return &domain.Document{
		SourceURL: sourceURL,
		RawText:   text,
		Title:     strings.TrimSpace(decoded.Data.Metadata.Title),
		Author:    strings.TrimSpace(decoded.Data.Metadata.Author),
	}, nil
}

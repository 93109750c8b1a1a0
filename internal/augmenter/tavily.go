package augmenter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	defaultTavilyBaseURL    = "https://api.tavily.com"
	defaultTavilyMaxResults = 3
	maxErrorBodyBytes       = 512
)

var ErrNoAPIKey = errors.New("search API key is not configured")

// Tavily implements Searcher on top of the Tavily search API.
type Tavily struct {
	client     *http.Client
	apiKey     string
	baseURL    string
	maxResults int
	log        *slog.Logger
}

func NewTavily(client *http.Client, apiKey, baseURL string, log *slog.Logger) *Tavily {
	if client == nil {
		client = http.DefaultClient
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}

	return &Tavily{
		client:     client,
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    baseURL,
		maxResults: defaultTavilyMaxResults,
		log:        log,
	}
}

type tavilyRequest struct {
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns the results joined as title, URL and content blocks. No
// results is an empty string, not an error.
func (t *Tavily) Search(ctx context.Context, query string) (string, error) {
	if t.apiKey == "" {
		return "", ErrNoAPIKey
	}

	payload, err := json.Marshal(tavilyRequest{
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  t.maxResults,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			t.log.ErrorContext(ctx, "Failed to close response body",
				"error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return "", fmt.Errorf("unexpected status: %d (body = %s)", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded tavilyResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	blocks := make([]string, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			continue
		}

		blocks = append(blocks, strings.TrimSpace(r.Title)+"\n"+strings.TrimSpace(r.URL)+"\n"+content)
	}

	return strings.Join(blocks, "\n\n"), nil
}

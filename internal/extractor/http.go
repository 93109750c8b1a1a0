package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	DefaultMaxBodyBytes int64 = 10 << 20
)

type fetcher struct {
	client   *http.Client
	maxBytes int64
	log      *slog.Logger
}

func newFetcher(client *http.Client, maxBytes int64, log *slog.Logger) *fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	return &fetcher{client: client, maxBytes: maxBytes, log: log}
}

type fetchResult struct {
	body        []byte
	contentType string
	finalURL    string
}

func (f *fetcher) get(
	ctx context.Context,
	rawURL string,
	headers map[string]string,
) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return f.do(ctx, req)
}

func (f *fetcher) do(ctx context.Context, req *http.Request) (*fetchResult, error) {
	resp, err := f.client.Do(req) //nolint:gosec // URL comes from the classified message.
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", req.URL.String())
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body (limit = %d): %w", f.maxBytes, ErrBodyTooLarge)
	}

	finalURL := req.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &fetchResult{
		body:        body,
		contentType: mediaType(resp.Header.Get("Content-Type")),
		finalURL:    finalURL,
	}, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}

	parsed, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(header, ";")[0]))
	}

	return parsed
}

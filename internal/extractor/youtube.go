package extractor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"linkbrief/internal/domain"
)

const defaultYouTubeBaseURL = "https://www.youtube.com"

//nolint:gochecknoglobals // Compiled once, read-only.
var videoIDRe = regexp.MustCompile(`^[\w-]{6,}$`)

// YouTube combines the watch page description with a transcript when a
// transcript API is configured.
type YouTube struct {
	fetch            *fetcher
	watchBaseURL     string
	transcriptAPIURL string
	transcriptAPIKey string
	log              *slog.Logger
}

func NewYouTube(f *fetcher, transcriptAPIURL, transcriptAPIKey string, log *slog.Logger) *YouTube {
	return &YouTube{
		fetch:            f,
		watchBaseURL:     defaultYouTubeBaseURL,
		transcriptAPIURL: strings.TrimSpace(transcriptAPIURL),
		transcriptAPIKey: strings.TrimSpace(transcriptAPIKey),
		log:              log,
	}
}

func (y *YouTube) Extract(ctx context.Context, rawURL string) (*domain.Document, error) {
	videoID, err := extractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	watchURL := y.watchBaseURL + "/watch?v=" + videoID

	res, err := y.fetch.get(ctx, watchURL, map[string]string{
		"Accept": "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	title := metaContent(page, "og:title")
	if title == "" {
		title = metaContent(page, "title")
	}

	description := metaContent(page, "og:description")
	if description == "" {
		description = metaContent(page, "description")
	}

	author := strings.TrimSpace(page.Find("link[itemprop='name']").First().AttrOr("content", ""))

	transcript := ""
	if y.transcriptAPIURL != "" {
		transcript, err = y.fetchTranscript(ctx, watchURL)
		if err != nil {
			y.log.WarnContext(ctx, "Failed to fetch transcript, using description only",
				"error", err,
				"videoID", videoID)
		}
	}

	var b strings.Builder
	if description != "" {
		b.WriteString("Description:\n")
		b.WriteString(description)
	}
	if transcript != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Transcript:\n")
		b.WriteString(transcript)
	}

	if b.Len() == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrEmptyText)
	}

	return &domain.Document{
		SourceURL: watchURL,
		RawText:   b.String(),
		Title:     title,
		Author:    author,
	}, nil
}

func (y *YouTube) fetchTranscript(ctx context.Context, watchURL string) (string, error) {
	u, err := url.Parse(y.transcriptAPIURL)
	if err != nil {
		return "", fmt.Errorf("parse transcript API URL: %w", err)
	}

	q := u.Query()
	q.Set("url", watchURL)
	q.Set("text", "true")
	if y.transcriptAPIKey != "" {
		q.Set("api_key", y.transcriptAPIKey)
	}
	u.RawQuery = q.Encode()

	res, err := y.fetch.get(ctx, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}

	return strings.TrimSpace(string(res.body)), nil
}

func extractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	var id string

	switch {
	case strings.HasSuffix(u.Hostname(), "youtu.be"):
		id = strings.Trim(u.Path, "/")
	case u.Path == "/watch":
		id = u.Query().Get("v")
	default:
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && slices.Contains([]string{"shorts", "live", "embed", "v"}, parts[0]) {
			id = parts[1]
		}
	}

	if !videoIDRe.MatchString(id) {
		return "", fmt.Errorf("find video ID (URL = %s): %w", rawURL, ErrMalformedURL)
	}

	return id, nil
}

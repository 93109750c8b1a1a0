package extractor

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"linkbrief/internal/domain"
)

const defaultTwitterBaseURL = "https://api.twitterapi.io"

//nolint:gochecknoglobals // Compiled once, read-only.
var tweetIDRe = regexp.MustCompile(`/status(?:es)?/(\d+)`)

// Twitter reads a post and its author's conversation thread through
// twitterapi.io.
type Twitter struct {
	fetch   *fetcher
	apiKey  string
	baseURL string
	log     *slog.Logger
}

func NewTwitter(f *fetcher, apiKey, baseURL string, log *slog.Logger) *Twitter {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultTwitterBaseURL
	}

	return &Twitter{fetch: f, apiKey: strings.TrimSpace(apiKey), baseURL: baseURL, log: log}
}

type tweet struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	CreatedAt      string `json:"createdAt"`
	ConversationID string `json:"conversationId"`
	Author         struct {
		UserName string `json:"userName"`
		Name     string `json:"name"`
	} `json:"author"`
}

type tweetsResponse struct {
	Status string  `json:"status"`
	Msg    string  `json:"msg"`
	Tweets []tweet `json:"tweets"`
}

func (t *Twitter) Extract(ctx context.Context, rawURL string) (*domain.Document, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("twitter: %w", ErrMissingCredentials)
	}

	m := tweetIDRe.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return nil, fmt.Errorf("find tweet ID (URL = %s): %w", rawURL, ErrMalformedURL)
	}
	tweetID := m[1]

	root, err := t.fetchTweet(ctx, tweetID)
	if err != nil {
		return nil, fmt.Errorf("fetch tweet: %w", err)
	}

	tweets := []tweet{*root}

	if root.ConversationID != "" && root.ConversationID != tweetID {
		thread, threadErr := t.fetchThread(ctx, root.ConversationID)
		if threadErr != nil {
			t.log.WarnContext(ctx, "Failed to fetch conversation thread, using main post only",
				"error", threadErr,
				"tweetID", tweetID,
				"conversationID", root.ConversationID)
		}

		for _, item := range thread {
			if item.ID != tweetID {
				tweets = append(tweets, item)
			}
		}
	}

	slices.SortStableFunc(tweets, func(a, b tweet) int {
		return cmp.Compare(parseTweetTime(a.CreatedAt).Unix(), parseTweetTime(b.CreatedAt).Unix())
	})

	title := "Post"
	author := strings.TrimSpace(root.Author.UserName)
	if author != "" {
		author = "@" + author
		title = "Post by " + author
	}

	return &domain.Document{
		SourceURL: rawURL,
		RawText:   formatThread(tweets),
		Title:     title,
		Author:    author,
	}, nil
}

func (t *Twitter) fetchTweet(ctx context.Context, tweetID string) (*tweet, error) {
	q := url.Values{}
	q.Set("tweet_ids", tweetID)

	decoded, err := t.call(ctx, "/twitter/tweets", q)
	if err != nil {
		return nil, err
	}

	if decoded.Status != "success" || len(decoded.Tweets) == 0 {
		return nil, fmt.Errorf("tweet %s (status = %s, msg = %s): %w",
			tweetID, decoded.Status, decoded.Msg, ErrEmptyText)
	}

	return &decoded.Tweets[0], nil
}

func (t *Twitter) fetchThread(ctx context.Context, conversationID string) ([]tweet, error) {
	q := url.Values{}
	q.Set("query", "conversation_id:"+conversationID)

	decoded, err := t.call(ctx, "/twitter/tweet/advanced_search", q)
	if err != nil {
		return nil, err
	}

	if decoded.Status != "" && decoded.Status != "success" {
		return nil, fmt.Errorf("conversation %s (status = %s, msg = %s)",
			conversationID, decoded.Status, decoded.Msg)
	}

	return decoded.Tweets, nil
}

func (t *Twitter) call(ctx context.Context, path string, q url.Values) (*tweetsResponse, error) {
	res, err := t.fetch.get(ctx, t.baseURL+path+"?"+q.Encode(), map[string]string{
		"X-API-Key": t.apiKey,
		"Accept":    "application/json",
	})
	if err != nil {
		return nil, err
	}

	var decoded tweetsResponse
	if err = json.Unmarshal(res.body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &decoded, nil
}

// parseTweetTime maps unparsable timestamps to the epoch so they sort first.
func parseTweetTime(value string) time.Time {
	parsed, err := time.Parse(time.RubyDate, strings.TrimSpace(value))
	if err != nil {
		return time.Unix(0, 0).UTC()
	}

	return parsed
}

func formatThread(tweets []tweet) string {
	var b strings.Builder

	for i, item := range tweets {
		username := strings.TrimSpace(item.Author.UserName)
		if username == "" {
			username = "unknown_user"
		}

		createdAt := strings.TrimSpace(item.CreatedAt)
		if createdAt == "" {
			createdAt = "unknown time"
		}

		fmt.Fprintf(&b, "Tweet %d/%d by @%s (%s):\n%s\n---\n",
			i+1, len(tweets), username, createdAt, strings.TrimSpace(item.Text))
	}

	return strings.TrimSpace(b.String())
}

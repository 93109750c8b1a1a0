package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"linkbrief/internal/domain"
)

const defaultRawGitHubBaseURL = "https://raw.githubusercontent.com"

// PlainText serves raw text files such as README.md or notes.txt. HTML
// bodies, which code hosts serve for their file views, go to the webpage
// parser instead.
type PlainText struct {
	fetch         *fetcher
	html          *Webpage
	rawGitHubBase string
}

func NewPlainText(f *fetcher, html *Webpage) *PlainText {
	return &PlainText{
		fetch:         f,
		html:          html,
		rawGitHubBase: defaultRawGitHubBaseURL,
	}
}

func (p *PlainText) Extract(ctx context.Context, rawURL string) (*domain.Document, error) {
	target := rawURL
	if raw, ok := rawGitHubURL(rawURL, p.rawGitHubBase); ok {
		target = raw
	}

	res, err := p.fetch.get(ctx, target, map[string]string{
		"Accept": "text/plain,text/markdown;q=0.9,*/*;q=0.5",
	})
	if err != nil {
		return nil, err
	}

	if isHTML(res) {
		if p.html == nil {
			return nil, fmt.Errorf("read text (type = %s): %w", res.contentType, ErrUnsupportedContentType)
		}

		return p.html.parse(res)
	}

	if res.contentType != "" && !strings.HasPrefix(res.contentType, "text/") {
		return nil, fmt.Errorf("read text (type = %s): %w", res.contentType, ErrUnsupportedContentType)
	}

	if !utf8.Valid(res.body) {
		return nil, fmt.Errorf("read text: body is not valid UTF-8: %w", ErrUnsupportedContentType)
	}

	return &domain.Document{
		SourceURL: rawURL,
		RawText:   strings.TrimSpace(string(res.body)),
		Title:     path.Base(strings.SplitN(rawURL, "?", 2)[0]),
	}, nil
}

func isHTML(res *fetchResult) bool {
	switch res.contentType {
	case "text/html", "application/xhtml+xml":
		return true
	case "", "text/plain":
		return strings.HasPrefix(http.DetectContentType(res.body), "text/html")
	default:
		return false
	}
}

// rawGitHubURL maps github.com/<owner>/<repo>/blob/<ref>/<path> to the raw
// file host.
func rawGitHubURL(rawURL, base string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "github.com" {
		return "", false
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 5 || segments[2] != "blob" {
		return "", false
	}

	rest := append([]string{segments[0], segments[1]}, segments[3:]...)

	return strings.TrimRight(base, "/") + "/" + strings.Join(rest, "/"), true
}

package classifier

import (
	"net/url"
	"regexp"
	"strings"

	"linkbrief/internal/domain"

	"mvdan.cc/xurls/v2"
)

//nolint:gochecknoglobals // Compiled once, read-only.
var (
	anySchemeURLRe = xurls.Strict()

	shortFormSocialHosts = map[string]struct{}{
		"twitter.com": {},
		"x.com":       {},
	}

	longFormSocialPathRe = regexp.MustCompile(`^/(posts|feed/update|pulse)/[^/]+`)
	youTubeIDRe          = regexp.MustCompile(`^/[\w-]{6,}$`)
	youTubeWatchPathRe   = regexp.MustCompile(`^/(shorts|live|embed|v)/[\w-]{6,}/?$`)

	plainTextExtensions = []string{".txt", ".md", ".rst"}
	plainTextHosts      = map[string]struct{}{
		"raw.githubusercontent.com":  {},
		"gist.githubusercontent.com": {},
	}
)

// Classify finds the first http(s) URL in text and decides its category.
// Text without an http(s) URL is Unsupported; the returned URL is then the
// first URL of any other scheme, or empty.
func Classify(text string) (string, domain.Category) {
	var firstOther string

	for _, candidate := range anySchemeURLRe.FindAllString(text, -1) {
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}

		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			if u.Host == "" {
				continue
			}

			return candidate, categorize(u)
		default:
			if firstOther == "" {
				firstOther = candidate
			}
		}
	}

	return firstOther, domain.CategoryUnsupported
}

// ExtractURLs returns every http(s) URL in text in order of appearance.
func ExtractURLs(text string) []string {
	var urls []string

	for _, candidate := range anySchemeURLRe.FindAllString(text, -1) {
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			continue
		}

		scheme := strings.ToLower(u.Scheme)
		if scheme == "http" || scheme == "https" {
			urls = append(urls, candidate)
		}
	}

	return urls
}

func categorize(u *url.URL) domain.Category {
	host := normalizeHost(u.Hostname())
	path := u.EscapedPath()
	lowerPath := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lowerPath, ".pdf"):
		return domain.CategoryPDF
	case isShortFormSocial(host):
		return domain.CategorySocialPostA
	case isLongFormSocialPost(host, path):
		return domain.CategorySocialPostB
	case isVideoWatch(host, u):
		return domain.CategoryVideo
	case isPlainText(host, lowerPath):
		return domain.CategoryGenericText
	default:
		return domain.CategoryWebpage
	}
}

func normalizeHost(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, prefix := range []string{"www.", "mobile.", "m."} {
		host = strings.TrimPrefix(host, prefix)
	}

	return host
}

func isShortFormSocial(host string) bool {
	_, ok := shortFormSocialHosts[host]
	return ok
}

func isLongFormSocialPost(host, path string) bool {
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return false
	}

	return longFormSocialPathRe.MatchString(path)
}

func isVideoWatch(host string, u *url.URL) bool {
	switch host {
	case "youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			return u.Query().Get("v") != ""
		}

		return youTubeWatchPathRe.MatchString(u.Path)
	case "youtu.be":
		return youTubeIDRe.MatchString(u.Path)
	default:
		return false
	}
}

func isPlainText(host, lowerPath string) bool {
	if _, ok := plainTextHosts[host]; ok {
		return true
	}

	for _, ext := range plainTextExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return true
		}
	}

	return false
}

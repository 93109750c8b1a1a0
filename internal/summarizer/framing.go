package summarizer

import (
	"net/url"
	"strings"

	"linkbrief/internal/domain"
)

// Framing selects the category-specific instructions of the prompt.
type Framing int

const (
	FramingBlog Framing = iota
	FramingPaper
	FramingRepository
	FramingSocial
	FramingVideo
)

func (f Framing) String() string {
	switch f {
	case FramingPaper:
		return "paper"
	case FramingRepository:
		return "repository"
	case FramingSocial:
		return "social"
	case FramingVideo:
		return "video"
	default:
		return "blog"
	}
}

// DetectFraming derives the framing from the document category and URL.
func DetectFraming(doc *domain.Document) Framing {
	if doc == nil {
		return FramingBlog
	}

	switch doc.Category {
	case domain.CategoryPDF:
		return FramingPaper
	case domain.CategorySocialPostA, domain.CategorySocialPostB:
		return FramingSocial
	case domain.CategoryVideo:
		return FramingVideo
	}

	u, err := url.Parse(doc.SourceURL)
	if err != nil {
		return FramingBlog
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	switch host {
	case "arxiv.org":
		if len(segments) >= 2 && (segments[0] == "abs" || segments[0] == "pdf") {
			return FramingPaper
		}
	case "github.com", "gitlab.com":
		if len(segments) >= 2 {
			return FramingRepository
		}
	}

	return FramingBlog
}

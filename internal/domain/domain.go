package domain

import "strings"

type Category int

const (
	CategoryUnsupported Category = iota
	CategoryWebpage
	CategoryPDF
	CategorySocialPostA
	CategorySocialPostB
	CategoryVideo
	CategoryGenericText
)

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var categoryNames = map[Category]string{
	CategoryUnsupported: "unsupported",
	CategoryWebpage:     "webpage",
	CategoryPDF:         "pdf",
	CategorySocialPostA: "social_post_a",
	CategorySocialPostB: "social_post_b",
	CategoryVideo:       "video",
	CategoryGenericText: "generic_text",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}

	return categoryNames[CategoryUnsupported]
}

// ParseCategory resolves a category name as produced by String.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}

	return CategoryUnsupported, false
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText lets env and YAML decoders read categories by name.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return &UnknownCategoryError{Name: string(text)}
	}
	*c = parsed

	return nil
}

type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return "unknown category: " + e.Name
}

type Document struct {
	SourceURL string
	Category  Category
	RawText   string
	Title     string
	Author    string
}

type Context struct {
	Text string
}

func (c Context) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

type Summary struct {
	Title            string   `json:"title"`
	KeyPoints        []string `json:"key_points"`
	ConciseSummary   string   `json:"concise_summary"`
	ProblemAddressed string   `json:"problem_addressed,omitempty"`
	ApproachTaken    string   `json:"approach_taken,omitempty"`
}

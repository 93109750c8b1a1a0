package bot

import (
	"strings"
	"unicode/utf8"

	"linkbrief/internal/markdown"
	"linkbrief/internal/pipeline"
)

const telegramMessageMaxLength = 4096

func formatSummary(res *pipeline.Result) []string {
	var b strings.Builder

	title := res.Summary.Title
	if title == "" {
		title = res.Title
	}
	b.WriteString("📝 " + markdown.Bold(title) + "\n")

	if res.Author != "" {
		b.WriteString(markdown.Italic("by "+res.Author) + "\n")
	}

	b.WriteString("\n" + markdown.Bold("Key points") + "\n")
	for _, point := range res.Summary.KeyPoints {
		b.WriteString("• " + markdown.EscapeV2(point) + "\n")
	}

	b.WriteString("\n" + markdown.Bold("Summary") + "\n")
	b.WriteString(markdown.EscapeV2(res.Summary.ConciseSummary) + "\n")

	if res.Summary.ProblemAddressed != "" {
		b.WriteString("\n" + markdown.Bold("Problem addressed") + "\n")
		b.WriteString(markdown.EscapeV2(res.Summary.ProblemAddressed) + "\n")
	}

	if res.Summary.ApproachTaken != "" {
		b.WriteString("\n" + markdown.Bold("Approach taken") + "\n")
		b.WriteString(markdown.EscapeV2(res.Summary.ApproachTaken) + "\n")
	}

	return splitMessage(strings.TrimRight(b.String(), "\n"), telegramMessageMaxLength)
}

// splitMessage cuts text into parts of at most limit bytes, preferring
// paragraph and then line boundaries. A cut never separates an escape
// backslash from the character it escapes.
func splitMessage(text string, limit int) []string {
	var parts []string

	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], "\n")
		}
		if cut <= 0 {
			cut = hardCut(text, limit)
		}

		parts = append(parts, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}

	if text != "" {
		parts = append(parts, text)
	}

	return parts
}

func hardCut(text string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	trailing := 0
	for i := cut - 1; i >= 0 && text[i] == '\\'; i-- {
		trailing++
	}
	if trailing%2 == 1 {
		cut--
	}

	if cut <= 0 {
		return limit
	}

	return cut
}

package bot

import (
	"strings"
	"testing"

	"linkbrief/internal/domain"
	"linkbrief/internal/pipeline"
)

func TestFormatSummaryPaperSections(t *testing.T) {
	res := &pipeline.Result{
		Title: "Fallback title",
		Summary: domain.Summary{
			KeyPoints:        []string{"a", "b", "c"},
			ConciseSummary:   "Short.",
			ProblemAddressed: "Training cost.",
			ApproachTaken:    "Sparse experts.",
		},
	}

	parts := formatSummary(res)
	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}

	for _, want := range []string{"*Fallback title*", "*Problem addressed*", `Training cost\.`, "*Approach taken*"} {
		if !strings.Contains(parts[0], want) {
			t.Fatalf("expected %q in:\n%s", want, parts[0])
		}
	}

	if strings.Contains(parts[0], "_by") {
		t.Fatalf("expected no author line")
	}
}

func TestFormatSummaryOmitsPaperSections(t *testing.T) {
	parts := formatSummary(sampleResult())

	if strings.Contains(parts[0], "Problem addressed") || strings.Contains(parts[0], "Approach taken") {
		t.Fatalf("unexpected paper sections:\n%s", parts[0])
	}
}

func TestSplitMessagePrefersParagraphs(t *testing.T) {
	text := strings.Repeat("a", 6) + "\n\n" + strings.Repeat("b", 6) + "\n\n" + strings.Repeat("c", 6)

	parts := splitMessage(text, 16)
	if len(parts) != 2 || parts[0] != "aaaaaa\n\nbbbbbb" || parts[1] != "cccccc" {
		t.Fatalf("unexpected parts: %q", parts)
	}
}

func TestSplitMessageHardCutKeepsEscapes(t *testing.T) {
	text := `abcd\.efgh`

	parts := splitMessage(text, 5)
	if parts[0] != "abcd" || !strings.HasPrefix(parts[1], `\.`) {
		t.Fatalf("escape was split: %q", parts)
	}
}

func TestSplitMessageKeepsRunes(t *testing.T) {
	text := strings.Repeat("é", 5)

	for _, part := range splitMessage(text, 3) {
		if part != "é" {
			t.Fatalf("rune was split: %q", part)
		}
	}
}

func TestSplitMessageShortText(t *testing.T) {
	if parts := splitMessage("short", telegramMessageMaxLength); len(parts) != 1 || parts[0] != "short" {
		t.Fatalf("unexpected parts: %q", parts)
	}
}

package summarizer

import (
	"encoding/json"
	"strings"

	"linkbrief/internal/backend"
	"linkbrief/internal/domain"
)

const systemPrompt = `You summarize links shared in a chat.

Reply with one JSON object and nothing else. It must match this JSON schema:
%SCHEMA%

Rules:
- "title": at most 10 words.
- "key_points": 3 to 5 short points, most important first.
- "concise_summary": 50 to 150 words.
- Write in the language of the content.
- Use the additional context only to clarify the content. Never summarize the context itself.
- Neutral tone. No emojis, no hashtags.`

func framingRules(f Framing) string {
	switch f {
	case FramingPaper:
		return `- This is a research paper. Start "concise_summary" with "This paper is about".
- "problem_addressed": the problem the paper addresses, one or two sentences.
- "approach_taken": the approach the paper takes, one or two sentences.`
	case FramingRepository:
		return `- This is a code repository. Start "concise_summary" with "This repo is about" ` +
			`and say what it uses (languages, frameworks, key dependencies).`
	case FramingSocial:
		return `- This is a social media post or thread. Attribute opinions and claims to the author.`
	case FramingVideo:
		return `- This is a video. Summarize what is said or shown, not the page around it.`
	default:
		return `- Start "concise_summary" with "This post is about".`
	}
}

func schemaFor(f Framing) string {
	properties := map[string]any{
		"title": map[string]any{"type": "string"},
		"key_points": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string"},
			"minItems": minKeyPoints,
			"maxItems": maxKeyPoints,
		},
		"concise_summary": map[string]any{"type": "string"},
	}
	required := []string{"title", "key_points", "concise_summary"}

	if f == FramingPaper {
		properties["problem_addressed"] = map[string]any{"type": "string"}
		properties["approach_taken"] = map[string]any{"type": "string"}
		required = append(required, "problem_addressed", "approach_taken")
	}

	schema, _ := json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	})

	return string(schema)
}

func buildPrompt(f Framing, doc *domain.Document, text string, extra domain.Context) backend.Prompt {
	schema := schemaFor(f)

	system := strings.Builder{}
	system.WriteString(strings.Replace(systemPrompt, "%SCHEMA%", schema, 1))
	system.WriteString("\n")
	system.WriteString(framingRules(f))

	user := strings.Builder{}
	user.WriteString("Source:\n")
	user.WriteString(doc.SourceURL)
	user.WriteString("\n")
	if doc.Title != "" {
		user.WriteString("Title:\n")
		user.WriteString(doc.Title)
		user.WriteString("\n")
	}
	if doc.Author != "" {
		user.WriteString("Author:\n")
		user.WriteString(doc.Author)
		user.WriteString("\n")
	}
	user.WriteString("Content:\n")
	user.WriteString(text)

	if !extra.Empty() {
		user.WriteString("\n\nAdditional context:\n")
		user.WriteString(strings.TrimSpace(extra.Text))
	}

	return backend.Prompt{
		System:     system.String(),
		User:       user.String(),
		JSONSchema: schema,
	}
}

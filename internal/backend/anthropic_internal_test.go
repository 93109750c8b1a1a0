package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aktagon/llmkit/anthropic/types"
)

func TestAnthropicPassesSchemaAndSettings(t *testing.T) {
	a := NewAnthropic(Descriptor{Name: "claude", Model: "claude-test", Temperature: 0.3}, "key")

	var gotSchema string
	var gotSettings types.RequestSettings
	a.promptFunc = func(_, _, schema, _ string, settings types.RequestSettings) (string, error) {
		gotSchema = schema
		gotSettings = settings

		return "  {\"ok\":true}\n", nil
	}

	got, err := a.Infer(context.Background(), Prompt{System: "s", User: "u", JSONSchema: `{"type":"object"}`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != `{"ok":true}` {
		t.Fatalf("unexpected output: %q", got)
	}

	if gotSchema != `{"type":"object"}` {
		t.Fatalf("expected schema to be forwarded, got %q", gotSchema)
	}

	if gotSettings.Model != "claude-test" || gotSettings.MaxTokens != defaultAnthropicMaxTokens {
		t.Fatalf("unexpected settings: %+v", gotSettings)
	}
}

func TestAnthropicHonoursContext(t *testing.T) {
	a := NewAnthropic(Descriptor{Name: "claude", Model: "claude-test"}, "key")

	release := make(chan struct{})
	defer close(release)

	a.promptFunc = func(_, _, _, _ string, _ types.RequestSettings) (string, error) {
		<-release

		return "late", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Infer(ctx, Prompt{User: "u"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestOllamaFormat(t *testing.T) {
	if got := string(ollamaFormat("")); got != `"json"` {
		t.Fatalf("expected json mode, got %s", got)
	}

	if got := string(ollamaFormat("{not json")); got != `"json"` {
		t.Fatalf("expected json mode for invalid schema, got %s", got)
	}

	if got := string(ollamaFormat(` {"type":"object"} `)); got != `{"type":"object"}` {
		t.Fatalf("expected schema passthrough, got %s", got)
	}
}

func TestSchemaObject(t *testing.T) {
	for _, raw := range []string{"", "  ", "{not json", "[]", "{}"} {
		if _, ok := schemaObject(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}

	schema, ok := schemaObject(` {"type":"object","required":["title"]} `)
	if !ok || schema["type"] != "object" {
		t.Fatalf("expected decoded schema, got %v (ok = %v)", schema, ok)
	}
}

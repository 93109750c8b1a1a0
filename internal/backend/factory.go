package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Credentials holds the secrets for every backend kind. Empty values disable
// the matching backends.
type Credentials struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaHost      string
}

// New builds the backend described by d.
func New(
	ctx context.Context,
	d Descriptor,
	creds Credentials,
	client *http.Client,
	log *slog.Logger,
) (Backend, error) {
	switch d.Kind {
	case KindOpenAI:
		if strings.TrimSpace(creds.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("openai: %w", ErrMissingCredentials)
		}

		return NewOpenAI(d, creds.OpenAIAPIKey), nil
	case KindAnthropic:
		if strings.TrimSpace(creds.AnthropicAPIKey) == "" {
			return nil, fmt.Errorf("anthropic: %w", ErrMissingCredentials)
		}

		return NewAnthropic(d, creds.AnthropicAPIKey), nil
	case KindGemini:
		if strings.TrimSpace(creds.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("gemini: %w", ErrMissingCredentials)
		}

		g, err := NewGemini(ctx, d, creds.GeminiAPIKey, client, genai.HTTPOptions{})
		if err != nil {
			return nil, err
		}

		return g, nil
	case KindOllama:
		if strings.TrimSpace(creds.OllamaHost) == "" {
			return nil, fmt.Errorf("ollama: %w", ErrMissingCredentials)
		}

		return NewOllama(d, creds.OllamaHost, client, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
}

// BuildChain validates descriptors and builds the chain. Backends without
// credentials are skipped with a warning; an empty result is an error.
func BuildChain(
	ctx context.Context,
	descriptors []Descriptor,
	creds Credentials,
	client *http.Client,
	log *slog.Logger,
) (*Chain, error) {
	entries := make([]Entry, 0, len(descriptors))
	seen := make(map[string]struct{}, len(descriptors))

	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}

		if _, ok := seen[d.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidDescriptor, d.Name)
		}
		seen[d.Name] = struct{}{}

		b, err := New(ctx, d, creds, client, log)
		if errors.Is(err, ErrMissingCredentials) {
			log.WarnContext(ctx, "Skipping backend without credentials",
				"backend", d.Name,
				"kind", string(d.Kind))

			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create backend %s: %w", d.Name, err)
		}

		entries = append(entries, Entry{Backend: b, Priority: d.Priority, Retry: d.Retry})
	}

	if len(entries) == 0 {
		return nil, ErrNoBackends
	}

	return NewChain(log, entries...), nil
}

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGemini    Kind = "gemini"
	KindOllama    Kind = "ollama"
)

var (
	ErrMissingCredentials = errors.New("backend credentials are not configured")
	ErrEmptyOutput        = errors.New("backend returned empty output")
	ErrInvalidDescriptor  = errors.New("invalid backend descriptor")
)

// Prompt is what every backend receives. JSONSchema is passed to backends
// that support native structured output; the others rely on System.
type Prompt struct {
	System     string
	User       string
	JSONSchema string
}

// Backend is a single inference provider. Infer returns the raw model text.
type Backend interface {
	Name() string
	Infer(ctx context.Context, prompt Prompt) (string, error)
}

// Descriptor configures one backend of the chain.
type Descriptor struct {
	Name            string      `yaml:"name"`
	Kind            Kind        `yaml:"kind"`
	Model           string      `yaml:"model"`
	Priority        int         `yaml:"priority"`
	MaxOutputTokens int64       `yaml:"max_output_tokens"`
	Temperature     float64     `yaml:"temperature"`
	ReasoningEffort string      `yaml:"reasoning_effort"`
	ServiceTier     string      `yaml:"service_tier"`
	Retry           RetryPolicy `yaml:"retry"`
}

func (d Descriptor) Validate() error {
	var errs []error

	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is empty"))
	}

	switch d.Kind {
	case KindOpenAI, KindAnthropic, KindGemini, KindOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", d.Kind))
	}

	if strings.TrimSpace(d.Model) == "" {
		errs = append(errs, errors.New("model is empty"))
	}

	if d.MaxOutputTokens < 0 {
		errs = append(errs, errors.New("max_output_tokens is negative"))
	}

	if err := d.Retry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidDescriptor, d.Name, err)
	}

	return nil
}

// schemaObject decodes a prompt's JSON schema for SDKs that take it as an
// object. Empty or malformed schemas report false.
func schemaObject(raw string) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(raw), &schema); err != nil || len(schema) == 0 {
		return nil, false
	}

	return schema, true
}

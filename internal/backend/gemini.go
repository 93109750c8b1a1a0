package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

type Gemini struct {
	name            string
	model           string
	maxOutputTokens int32
	temperature     float32
	client          *genai.Client
}

func NewGemini(
	ctx context.Context,
	d Descriptor,
	apiKey string,
	httpClient *http.Client,
	httpOptions genai.HTTPOptions,
) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	return &Gemini{
		name:            d.Name,
		model:           d.Model,
		maxOutputTokens: int32(d.MaxOutputTokens), //nolint:gosec // Validated as a small positive number.
		temperature:     float32(d.Temperature),
		client:          client,
	}, nil
}

func (g *Gemini) Name() string {
	return g.name
}

func (g *Gemini) Infer(ctx context.Context, prompt Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	if schema, ok := schemaObject(prompt.JSONSchema); ok {
		config.ResponseJsonSchema = schema
	}

	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	if g.temperature > 0 {
		temperature := g.temperature
		config.Temperature = &temperature
	}

	if g.maxOutputTokens > 0 {
		config.MaxOutputTokens = g.maxOutputTokens
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt.User}},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var output strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			output.WriteString(part.Text)
		}

		break
	}

	text := strings.TrimSpace(output.String())
	if text == "" {
		return "", ErrEmptyOutput
	}

	return text, nil
}

package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

const defaultAnthropicMaxTokens = 2048

type anthropicResult struct {
	text string
	err  error
}

// Anthropic uses llmkit's structured output when the prompt carries a schema.
type Anthropic struct {
	name       string
	apiKey     string
	settings   types.RequestSettings
	promptFunc func(system, user, schema, apiKey string, settings types.RequestSettings) (string, error)
}

func NewAnthropic(d Descriptor, apiKey string) *Anthropic {
	maxTokens := int(d.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &Anthropic{
		name:   d.Name,
		apiKey: apiKey,
		settings: types.RequestSettings{
			Model:       d.Model,
			MaxTokens:   maxTokens,
			Temperature: d.Temperature,
		},
		promptFunc: promptAnthropic,
	}
}

func (a *Anthropic) Name() string {
	return a.name
}

// Infer runs the blocking llmkit call in a goroutine so the attempt still
// honours ctx; an abandoned call finishes in the background.
func (a *Anthropic) Infer(ctx context.Context, prompt Prompt) (string, error) {
	resultCh := make(chan anthropicResult, 1)

	go func() {
		text, err := a.promptFunc(prompt.System, prompt.User, prompt.JSONSchema, a.apiKey, a.settings)
		resultCh <- anthropicResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("wait for anthropic: %w", ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}

		output := strings.TrimSpace(res.text)
		if output == "" {
			return "", ErrEmptyOutput
		}

		return output, nil
	}
}

func promptAnthropic(
	system string,
	user string,
	schema string,
	apiKey string,
	settings types.RequestSettings,
) (string, error) {
	response, err := anthropic.PromptWithSettings(system, user, schema, apiKey, settings)
	if err != nil {
		return "", fmt.Errorf("prompt with settings: %w", err)
	}

	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response: %w", ErrEmptyOutput)
	}

	return response.Content[0].Text, nil
}

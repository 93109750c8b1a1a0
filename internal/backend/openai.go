package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	baseMaxOutputTokens  int64 = 1024
	limitMaxOutputTokens int64 = 4096

	structuredOutputName = "summary"
)

// OpenAI calls the Responses API. An incomplete response caused by the
// output token limit is retried in place with a doubled limit.
type OpenAI struct {
	name            string
	model           string
	maxOutputTokens int64
	reasoningEffort string
	serviceTier     string
	client          openai.Client
}

func NewOpenAI(d Descriptor, apiKey string, opts ...option.RequestOption) *OpenAI {
	maxOutputTokens := d.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = baseMaxOutputTokens
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &OpenAI{
		name:            d.Name,
		model:           d.Model,
		maxOutputTokens: maxOutputTokens,
		reasoningEffort: d.ReasoningEffort,
		serviceTier:     d.ServiceTier,
		client:          openai.NewClient(opts...),
	}
}

func (o *OpenAI) Name() string {
	return o.name
}

func (o *OpenAI) Infer(ctx context.Context, prompt Prompt) (string, error) {
	maxOutputTokens := o.maxOutputTokens
	limit := max(limitMaxOutputTokens, maxOutputTokens)

	for {
		params := responses.ResponseNewParams{
			Model:           o.model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Instructions:    openai.String(prompt.System),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt.User),
			},
		}

		if o.reasoningEffort != "" {
			params.Reasoning = responses.ReasoningParam{
				Effort: openai.ReasoningEffort(o.reasoningEffort),
			}
		}

		if schema, ok := schemaObject(prompt.JSONSchema); ok {
			params.Text = responses.ResponseTextConfigParam{
				Format: responses.ResponseFormatTextConfigUnionParam{
					OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
						Name:   structuredOutputName,
						Schema: schema,
					},
				},
			}
		}

		if o.serviceTier != "" {
			params.ServiceTier = responses.ResponseNewParamsServiceTier(o.serviceTier)
		}

		resp, err := o.client.Responses.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limit {
				maxOutputTokens = min(maxOutputTokens*2, limit)

				continue
			}

			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		output := strings.TrimSpace(resp.OutputText())
		if output == "" {
			return "", fmt.Errorf("output text is missing (status = %s): %w", resp.Status, ErrEmptyOutput)
		}

		return output, nil
	}
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	DefaultOllamaHost = "http://localhost:11434"

	maxOllamaErrorBytes = 512
)

// Ollama talks to a local Ollama server through /api/generate.
type Ollama struct {
	name        string
	model       string
	host        string
	temperature float64
	numPredict  int64
	client      *http.Client
	log         *slog.Logger
}

func NewOllama(d Descriptor, host string, client *http.Client, log *slog.Logger) *Ollama {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = DefaultOllamaHost
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Ollama{
		name:        d.Name,
		model:       d.Model,
		host:        host,
		temperature: d.Temperature,
		numPredict:  d.MaxOutputTokens,
		client:      client,
		log:         log,
	}
}

type ollamaRequest struct {
	Model   string          `json:"model"`
	System  string          `json:"system,omitempty"`
	Prompt  string          `json:"prompt"`
	Format  json.RawMessage `json:"format,omitempty"`
	Stream  bool            `json:"stream"`
	Options map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (o *Ollama) Name() string {
	return o.name
}

func (o *Ollama) Infer(ctx context.Context, prompt Prompt) (string, error) {
	options := map[string]any{}
	if o.temperature > 0 {
		options["temperature"] = o.temperature
	}
	if o.numPredict > 0 {
		options["num_predict"] = o.numPredict
	}

	payload, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		System:  prompt.System,
		Prompt:  prompt.User,
		Format:  ollamaFormat(prompt.JSONSchema),
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			o.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"backend", o.name)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxOllamaErrorBytes))

		return "", fmt.Errorf("unexpected status: %d (body = %s)", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded ollamaResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if decoded.Error != "" {
		return "", errors.New(decoded.Error)
	}

	output := strings.TrimSpace(decoded.Response)
	if output == "" {
		return "", ErrEmptyOutput
	}

	return output, nil
}

// ollamaFormat passes a valid schema through as a structured output format
// and falls back to plain JSON mode otherwise.
func ollamaFormat(schema string) json.RawMessage {
	schema = strings.TrimSpace(schema)
	if schema != "" && json.Valid([]byte(schema)) {
		return json.RawMessage(schema)
	}

	return json.RawMessage(`"json"`)
}

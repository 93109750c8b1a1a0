package summarizer

import (
	"context"

	"linkbrief/internal/domain"
)

// Input describes the payload for a summary request.
type Input struct {
	// Document is the extracted content to summarise.
	Document *domain.Document
	// Context is optional search context; an empty Context is valid.
	Context domain.Context
}

// Result is an accepted summary together with the backend that produced it.
type Result struct {
	Summary  domain.Summary
	Framing  Framing
	Backend  string
	Attempts int
}

// Summarizer produces a single validated summary for a given input.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (*Result, error)
}

package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"linkbrief/internal/backend"
	"linkbrief/internal/domain"
)

var (
	ErrAllBackendsExhausted = errors.New("all backends exhausted")
	ErrEmptyInput           = errors.New("input is empty")
)

type chainRunner interface {
	Run(ctx context.Context, prompt backend.Prompt, accept func(output string) error) (backend.Outcome, error)
}

// ChainSummarizer obtains summaries through a backend fallback chain and only
// returns candidates that pass Validate.
type ChainSummarizer struct {
	chain  chainRunner
	budget *tokenBudget
	log    *slog.Logger
}

func NewChainSummarizer(chain chainRunner, maxInputTokens int, log *slog.Logger) *ChainSummarizer {
	return &ChainSummarizer{
		chain:  chain,
		budget: newTokenBudget(maxInputTokens),
		log:    log,
	}
}

// WarmTokenizer loads the token encoding in the background of startup.
// Until it succeeds, documents are cut by an approximate byte budget.
func (s *ChainSummarizer) WarmTokenizer(ctx context.Context) error {
	return s.budget.warm(ctx)
}

func (s *ChainSummarizer) Summarize(ctx context.Context, input Input) (*Result, error) {
	doc := input.Document
	if doc == nil || strings.TrimSpace(doc.RawText) == "" {
		return nil, ErrEmptyInput
	}

	framing := DetectFraming(doc)

	text, truncated := s.budget.truncate(doc.RawText)
	if truncated {
		s.log.InfoContext(ctx, "Truncated document to token budget",
			"url", doc.SourceURL,
			"originalLength", len(doc.RawText),
			"truncatedLength", len(text))
	}

	prompt := buildPrompt(framing, doc, text, input.Context)

	var accepted domain.Summary
	outcome, err := s.chain.Run(ctx, prompt, func(output string) error {
		candidate, parseErr := ParseSummary(output)
		if parseErr != nil {
			return parseErr
		}

		if validateErr := Validate(candidate, framing); validateErr != nil {
			return validateErr
		}

		accepted = candidate

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("summarize: %w", err)
		}

		return nil, fmt.Errorf("%w: %w", ErrAllBackendsExhausted, err)
	}

	if framing != FramingPaper {
		accepted.ProblemAddressed = ""
		accepted.ApproachTaken = ""
	}

	return &Result{
		Summary:  accepted,
		Framing:  framing,
		Backend:  outcome.Backend,
		Attempts: outcome.Attempts,
	}, nil
}

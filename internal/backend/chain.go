package backend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

var (
	ErrExhausted  = errors.New("all backends exhausted")
	ErrNoBackends = errors.New("no backends configured")
)

// Entry is one backend together with its place in the chain and its retry
// policy.
type Entry struct {
	Backend  Backend
	Priority int
	Retry    RetryPolicy
}

// Outcome describes the accepted output. Attempts counts every attempt made
// across the chain, including failed ones on earlier backends.
type Outcome struct {
	Backend  string
	Output   string
	Attempts int
}

// AttemptError records why a single attempt failed.
type AttemptError struct {
	Backend string
	Attempt int
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("backend %s attempt %d: %v", e.Backend, e.Attempt, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

type Chain struct {
	entries []Entry
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

// NewChain orders entries by ascending priority, keeping declaration order on
// ties.
func NewChain(log *slog.Logger, entries ...Entry) *Chain {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	return &Chain{
		entries: sorted,
		sleep:   sleepContext,
		log:     log,
	}
}

func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Backend.Name())
	}

	return names
}

func (c *Chain) Len() int {
	return len(c.entries)
}

// Run tries every backend in order under its retry policy until accept
// returns nil for an output. A nil accept accepts any non-empty output.
// Cancellation of ctx stops the chain at once and returns the context error.
func (c *Chain) Run(
	ctx context.Context,
	prompt Prompt,
	accept func(output string) error,
) (Outcome, error) {
	if len(c.entries) == 0 {
		return Outcome{}, fmt.Errorf("%w: %w", ErrExhausted, ErrNoBackends)
	}

	var (
		lastErr error
		total   int
	)

	for _, e := range c.entries {
		name := e.Backend.Name()
		maxAttempts := e.Retry.attempts()

		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return Outcome{Attempts: total}, fmt.Errorf("run chain: %w", err)
			}

			total++

			output, err := c.attempt(ctx, e, prompt, accept)
			if err == nil {
				c.log.InfoContext(ctx, "Backend produced accepted output",
					"backend", name,
					"attempt", attempt,
					"totalAttempts", total)

				return Outcome{Backend: name, Output: output, Attempts: total}, nil
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return Outcome{Attempts: total}, fmt.Errorf("run backend %s: %w", name, ctxErr)
			}

			lastErr = &AttemptError{Backend: name, Attempt: attempt, Err: err}

			c.log.WarnContext(ctx, "Backend attempt failed",
				"error", err,
				"backend", name,
				"attempt", attempt,
				"maxAttempts", maxAttempts)

			if attempt == maxAttempts {
				break
			}

			if err = c.sleep(ctx, e.Retry.Delay(attempt)); err != nil {
				return Outcome{Attempts: total}, fmt.Errorf("wait before retry: %w", err)
			}
		}

		c.log.WarnContext(ctx, "Backend exhausted its retries, falling back",
			"backend", name,
			"attempts", maxAttempts)
	}

	return Outcome{Attempts: total}, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

func (c *Chain) attempt(
	ctx context.Context,
	e Entry,
	prompt Prompt,
	accept func(output string) error,
) (string, error) {
	attemptCtx := ctx
	if e.Retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.Retry.AttemptTimeout)
		defer cancel()
	}

	output, err := e.Backend.Infer(attemptCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("infer: %w", err)
	}

	if output == "" {
		return "", ErrEmptyOutput
	}

	if accept != nil {
		if err = accept(output); err != nil {
			return "", fmt.Errorf("accept output: %w", err)
		}
	}

	return output, nil
}

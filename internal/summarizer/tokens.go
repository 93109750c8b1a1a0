package summarizer

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultMaxInputTokens = 12000

	tokenEncoding = "cl100k_base"
	// Used until the encoding is loaded, or when it cannot be.
	approxBytesPerToken = 4

	warmAttempts  = 5
	warmBaseDelay = time.Second
)

// encoder is the part of *tiktoken.Tiktoken the budget needs.
type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

type tokenBudget struct {
	maxTokens int
	load      func() (encoder, error)
	delay     time.Duration

	mu  sync.RWMutex
	enc encoder
}

func newTokenBudget(maxTokens int) *tokenBudget {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxInputTokens
	}

	return &tokenBudget{
		maxTokens: maxTokens,
		load:      loadEncoding,
		delay:     warmBaseDelay,
	}
}

func loadEncoding() (encoder, error) {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, err
	}

	return enc, nil
}

// warm loads the encoding, retrying with a doubling delay. The first load
// may download the BPE file and cannot be interrupted, so it never runs on
// the request path.
func (b *tokenBudget) warm(ctx context.Context) error {
	if b.encoder() != nil {
		return nil
	}

	delay := b.delay
	var lastErr error

	for attempt := 1; attempt <= warmAttempts; attempt++ {
		enc, err := b.load()
		if err == nil {
			b.mu.Lock()
			b.enc = enc
			b.mu.Unlock()

			return nil
		}
		lastErr = err

		if attempt == warmAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("load %s encoding: %w", tokenEncoding, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
	}

	return fmt.Errorf("load %s encoding after %d attempts: %w", tokenEncoding, warmAttempts, lastErr)
}

func (b *tokenBudget) encoder() encoder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.enc
}

// truncate cuts text to the token budget. It reports whether text was cut.
func (b *tokenBudget) truncate(text string) (string, bool) {
	// A token is never shorter than one byte.
	if len(text) <= b.maxTokens {
		return text, false
	}

	enc := b.encoder()
	if enc == nil {
		return truncateBytes(text, b.maxTokens*approxBytesPerToken)
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= b.maxTokens {
		return text, false
	}

	return enc.Decode(tokens[:b.maxTokens]), true
}

func truncateBytes(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	return text[:cut], true
}

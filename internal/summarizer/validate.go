package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"linkbrief/internal/domain"
)

const (
	maxTitleWords   = 10
	minKeyPoints    = 3
	maxKeyPoints    = 5
	minSummaryWords = 50
	maxSummaryWords = 150
)

var ErrSchemaInvalid = errors.New("summary does not match the schema")

// ParseSummary decodes model output into a Summary. Surrounding code fences
// are tolerated.
func ParseSummary(output string) (domain.Summary, error) {
	var s domain.Summary

	if err := json.Unmarshal([]byte(stripCodeFence(output)), &s); err != nil {
		return domain.Summary{}, fmt.Errorf("%w: decode: %w", ErrSchemaInvalid, err)
	}

	s.Title = strings.TrimSpace(s.Title)
	s.ConciseSummary = strings.TrimSpace(s.ConciseSummary)
	s.ProblemAddressed = strings.TrimSpace(s.ProblemAddressed)
	s.ApproachTaken = strings.TrimSpace(s.ApproachTaken)
	for i, p := range s.KeyPoints {
		s.KeyPoints[i] = strings.TrimSpace(p)
	}

	return s, nil
}

// Validate checks every constraint of the summary schema for the framing.
func Validate(s domain.Summary, f Framing) error {
	var errs []error

	switch n := wordCount(s.Title); {
	case n == 0:
		errs = append(errs, errors.New("title is empty"))
	case n > maxTitleWords:
		errs = append(errs, fmt.Errorf("title has %d words, want at most %d", n, maxTitleWords))
	}

	if n := len(s.KeyPoints); n < minKeyPoints || n > maxKeyPoints {
		errs = append(errs, fmt.Errorf("got %d key points, want %d to %d", n, minKeyPoints, maxKeyPoints))
	}

	for i, p := range s.KeyPoints {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("key point %d is empty", i+1))
		}
	}

	if n := wordCount(s.ConciseSummary); n < minSummaryWords || n > maxSummaryWords {
		errs = append(errs, fmt.Errorf("concise summary has %d words, want %d to %d", n, minSummaryWords, maxSummaryWords))
	}

	if f == FramingPaper {
		if strings.TrimSpace(s.ProblemAddressed) == "" {
			errs = append(errs, errors.New("problem addressed is missing"))
		}

		if strings.TrimSpace(s.ApproachTaken) == "" {
			errs = append(errs, errors.New("approach taken is missing"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaInvalid, err)
	}

	return nil
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func stripCodeFence(output string) string {
	text := strings.TrimSpace(output)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	}

	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}

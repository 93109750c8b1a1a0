package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

type Strategy string

const (
	StrategyConstant    Strategy = "constant"
	StrategyExponential Strategy = "exponential"

	defaultMultiplier = 2.0
)

// RetryPolicy decides how often one backend is attempted and how long to
// wait between attempts.
type RetryPolicy struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	Strategy       Strategy      `yaml:"strategy"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	Multiplier     float64       `yaml:"multiplier"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
}

func (p RetryPolicy) Validate() error {
	var errs []error

	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", p.MaxAttempts))
	}

	switch p.Strategy {
	case StrategyConstant:
	case StrategyExponential:
		if p.Multiplier != 0 && p.Multiplier < 1 {
			errs = append(errs, fmt.Errorf("multiplier must be at least 1, got %v", p.Multiplier))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", p.Strategy))
	}

	if p.BaseDelay < 0 || p.MaxDelay < 0 || p.AttemptTimeout < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}

	return errors.Join(errs...)
}

// Delay returns the wait after the given failed attempt (1-based) before the
// next one.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if p.Strategy != StrategyExponential {
		return p.BaseDelay
	}

	multiplier := p.Multiplier
	if multiplier == 0 {
		multiplier = defaultMultiplier
	}

	delay := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}

	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

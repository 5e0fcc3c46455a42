// Package retry wraps calls to external collaborators (calendar, NLU) with
// bounded retries. Classification lives in the errors package: transient
// failures back off exponentially with jitter, fatal ones surface at once.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/slotbot/slotbot/internal/errors"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	CallTimeout time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		CallTimeout: 15 * time.Second,
	}
}

// Do runs fn until it succeeds, fails fatally, or attempts run out. Each
// attempt gets its own deadline; cancellation of an in-flight call is
// cooperative through that deadline, never an out-of-band signal. Exhausted
// retries surface ErrExternalService wrapping the last failure. The policy is
// stateless across calls.
func (p Policy) Do(ctx context.Context, label string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if p.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
		}
		err := fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := p.backoff(attempt)
		slog.Warn("Transient failure, backing off",
			"call", label, "attempt", attempt, "max_attempts", attempts,
			"delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("retries exhausted for %s: %w: %w", label, errors.ErrExternalService, lastErr)
}

// backoff doubles the base per attempt, caps at MaxDelay and adds up to 25%
// jitter so concurrent callers do not stampede a recovering provider.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	delay := base << (attempt - 1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

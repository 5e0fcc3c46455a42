package retry

import (
	"context"
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slotbot/slotbot/internal/errors"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		CallTimeout: time.Second,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return stdErrors.New("connection refused")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoSurfacesExternalServiceAfterExhaustion(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return stdErrors.New("rate limit exceeded")
	})
	assert.Equal(t, 3, calls)
	assert.True(t, errors.IsCategory(err, errors.ErrExternalService))
}

func TestDoFatalErrorNotRetried(t *testing.T) {
	calls := 0
	fatal := stdErrors.New("unauthorized")
	err := fastPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return fatal
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, fatal)
	assert.False(t, errors.IsCategory(err, errors.ErrExternalService))
}

func TestDoBusinessErrorsNeverRetried(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), "test", func(ctx context.Context) error {
		calls++
		return errors.Conflict("slot taken")
	})
	assert.Equal(t, 1, calls)
	assert.True(t, errors.IsCategory(err, errors.ErrConflict))
}

func TestDoRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fastPolicy().Do(ctx, "test", func(ctx context.Context) error {
		return stdErrors.New("connection reset")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoPerCallTimeout(t *testing.T) {
	p := fastPolicy()
	p.MaxAttempts = 1
	p.CallTimeout = 5 * time.Millisecond

	err := p.Do(context.Background(), "test", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.Error(t, err)
}

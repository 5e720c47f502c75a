package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"docchat-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard(cfg GuardConfig) *guard {
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	cfg.Backoff = time.Millisecond
	return newGuard(cfg, nil)
}

func TestGuardRetriesThenSucceeds(t *testing.T) {
	g := testGuard(GuardConfig{MaxRetries: 2})

	attempts := 0
	err := g.call(context.Background(), "embed", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestGuardWrapsFinalFailure(t *testing.T) {
	g := testGuard(GuardConfig{Name: "flaky", MaxRetries: 1})
	cause := errors.New("boom")

	attempts := 0
	err := g.call(context.Background(), "generate", func(ctx context.Context) error {
		attempts++
		return cause
	})

	var upstream *models.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "flaky", upstream.Provider)
	assert.Equal(t, "generate", upstream.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 2, attempts)
}

func TestGuardTimeoutIsUpstreamError(t *testing.T) {
	g := testGuard(GuardConfig{Timeout: 20 * time.Millisecond})

	err := g.call(context.Background(), "generate", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.True(t, models.IsUpstream(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardSkipsNonRetryable(t *testing.T) {
	g := testGuard(GuardConfig{
		MaxRetries: 3,
		Retryable:  func(error) bool { return false },
	})

	attempts := 0
	err := g.call(context.Background(), "embed", func(ctx context.Context) error {
		attempts++
		return errors.New("bad request")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestGuardStopsOnCancelledContext(t *testing.T) {
	g := testGuard(GuardConfig{MaxRetries: 5})
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := g.call(ctx, "embed", func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("interrupted")
	})

	assert.True(t, models.IsUpstream(err))
	assert.Equal(t, 1, attempts)
}

func TestGuardOpensCircuit(t *testing.T) {
	g := testGuard(GuardConfig{MaxRetries: 0})

	for i := 0; i < 3; i++ {
		_ = g.call(context.Background(), "embed", func(ctx context.Context) error {
			return errors.New("down")
		})
	}

	called := false
	err := g.call(context.Background(), "embed", func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, models.IsUpstream(err))
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          10 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestPolicy_DelaySequence(t *testing.T) {
	t.Run("doubles from initial", func(t *testing.T) {
		p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2}
		assert.Equal(t, 100*time.Millisecond, p.Delay(1))
		assert.Equal(t, 200*time.Millisecond, p.Delay(2))
		assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	})

	t.Run("caps at max", func(t *testing.T) {
		p := Policy{InitialDelay: 500 * time.Millisecond, MaxDelay: 600 * time.Millisecond, BackoffMultiplier: 2}
		assert.Equal(t, 500*time.Millisecond, p.Delay(1))
		assert.Equal(t, 600*time.Millisecond, p.Delay(2))
		assert.Equal(t, 600*time.Millisecond, p.Delay(3))
	})

	t.Run("jitter stays within half and one and a half", func(t *testing.T) {
		p := Policy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffMultiplier: 2, Jitter: true}
		for i := 0; i < 50; i++ {
			d := p.Delay(1)
			assert.GreaterOrEqual(t, d, 50*time.Millisecond)
			assert.LessOrEqual(t, d, 150*time.Millisecond)
		}
	})
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.Ok("done"), nil
	})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientErrorThenSucceeds(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		if calls < 3 {
			return registry.ExecutionResult{}, fmt.Errorf("connection reset by peer")
		}
		return registry.Ok("done"), nil
	})

	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorFailsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.ExecutionResult{}, fmt.Errorf("validation failed: bad input")
	})

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRetryExhausted))
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustionWrapsError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.ExecutionResult{}, fmt.Errorf("503 service unavailable")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetryExhausted))
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 3, calls) // MaxRetries + 1
}

func TestDo_FinalRetryableErrResultReturnedUnwrapped(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fastPolicy(1), func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.Err(registry.CodeExecution, "request timed out"), nil
	})

	// The original result payload survives on the result channel.
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, registry.CodeExecution, res.Code)
	assert.Contains(t, res.Message, "timed out")
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentErrResultNotRetried(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.Err(registry.CodeValidation, "invalid arguments"), nil
	})

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryFires(t *testing.T) {
	policy := fastPolicy(2)
	var attempts []int
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}

	_, err := Do(context.Background(), policy, func(ctx context.Context) (registry.ExecutionResult, error) {
		return registry.ExecutionResult{}, fmt.Errorf("429 too many requests")
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{MaxRetries: 5, InitialDelay: time.Hour, BackoffMultiplier: 2}
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, policy, func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.ExecutionResult{}, fmt.Errorf("connection refused")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestDo_CustomClassifier(t *testing.T) {
	policy := fastPolicy(2)
	policy.IsRetryable = func(err error) bool { return false }

	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (registry.ExecutionResult, error) {
		calls++
		return registry.ExecutionResult{}, fmt.Errorf("503 service unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"registry not found", fmt.Errorf("wrap: %w", registry.ErrNotFound), false},
		{"registry validation", fmt.Errorf("wrap: %w", registry.ErrValidation), false},
		{"args too large", fmt.Errorf("wrap: %w", registry.ErrArgsTooLarge), false},
		{"timeout phrase", errors.New("request timed out"), true},
		{"econnreset", errors.New("read tcp: ECONNRESET"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"http 503", errors.New("upstream returned 503"), true},
		{"overloaded", errors.New("server overloaded, retry later"), true},
		{"invalid input", errors.New("invalid input"), false},
		{"unauthorized", errors.New("401 unauthorized"), false},
		{"forbidden", errors.New("403 forbidden"), false},
		{"unclassified", errors.New("something odd happened"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

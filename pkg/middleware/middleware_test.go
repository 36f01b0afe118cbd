package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/dispatch/pkg/registry"
	"github.com/tessera-ai/dispatch/pkg/retry"
)

func okExec(content string) registry.Executor {
	return func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		return registry.Ok(content), nil
	}
}

func TestSerializedArgsSize(t *testing.T) {
	size, err := SerializedArgsSize(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	size, err = SerializedArgsSize(map[string]interface{}{"a": "bb"})
	require.NoError(t, err)
	assert.Equal(t, len(`{"a":"bb"}`), size)

	_, err = SerializedArgsSize(map[string]interface{}{"ch": make(chan int)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrValidation))
}

func TestWrap_RejectsOversizedArgsBeforeExecutor(t *testing.T) {
	calls := 0
	exec := func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		calls++
		return registry.Ok("ran"), nil
	}

	wrapped := Wrap("big", exec, Options{ArgsMaxSize: 64})

	res, err := wrapped(context.Background(), map[string]interface{}{
		"payload": strings.Repeat("x", 200),
	})

	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, registry.CodeArgsTooLarge, res.Code)
	assert.Contains(t, res.Message, "64 byte limit")
	assert.Equal(t, 0, calls, "executor must not run on oversized arguments")
}

func TestWrap_PassesThroughSuccess(t *testing.T) {
	wrapped := Wrap("echo", okExec("hello"), Options{})

	res, err := wrapped(context.Background(), map[string]interface{}{"text": "hello"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "hello", res.Content)
}

func TestWrap_TruncatesLongContent(t *testing.T) {
	long := strings.Repeat("a", 100)
	wrapped := Wrap("long", okExec(long), Options{ContentMaxSize: 40})

	res, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Content, strings.Repeat("a", 40)))
	assert.Contains(t, res.Content, "output truncated")
	assert.Equal(t, true, res.Metadata["truncated"])
	assert.Equal(t, 100, res.Metadata["original_size"])
}

func TestWrap_TruncatesOnRuneBoundary(t *testing.T) {
	// Two-byte runes with an odd byte limit force a cut inside a rune.
	long := strings.Repeat("é", 40)
	wrapped := Wrap("unicode", okExec(long), Options{ContentMaxSize: 41})

	res, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.OK)
	assert.Equal(t, true, res.Metadata["truncated"])

	kept := strings.SplitN(res.Content, "\n", 2)[0]
	assert.True(t, utf8.ValidString(kept), "truncated prefix must stay valid UTF-8")
	assert.Equal(t, strings.Repeat("é", 20), kept)
}

func TestWrap_NormalizesPanic(t *testing.T) {
	exec := func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		panic("kaboom")
	}
	wrapped := Wrap("panicky", exec, Options{})

	res, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, registry.CodeExecution, res.Code)
	assert.Contains(t, res.Message, "kaboom")
}

func TestWrap_NormalizesExecutorError(t *testing.T) {
	exec := func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		return registry.ExecutionResult{}, fmt.Errorf("backend exploded")
	}
	wrapped := Wrap("failing", exec, Options{})

	res, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, registry.CodeExecution, res.Code)
	assert.Contains(t, res.Message, "backend exploded")
}

func TestWrap_TimeoutProducesTimeoutResult(t *testing.T) {
	exec := func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		select {
		case <-ctx.Done():
			return registry.ExecutionResult{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return registry.Ok("too late"), nil
		}
	}
	wrapped := Wrap("slow", exec, Options{Timeout: 20 * time.Millisecond})

	res, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, registry.CodeTimeout, res.Code)
}

func TestWrap_RetriesTransientFailures(t *testing.T) {
	calls := 0
	exec := func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		calls++
		if calls < 3 {
			return registry.ExecutionResult{}, fmt.Errorf("connection reset")
		}
		return registry.Ok("recovered"), nil
	}

	policy := retry.Policy{
		MaxRetries:        3,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
	wrapped := Wrap("flaky", exec, Options{Retry: &policy})

	res, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "recovered", res.Content)
	assert.Equal(t, 3, calls)
}

func TestWrap_RetryExhaustionSurfacesError(t *testing.T) {
	exec := func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		return registry.ExecutionResult{}, fmt.Errorf("503 unavailable")
	}

	policy := retry.Policy{
		MaxRetries:        1,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2,
	}
	wrapped := Wrap("down", exec, Options{Retry: &policy})

	res, err := wrapped(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, retry.ErrRetryExhausted))
	assert.False(t, res.OK)
}

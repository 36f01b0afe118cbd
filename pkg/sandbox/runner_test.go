package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func TestHostRunner_RunCode(t *testing.T) {
	runner := NewHostRunner("sh", nil, 5*time.Second)
	ctx := context.Background()

	t.Run("arguments arrive on stdin", func(t *testing.T) {
		res, err := runner.RunCode(ctx, "cat -", map[string]interface{}{"city": "Oslo"}, nil)
		require.NoError(t, err)
		require.True(t, res.OK)
		assert.JSONEq(t, `{"city":"Oslo"}`, res.Content)
		assert.Contains(t, res.Metadata, "duration_ms")
	})

	t.Run("permissions exposed via env", func(t *testing.T) {
		res, err := runner.RunCode(ctx, `printf '%s' "$TOOL_PERMISSIONS"`, nil, []string{"network:http", "filesystem:read"})
		require.NoError(t, err)
		require.True(t, res.OK)
		assert.Equal(t, "network:http,filesystem:read", res.Content)
	})

	t.Run("stderr becomes error result", func(t *testing.T) {
		res, err := runner.RunCode(ctx, `echo "oops" >&2; exit 1`, nil, nil)
		require.NoError(t, err)
		assert.False(t, res.OK)
		assert.Equal(t, registry.CodeExecution, res.Code)
		assert.Contains(t, res.Message, "oops")
	})

	t.Run("timeout", func(t *testing.T) {
		fast := NewHostRunner("sh", nil, 100*time.Millisecond)
		_, err := fast.RunCode(ctx, "sleep 5", nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrExecutionTimeout))
	})
}

func TestHostRunner_NoInterpreter(t *testing.T) {
	runner := &HostRunner{}
	_, err := runner.RunCode(context.Background(), "cat", nil, nil)
	assert.True(t, errors.Is(err, ErrNoInterpreter))
}

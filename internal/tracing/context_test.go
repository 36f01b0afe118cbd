package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithAgentID(ctx, "agent-1")
	ctx = WithSessionKey(ctx, "session-1")
	ctx = WithCallID(ctx, "call-1")

	assert.Equal(t, "trace-1", GetTraceID(ctx))
	assert.Equal(t, "agent-1", GetAgentID(ctx))
	assert.Equal(t, "session-1", GetSessionKey(ctx))
	assert.Equal(t, "call-1", GetCallID(ctx))
}

func TestContextDefaultsEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetAgentID(ctx))
	assert.Empty(t, GetSessionKey(ctx))
	assert.Empty(t, GetCallID(ctx))
}

func TestFromContextAndNewContext(t *testing.T) {
	tc := &TraceContext{
		TraceID:    "trace-1",
		AgentID:    "agent-1",
		SessionKey: "session-1",
		CallID:     "call-1",
	}

	ctx := NewContext(context.Background(), tc)
	got := FromContext(ctx)
	assert.Equal(t, tc, got)
}

func TestNewRequestContext(t *testing.T) {
	ctx := NewRequestContext(context.Background())
	first := GetTraceID(ctx)
	require.NotEmpty(t, first)

	second := GetTraceID(NewRequestContext(context.Background()))
	assert.NotEqual(t, first, second)
}

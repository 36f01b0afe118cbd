package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/dispatch/internal/config"
	"github.com/tessera-ai/dispatch/internal/tracing"
	"github.com/tessera-ai/dispatch/pkg/metatools"
)

func TestBuildObservability(t *testing.T) {
	t.Run("tracing enabled", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Tracing.Enabled = true

		tracer, m, err := buildObservability(cfg)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.IsType(t, &tracing.OtelTracer{}, tracer)
	})

	t.Run("tracing disabled", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Tracing.Enabled = false

		tracer, m, err := buildObservability(cfg)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.IsType(t, tracing.NoopTracer{}, tracer)
	})
}

func TestBuildRegistry_BuildsLocalRegistry(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Path = ""
	cfg.Extensions.Dir = ""
	cfg.Retry.Enabled = false

	reg, cleanup, err := buildRegistry(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, reg.Get(metatools.ToolSearchTools))

	res := reg.Execute(context.Background(), "heartbeat", nil)
	assert.True(t, res.OK, res.Message)
}

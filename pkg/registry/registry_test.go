package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoDef(name string) ToolDefinition {
	return ToolDefinition{
		Name:        name,
		Description: "Echoes its input back.",
		Parameters: []ToolParameter{
			{Name: "text", Type: "string", Description: "Text to echo", Required: true},
		},
	}
}

func echoExec(ctx context.Context, args map[string]interface{}) (ExecutionResult, error) {
	text, _ := args["text"].(string)
	return Ok(text), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := New()

	err := reg.Register(echoDef("echo"), echoExec, SourceBuiltin, "")
	require.NoError(t, err)

	assert.True(t, reg.Has("echo"))
	assert.Equal(t, 1, reg.Len())

	tool := reg.Get("echo")
	require.NotNil(t, tool)
	assert.Equal(t, SourceBuiltin, tool.Source)

	def, ok := reg.GetDefinition("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", def.Name)
}

func TestRegistry_RegisterDuplicateFails(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Register(echoDef("echo"), echoExec, SourceBuiltin, ""))

	err := reg.Register(echoDef("echo"), echoExec, SourceDynamic, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	// First registration wins
	assert.Equal(t, SourceBuiltin, reg.Get("echo").Source)
}

func TestRegistry_RegisterRejectsInvalid(t *testing.T) {
	reg := New()

	tests := []struct {
		name   string
		def    ToolDefinition
		exec   Executor
		source ToolSource
	}{
		{"empty name", ToolDefinition{Description: "x"}, echoExec, SourceBuiltin},
		{"empty description", ToolDefinition{Name: "x"}, echoExec, SourceBuiltin},
		{"nil executor", echoDef("x"), nil, SourceBuiltin},
		{"bad source", echoDef("x"), echoExec, ToolSource("bogus")},
		{"bad param type", ToolDefinition{
			Name:        "x",
			Description: "x",
			Parameters:  []ToolParameter{{Name: "p", Type: "widget"}},
		}, echoExec, SourceBuiltin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.def, tt.exec, tt.source, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestRegistry_DefinitionsPreserveOrder(t *testing.T) {
	reg := New()

	names := []string{"zulu", "alpha", "mike"}
	for _, name := range names {
		require.NoError(t, reg.Register(echoDef(name), echoExec, SourceBuiltin, ""))
	}

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	for i, def := range defs {
		assert.Equal(t, names[i], def.Name)
	}
	assert.Equal(t, names, reg.Names())
}

func TestRegistry_Unregister(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(echoDef("echo"), echoExec, SourceBuiltin, ""))

	assert.True(t, reg.Unregister("echo"))
	assert.False(t, reg.Has("echo"))
	assert.Empty(t, reg.Names())

	assert.False(t, reg.Unregister("echo"))
}

func TestRegistry_UnregisterOwner(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(echoDef("a"), echoExec, SourcePlugin, "plug-1"))
	require.NoError(t, reg.Register(echoDef("b"), echoExec, SourcePlugin, "plug-2"))
	require.NoError(t, reg.Register(echoDef("c"), echoExec, SourcePlugin, "plug-1"))

	removed := reg.UnregisterOwner("plug-1")
	assert.Equal(t, []string{"a", "c"}, removed)
	assert.Equal(t, []string{"b"}, reg.Names())
}

func TestRegistry_UpdateExecutorPreservesOrder(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(echoDef("first"), echoExec, SourceBuiltin, ""))
	require.NoError(t, reg.Register(echoDef("second"), echoExec, SourceBuiltin, ""))

	swapped := func(ctx context.Context, args map[string]interface{}) (ExecutionResult, error) {
		return Ok("swapped"), nil
	}
	require.NoError(t, reg.UpdateExecutor("first", swapped))

	assert.Equal(t, []string{"first", "second"}, reg.Names())

	res := reg.Execute(context.Background(), "first", map[string]interface{}{"text": "x"})
	assert.True(t, res.OK)
	assert.Equal(t, "swapped", res.Content)

	err := reg.UpdateExecutor("missing", swapped)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistry_ExecuteUnknownSuggests(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(echoDef("memory_search"), echoExec, SourceBuiltin, ""))

	res := reg.Execute(context.Background(), "memory_serch", nil)
	assert.False(t, res.OK)
	assert.Equal(t, CodeNotFound, res.Code)
	assert.Contains(t, res.Message, "memory_search")
}

func TestRegistry_ExecuteNormalizesPanic(t *testing.T) {
	reg := New()
	panicky := func(ctx context.Context, args map[string]interface{}) (ExecutionResult, error) {
		panic("boom")
	}
	require.NoError(t, reg.Register(echoDef("panicky"), panicky, SourceBuiltin, ""))

	res := reg.Execute(context.Background(), "panicky", nil)
	assert.False(t, res.OK)
	assert.Equal(t, CodeExecution, res.Code)
	assert.Contains(t, res.Message, "boom")
}

func TestRegistry_ExecuteNormalizesError(t *testing.T) {
	reg := New()
	failing := func(ctx context.Context, args map[string]interface{}) (ExecutionResult, error) {
		return ExecutionResult{}, fmt.Errorf("backend unavailable")
	}
	require.NoError(t, reg.Register(echoDef("failing"), failing, SourceBuiltin, ""))

	res := reg.Execute(context.Background(), "failing", nil)
	assert.False(t, res.OK)
	assert.Equal(t, CodeExecution, res.Code)
	assert.Contains(t, res.Message, "backend unavailable")
}

func TestRegistry_ValidateArguments(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(echoDef("echo"), echoExec, SourceBuiltin, ""))

	err := reg.ValidateArguments("echo", map[string]interface{}{"text": "hi"})
	assert.NoError(t, err)

	err = reg.ValidateArguments("echo", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	err = reg.ValidateArguments("echo", map[string]interface{}{"text": 42})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	err = reg.ValidateArguments("missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func providerTool(name, serverID, content string) ProviderTool {
	return ProviderTool{
		Definition: registry.ToolDefinition{Name: name, Description: "Remote tool."},
		Executor: func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
			return registry.Ok(content), nil
		},
		ServerID: serverID,
	}
}

func TestSharedRegistry_AddPreservesOrder(t *testing.T) {
	s := NewSharedRegistry()
	s.Add(providerTool("b_tool", "srv-1", "b"))
	s.Add(providerTool("a_tool", "srv-1", "a"))

	tools := s.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "b_tool", tools[0].Definition.Name)
	assert.Equal(t, "a_tool", tools[1].Definition.Name)
}

func TestSharedRegistry_LastWriteWins(t *testing.T) {
	s := NewSharedRegistry()
	s.Add(providerTool("fetch", "srv-1", "first"))
	s.Add(providerTool("fetch", "srv-2", "second"))

	tools := s.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "srv-2", tools[0].ServerID)

	res, err := tools[0].Executor(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "second", res.Content)
}

func TestSharedRegistry_RemoveServer(t *testing.T) {
	s := NewSharedRegistry()
	s.Add(providerTool("a", "srv-1", "a"))
	s.Add(providerTool("b", "srv-2", "b"))
	s.Add(providerTool("c", "srv-1", "c"))

	removed := s.RemoveServer("srv-1")
	assert.ElementsMatch(t, []string{"a", "c"}, removed)

	tools := s.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "b", tools[0].Definition.Name)

	assert.Empty(t, s.RemoveServer("srv-1"))
}

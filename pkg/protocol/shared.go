package protocol

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// ProviderTool is one remote tool surfaced to the protocol registrar.
type ProviderTool struct {
	Definition registry.ToolDefinition
	Executor   registry.Executor
	ServerID   string
}

// SharedRegistry is the cross-agent view of provider tools. Unlike
// the per-agent tool registry it is shared between sessions, so it is
// read-mostly and mutex-protected: providers append on connect and
// remove on disconnect, with last-write-wins on name collisions.
type SharedRegistry struct {
	tools map[string]ProviderTool
	order []string
	mu    sync.RWMutex
}

// NewSharedRegistry creates an empty shared registry.
func NewSharedRegistry() *SharedRegistry {
	return &SharedRegistry{
		tools: make(map[string]ProviderTool),
	}
}

// Add surfaces a provider tool, replacing any same-named entry.
func (s *SharedRegistry) Add(tool ProviderTool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.tools[tool.Definition.Name]; exists {
		log.Debug().
			Str("tool", tool.Definition.Name).
			Str("previous_server", existing.ServerID).
			Str("server", tool.ServerID).
			Msg("Provider tool replaced")
		s.tools[tool.Definition.Name] = tool
		return
	}

	s.tools[tool.Definition.Name] = tool
	s.order = append(s.order, tool.Definition.Name)
}

// RemoveServer drops every tool surfaced by serverID and returns the
// removed names.
func (s *SharedRegistry) RemoveServer(serverID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	remaining := s.order[:0]
	for _, name := range s.order {
		if s.tools[name].ServerID == serverID {
			delete(s.tools, name)
			removed = append(removed, name)
			continue
		}
		remaining = append(remaining, name)
	}
	s.order = remaining

	if len(removed) > 0 {
		log.Info().Str("server", serverID).Strs("tools", removed).Msg("Provider tools removed")
	}
	return removed
}

// Tools returns every surfaced tool in first-surfaced order.
func (s *SharedRegistry) Tools() []ProviderTool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]ProviderTool, 0, len(s.order))
	for _, name := range s.order {
		tools = append(tools, s.tools[name])
	}
	return tools
}

// ConnectServer fetches a provider's tools and surfaces them all.
// Returns the surfaced definitions.
func (s *SharedRegistry) ConnectServer(ctx context.Context, adapter *ServerAdapter) ([]registry.ToolDefinition, error) {
	defs, err := adapter.GetTools(ctx)
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		s.Add(ProviderTool{
			Definition: def,
			Executor:   adapter.Executor(def.Name),
			ServerID:   adapter.ServerID(),
		})
	}
	return defs, nil
}

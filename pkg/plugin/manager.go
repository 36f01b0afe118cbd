package plugin

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager tracks connected plugins. The plugin registrar polls it at
// registry-construction time; connect/disconnect events are expected
// to trigger a registry rebuild rather than an in-place patch.
type Manager struct {
	plugins map[string]*ConnectedPlugin
	order   []string
	mu      sync.RWMutex
}

// NewManager creates an empty plugin manager.
func NewManager() *Manager {
	return &Manager{
		plugins: make(map[string]*ConnectedPlugin),
	}
}

// Connect registers a plugin and the tools it exposes. Tool approval
// requirements are derived from the plugin's granted permissions.
func (m *Manager) Connect(manifest Manifest, tools []CatalogTool) error {
	if manifest.ID == "" {
		return fmt.Errorf("plugin id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[manifest.ID]; exists {
		return fmt.Errorf("plugin %s already connected", manifest.ID)
	}

	needsApproval := RequiresApproval(manifest.Permissions)
	for i := range tools {
		tools[i].OwnerID = manifest.ID
		if needsApproval {
			tools[i].Definition.RequiresApproval = true
		}
		if tools[i].Definition.Category == "" {
			tools[i].Definition.Category = manifest.Category
		}
	}

	m.plugins[manifest.ID] = &ConnectedPlugin{
		Manifest:    manifest,
		Tools:       tools,
		ConnectedAt: time.Now(),
	}
	m.order = append(m.order, manifest.ID)

	log.Info().
		Str("plugin", manifest.ID).
		Int("tools", len(tools)).
		Msg("Plugin connected")

	return nil
}

// Disconnect removes a plugin, reporting whether it was connected.
func (m *Manager) Disconnect(pluginID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plugins[pluginID]; !exists {
		return false
	}

	delete(m.plugins, pluginID)
	for i, id := range m.order {
		if id == pluginID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	log.Info().Str("plugin", pluginID).Msg("Plugin disconnected")
	return true
}

// Get returns a connected plugin by ID.
func (m *Manager) Get(pluginID string) (*ConnectedPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, exists := m.plugins[pluginID]
	return p, exists
}

// Connected returns all connected plugins in connection order.
func (m *Manager) Connected() []*ConnectedPlugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*ConnectedPlugin, 0, len(m.order))
	for _, id := range m.order {
		plugins = append(plugins, m.plugins[id])
	}
	return plugins
}

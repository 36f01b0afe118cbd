package registrar

import (
	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/plugin"
	"github.com/tessera-ai/dispatch/pkg/registry"
)

// corePluginCategory marks plugin tools that shadow host core
// functionality; those stay off the dispatch surface.
const corePluginCategory = "core"

// RegisterPlugin registers every tool exposed by connected plugins.
// Core-category plugins and core-category tools are skipped. When a
// plugin re-exposes an already-registered name the executor is swapped
// in place, so a reconnecting plugin refreshes its binding without
// changing the registry order.
func RegisterPlugin(reg *registry.Registry, manager *plugin.Manager, opts middleware.Options) ([]registry.ToolDefinition, error) {
	if manager == nil {
		log.Debug().Msg("No plugin manager available, skipping plugin tools")
		return nil, nil
	}

	var registered []registry.ToolDefinition
	for _, connected := range manager.Connected() {
		if connected.Manifest.Category == corePluginCategory {
			log.Debug().
				Str("plugin", connected.Manifest.ID).
				Msg("Skipping core-category plugin")
			continue
		}
		for _, tool := range connected.Tools {
			if tool.Definition.Category == corePluginCategory {
				log.Debug().
					Str("tool", tool.Definition.Name).
					Str("plugin", connected.Manifest.ID).
					Msg("Skipping core-category plugin tool")
				continue
			}

			wrapped := middleware.Wrap(tool.Definition.Name, tool.Executor, opts)

			if reg.Has(tool.Definition.Name) {
				if err := reg.UpdateExecutor(tool.Definition.Name, wrapped); err != nil {
					log.Warn().
						Str("tool", tool.Definition.Name).
						Str("plugin", connected.Manifest.ID).
						Err(err).
						Msg("Failed to refresh plugin tool")
					continue
				}
				registered = append(registered, tool.Definition)
				continue
			}

			if err := reg.Register(tool.Definition, wrapped, registry.SourcePlugin, tool.OwnerID); err != nil {
				log.Warn().
					Str("tool", tool.Definition.Name).
					Str("plugin", connected.Manifest.ID).
					Err(err).
					Msg("Skipping plugin tool")
				continue
			}
			registered = append(registered, tool.Definition)
		}
	}

	return registered, nil
}

package registrar

import (
	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/protocol"
	"github.com/tessera-ai/dispatch/pkg/registry"
)

// RegisterProtocol registers every tool surfaced by connected protocol
// providers. Protocol tools register last, so a name collision with an
// earlier source keeps the earlier tool; the shadowed provider tool is
// reported back to the caller rather than silently dropped.
func RegisterProtocol(reg *registry.Registry, shared *protocol.SharedRegistry, opts middleware.Options) (registered []registry.ToolDefinition, shadowed []string, err error) {
	if shared == nil {
		log.Debug().Msg("No protocol registry available, skipping provider tools")
		return nil, nil, nil
	}

	for _, tool := range shared.Tools() {
		if reg.Has(tool.Definition.Name) {
			log.Warn().
				Str("tool", tool.Definition.Name).
				Str("server", tool.ServerID).
				Msg("Provider tool shadowed by earlier source")
			shadowed = append(shadowed, tool.Definition.Name)
			continue
		}

		wrapped := middleware.Wrap(tool.Definition.Name, tool.Executor, opts)
		if err := reg.Register(tool.Definition, wrapped, registry.SourceProtocol, tool.ServerID); err != nil {
			log.Warn().
				Str("tool", tool.Definition.Name).
				Str("server", tool.ServerID).
				Err(err).
				Msg("Skipping provider tool")
			continue
		}
		registered = append(registered, tool.Definition)
	}

	return registered, shadowed, nil
}

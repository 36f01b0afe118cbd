package registrar

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/metatools"
	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/registry"
	"github.com/tessera-ai/dispatch/pkg/sandbox"
	"github.com/tessera-ai/dispatch/pkg/store"
)

// CustomToolSource lists the stored user-defined tools to register.
type CustomToolSource interface {
	GetActiveTools(ctx context.Context) ([]store.CustomTool, error)
}

// RegisterDynamic registers the dynamic source: the meta-tools first,
// then every enabled user-defined tool bound to the sandbox runner.
// Meta-tool registration failures are fatal; a bad stored tool is
// skipped with a warning so one corrupt record cannot take down agent
// construction.
func RegisterDynamic(ctx context.Context, reg *registry.Registry, engine *metatools.Engine, source CustomToolSource, runner sandbox.Runner, opts middleware.Options) ([]registry.ToolDefinition, error) {
	var registered []registry.ToolDefinition

	if engine != nil {
		for _, meta := range engine.Tools() {
			wrapped := middleware.Wrap(meta.Definition.Name, meta.Executor, opts)
			if err := reg.Register(meta.Definition, wrapped, registry.SourceDynamic, ""); err != nil {
				return registered, fmt.Errorf("failed to register meta-tool %s: %w", meta.Definition.Name, err)
			}
			registered = append(registered, meta.Definition)
		}
	}

	if source == nil || runner == nil {
		return registered, nil
	}

	tools, err := source.GetActiveTools(ctx)
	if err != nil {
		// Custom tools are additive; the meta-tools stay usable.
		log.Warn().Err(err).Msg("Failed to load custom tools, continuing without them")
		return registered, nil
	}

	for _, tool := range tools {
		exec := customToolExecutor(tool, runner)
		wrapped := middleware.Wrap(tool.Definition.Name, exec, opts)
		if err := reg.Register(tool.Definition, wrapped, registry.SourceDynamic, ""); err != nil {
			log.Warn().
				Str("tool", tool.Definition.Name).
				Err(err).
				Msg("Skipping custom tool")
			continue
		}
		registered = append(registered, tool.Definition)
	}

	return registered, nil
}

// customToolExecutor binds a stored tool's code and permissions to the
// sandbox runner.
func customToolExecutor(tool store.CustomTool, runner sandbox.Runner) registry.Executor {
	code := tool.Code
	permissions := tool.Permissions
	return func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		return runner.RunCode(ctx, code, args, permissions)
	}
}

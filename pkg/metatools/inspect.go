package metatools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func inspectSourceDefinition() registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        ToolInspectSource,
		Description: "Inspect the source of a registered tool: code for user-defined tools, provenance for everything else.",
		Category:    "meta",
		Parameters: []registry.ToolParameter{
			{Name: "tool_name", Type: "string", Description: "Name of the tool to inspect", Required: true},
		},
	}
}

// InspectToolSource implements the inspect_tool_source meta-tool.
// User-defined tools return their stored code and permissions; builtin
// tools return registered source text when available; everything else
// reports provenance only.
func (e *Engine) InspectToolSource(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
	toolName, _ := args["tool_name"].(string)
	toolName = strings.TrimSpace(toolName)
	if toolName == "" {
		return registry.Err(registry.CodeValidation, "tool_name parameter is required"), nil
	}

	tool := e.reg.Get(toolName)
	if tool == nil {
		return registry.Err(registry.CodeNotFound, registry.NotFoundMessage(toolName, e.reg.Names())), nil
	}

	switch tool.Source {
	case registry.SourceDynamic:
		return e.inspectDynamic(ctx, tool), nil
	case registry.SourceBuiltin:
		if src, ok := e.builtinSources[toolName]; ok {
			return registry.OkWithMetadata(
				fmt.Sprintf("## %s (builtin)\n\n```go\n%s\n```", toolName, strings.TrimRight(src, "\n")),
				map[string]interface{}{"source": string(tool.Source)},
			), nil
		}
		return registry.Ok(fmt.Sprintf("%s is a builtin tool; source not available.", toolName)), nil
	default:
		return registry.OkWithMetadata(provenance(tool), map[string]interface{}{
			"source": string(tool.Source),
			"owner":  tool.OwnerID,
		}), nil
	}
}

func (e *Engine) inspectDynamic(ctx context.Context, tool *registry.RegisteredTool) registry.ExecutionResult {
	name := tool.Definition.Name
	if IsMetaTool(name) || e.source == nil {
		return registry.Ok(fmt.Sprintf("%s is a built-in dynamic tool; source not available.", name))
	}

	custom, err := e.source.GetByName(ctx, name)
	if err != nil {
		return registry.Ok(fmt.Sprintf("%s is a dynamic tool; stored source not available.", name))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s (user-defined)\n\n", name)
	if len(custom.Permissions) > 0 {
		fmt.Fprintf(&b, "Permissions: %s\n\n", strings.Join(custom.Permissions, ", "))
	}
	fmt.Fprintf(&b, "```\n%s\n```", strings.TrimRight(custom.Code, "\n"))

	return registry.OkWithMetadata(b.String(), map[string]interface{}{
		"source":      string(tool.Source),
		"tool_id":     custom.ID,
		"enabled":     custom.Enabled,
		"created_at":  custom.CreatedAt,
		"updated_at":  custom.UpdatedAt,
		"permissions": custom.Permissions,
	})
}

func provenance(tool *registry.RegisteredTool) string {
	name := tool.Definition.Name
	switch tool.Source {
	case registry.SourcePlugin:
		return fmt.Sprintf("%s is provided by plugin %q; source not available.", name, tool.OwnerID)
	case registry.SourceExtension:
		return fmt.Sprintf("%s is provided by extension pack %q; source not available.", name, tool.OwnerID)
	case registry.SourceSkill:
		return fmt.Sprintf("%s is provided by skill pack %q; source not available.", name, tool.OwnerID)
	case registry.SourceProtocol:
		return fmt.Sprintf("%s is provided by protocol server %q; source not available.", name, tool.OwnerID)
	default:
		return fmt.Sprintf("%s source not available.", name)
	}
}

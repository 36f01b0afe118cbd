package metatools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func getToolHelpDefinition() registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        ToolGetToolHelp,
		Description: "Get full help for one tool (tool_name) or several (tool_names).",
		Category:    "meta",
		Parameters: []registry.ToolParameter{
			{Name: "tool_name", Type: "string", Description: "Single tool name to describe", Required: false},
			{Name: "tool_names", Type: "array", Description: "Several tool names to describe; takes precedence over tool_name", Required: false},
		},
	}
}

// GetToolHelp implements the get_tool_help meta-tool. Unknown names
// get an individual not-found note with suggestions; the call only
// fails when every requested name is unknown.
func (e *Engine) GetToolHelp(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
	names := helpRequestedNames(args)
	if len(names) == 0 {
		return registry.Err(registry.CodeValidation, "tool_name or tool_names is required"), nil
	}

	registered := e.reg.Names()

	var b strings.Builder
	found := 0
	for _, name := range names {
		if def, ok := e.reg.GetDefinition(name); ok {
			b.WriteString(helpBlock(def))
			b.WriteString("\n")
			found++
			continue
		}
		fmt.Fprintf(&b, "%s\n\n", registry.NotFoundMessage(name, registered))
	}

	if found == 0 {
		return registry.Errf(registry.CodeNotFound,
			"none of the requested tools exist: %s", strings.Join(names, ", ")), nil
	}

	return registry.OkWithMetadata(strings.TrimRight(b.String(), "\n"), map[string]interface{}{
		"requested": len(names),
		"found":     found,
	}), nil
}

func helpRequestedNames(args map[string]interface{}) []string {
	// tool_names takes precedence when both are supplied
	if raw, ok := args["tool_names"].([]interface{}); ok && len(raw) > 0 {
		var names []string
		for _, item := range raw {
			if name, ok := item.(string); ok && name != "" {
				names = append(names, name)
			}
		}
		return names
	}
	if names, ok := args["tool_names"].([]string); ok && len(names) > 0 {
		return names
	}
	if name, ok := args["tool_name"].(string); ok && name != "" {
		return []string{name}
	}
	return nil
}

package metatools

import (
	"fmt"
	"strings"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// helpBlock renders the full help text for one tool: description,
// category, tags and the parameter schema.
func helpBlock(def registry.ToolDefinition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n", def.Name)
	fmt.Fprintf(&b, "%s\n", def.Description)
	if def.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", def.Category)
	}
	if len(def.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(def.Tags, ", "))
	}
	if def.RequiresApproval {
		b.WriteString("Requires approval: yes\n")
	}

	if len(def.Parameters) == 0 {
		b.WriteString("Parameters: none\n")
		return b.String()
	}

	b.WriteString("Parameters:\n")
	for _, param := range def.Parameters {
		required := "optional"
		if param.Required {
			required = "required"
		}
		fmt.Fprintf(&b, "  - %s (%s, %s): %s", param.Name, param.Type, required, param.Description)
		if param.Default != nil {
			fmt.Fprintf(&b, " [default: %v]", param.Default)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// briefLine renders the one-line listing for one tool.
func briefLine(def registry.ToolDefinition) string {
	desc := def.Description
	if idx := strings.IndexByte(desc, '\n'); idx >= 0 {
		desc = desc[:idx]
	}
	if def.Category != "" {
		return fmt.Sprintf("- %s [%s]: %s", def.Name, def.Category, desc)
	}
	return fmt.Sprintf("- %s: %s", def.Name, desc)
}

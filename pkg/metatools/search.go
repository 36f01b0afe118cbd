package metatools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

func searchToolsDefinition() registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        ToolSearchTools,
		Description: "Search the available tools by keyword. Use query \"all\" to list every tool.",
		Category:    "meta",
		Parameters: []registry.ToolParameter{
			{Name: "query", Type: "string", Description: "Search keywords, or \"all\"/\"*\" for everything", Required: true},
			{Name: "category", Type: "string", Description: "Filter by exact category", Required: false},
			{Name: "include_params", Type: "boolean", Description: "Include full parameter schemas (default true)", Required: false, Default: true},
		},
	}
}

// SearchTools implements the search_tools meta-tool. The meta-tools
// themselves are always excluded from results.
func (e *Engine) SearchTools(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return registry.Err(registry.CodeValidation, "query parameter is required"), nil
	}

	category, _ := args["category"].(string)
	includeParams := true
	if v, ok := args["include_params"].(bool); ok {
		includeParams = v
	}

	wildcard := query == "all" || query == "*"
	tokens := strings.Fields(strings.ToLower(query))

	var matches []registry.ToolDefinition
	for _, def := range e.reg.Definitions() {
		if IsMetaTool(def.Name) {
			continue
		}
		if category != "" && def.Category != category {
			continue
		}
		if wildcard || matchesTokens(def, tokens) {
			matches = append(matches, def)
		}
	}

	if len(matches) == 0 {
		return registry.Ok(fmt.Sprintf("No tools found matching %q. Try a broader query or \"all\".", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tool(s):\n\n", len(matches))
	for _, def := range matches {
		if includeParams {
			b.WriteString(helpBlock(def))
			b.WriteString("\n")
		} else {
			b.WriteString(briefLine(def))
			b.WriteString("\n")
		}
	}

	return registry.OkWithMetadata(strings.TrimRight(b.String(), "\n"), map[string]interface{}{
		"count": len(matches),
	}), nil
}

// matchesTokens reports whether any query token appears in the tool's
// name, description or tags, case-insensitively.
func matchesTokens(def registry.ToolDefinition, tokens []string) bool {
	haystack := strings.ToLower(def.Name + " " + def.Description + " " + strings.Join(def.Tags, " "))
	for _, token := range tokens {
		if strings.Contains(haystack, token) {
			return true
		}
	}
	return false
}

package metatools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/registry"
)

func useToolDefinition() registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        ToolUseTool,
		Description: "Invoke a registered tool by name with structured arguments.",
		Category:    "meta",
		Parameters: []registry.ToolParameter{
			{Name: "tool_name", Type: "string", Description: "Name of the tool to invoke", Required: true},
			{Name: "arguments", Type: "object", Description: "Arguments for the target tool", Required: false},
		},
	}
}

func batchUseToolDefinition() registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        ToolBatchUseTool,
		Description: "Invoke several registered tools in one call. Calls run in order; one failure does not abort the rest.",
		Category:    "meta",
		Parameters: []registry.ToolParameter{
			{Name: "calls", Type: "array", Description: "List of {tool_name, arguments} entries", Required: true},
		},
	}
}

// UseTool implements the use_tool meta-tool: the single-call
// indirection path. Validation failures never reach the target
// executor.
func (e *Engine) UseTool(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
	toolName, _ := args["tool_name"].(string)
	toolName = strings.TrimSpace(toolName)
	if toolName == "" {
		return registry.Err(registry.CodeValidation, "tool_name parameter is required"), nil
	}

	toolArgs, _ := args["arguments"].(map[string]interface{})
	return e.invokeTool(ctx, toolName, toolArgs), nil
}

// invokeTool validates and dispatches one indirect call, returning a
// normalized result in every case.
func (e *Engine) invokeTool(ctx context.Context, toolName string, toolArgs map[string]interface{}) registry.ExecutionResult {
	tool := e.reg.Get(toolName)
	if tool == nil {
		return registry.Err(registry.CodeNotFound, registry.NotFoundMessage(toolName, e.reg.Names()))
	}

	if missing := missingRequired(tool.Definition, toolArgs); len(missing) > 0 {
		return registry.Errf(registry.CodeValidation,
			"missing required parameter(s) %s for %s.\n\n%s",
			strings.Join(missing, ", "), toolName, helpBlock(tool.Definition))
	}

	size, err := middleware.SerializedArgsSize(toolArgs)
	if err != nil {
		return registry.Err(registry.CodeValidation, err.Error())
	}
	if size > e.limits.ArgsMaxSize {
		return registry.Errf(registry.CodeArgsTooLarge,
			"arguments too large: %d bytes exceeds the %d byte limit", size, e.limits.ArgsMaxSize)
	}

	toolArgs = e.clampArguments(tool, toolArgs)

	res := e.reg.Execute(ctx, toolName, toolArgs)
	if !res.OK {
		res.Message = fmt.Sprintf("%s failed: %s\n\n%s", toolName, res.Message, helpBlock(tool.Definition))
	}
	return res
}

// clampArguments applies source-specific argument clamping: dynamic
// tools get a numeric "limit" argument capped so user code cannot
// request unbounded result sets.
func (e *Engine) clampArguments(tool *registry.RegisteredTool, args map[string]interface{}) map[string]interface{} {
	if tool.Source != registry.SourceDynamic || e.limits.LimitCap <= 0 {
		return args
	}

	limit, ok := args["limit"].(float64)
	if !ok || limit <= float64(e.limits.LimitCap) {
		return args
	}

	clamped := make(map[string]interface{}, len(args))
	for k, v := range args {
		clamped[k] = v
	}
	clamped["limit"] = float64(e.limits.LimitCap)

	log.Debug().
		Str("tool", tool.Definition.Name).
		Float64("requested", limit).
		Int("cap", e.limits.LimitCap).
		Msg("Clamped limit argument")

	return clamped
}

// BatchUseTool implements the batch_use_tool meta-tool. Calls are
// issued in input order and reported one line per call; the overall
// result fails only when every call failed.
func (e *Engine) BatchUseTool(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
	calls, err := parseBatchCalls(args["calls"])
	if err != nil {
		if e.metrics != nil {
			e.metrics.BatchCallsRejected.Inc()
		}
		return registry.Err(registry.CodeValidation, err.Error()), nil
	}

	if len(calls) == 0 {
		if e.metrics != nil {
			e.metrics.BatchCallsRejected.Inc()
		}
		return registry.Err(registry.CodeValidation, "calls cannot be empty"), nil
	}
	if len(calls) > e.limits.MaxBatchCalls {
		if e.metrics != nil {
			e.metrics.BatchCallsRejected.Inc()
		}
		return registry.Errf(registry.CodeValidation,
			"too many calls: %d exceeds the maximum of %d", len(calls), e.limits.MaxBatchCalls), nil
	}

	if e.metrics != nil {
		e.metrics.BatchCallsTotal.Inc()
	}

	var b strings.Builder
	failures := 0
	for i, call := range calls {
		res := e.invokeTool(ctx, call.ToolName, call.Arguments)
		if res.OK {
			fmt.Fprintf(&b, "[%d] %s: OK\n%s\n", i+1, call.ToolName, indent(res.Content))
		} else {
			failures++
			fmt.Fprintf(&b, "[%d] %s: FAILED\n%s\n", i+1, call.ToolName, indent(firstLine(res.Message)))
		}
	}

	report := strings.TrimRight(b.String(), "\n")
	metadata := map[string]interface{}{
		"calls":    len(calls),
		"failures": failures,
	}

	if failures == len(calls) {
		return registry.ExecutionResult{
			Code:     registry.CodeExecution,
			Message:  fmt.Sprintf("all %d call(s) failed:\n%s", len(calls), report),
			Metadata: metadata,
		}, nil
	}

	return registry.OkWithMetadata(report, metadata), nil
}

func parseBatchCalls(raw interface{}) ([]BatchCall, error) {
	items, ok := raw.([]interface{})
	if !ok {
		if calls, ok := raw.([]BatchCall); ok {
			return calls, nil
		}
		return nil, fmt.Errorf("calls must be an array of {tool_name, arguments} entries")
	}

	calls := make([]BatchCall, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("calls[%d] must be an object", i)
		}
		name, _ := entry["tool_name"].(string)
		if name == "" {
			return nil, fmt.Errorf("calls[%d] is missing tool_name", i)
		}
		callArgs, _ := entry["arguments"].(map[string]interface{})
		calls = append(calls, BatchCall{ToolName: name, Arguments: callArgs})
	}
	return calls, nil
}

func missingRequired(def registry.ToolDefinition, args map[string]interface{}) []string {
	var missing []string
	for _, name := range def.RequiredParameters() {
		if _, present := args[name]; !present {
			missing = append(missing, name)
		}
	}
	return missing
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

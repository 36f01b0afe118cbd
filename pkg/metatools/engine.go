// Package metatools implements the fixed set of tools that operate on
// the tool registry itself: search, help, single and batch indirect
// invocation, and source inspection. They give the model discoverable
// access to the full tool surface without enumerating every tool in
// its context window.
package metatools

import (
	"context"

	"github.com/tessera-ai/dispatch/internal/metrics"
	"github.com/tessera-ai/dispatch/pkg/registry"
	"github.com/tessera-ai/dispatch/pkg/store"
)

// Meta-tool names. These are always excluded from search results to
// prevent recursive self-listing.
const (
	ToolSearchTools   = "search_tools"
	ToolGetToolHelp   = "get_tool_help"
	ToolUseTool       = "use_tool"
	ToolBatchUseTool  = "batch_use_tool"
	ToolInspectSource = "inspect_tool_source"
)

// MetaToolNames lists the five meta-tools.
var MetaToolNames = []string{
	ToolSearchTools,
	ToolGetToolHelp,
	ToolUseTool,
	ToolBatchUseTool,
	ToolInspectSource,
}

// IsMetaTool reports whether name is one of the five meta-tools.
func IsMetaTool(name string) bool {
	for _, n := range MetaToolNames {
		if n == name {
			return true
		}
	}
	return false
}

// BatchCall is one entry of a batch_use_tool invocation.
type BatchCall struct {
	ToolName  string                 `json:"tool_name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Limits bounds meta-tool invocation payloads.
type Limits struct {
	// ArgsMaxSize caps the serialized argument payload of an
	// indirect call in bytes.
	ArgsMaxSize int
	// MaxBatchCalls caps batch_use_tool input length.
	MaxBatchCalls int
	// LimitCap clamps a numeric "limit" argument on dynamic tools.
	LimitCap int
}

// DefaultLimits mirror the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		ArgsMaxSize:   64 * 1024,
		MaxBatchCalls: 10,
		LimitCap:      100,
	}
}

// SourceStore resolves stored user-defined tools for inspection.
type SourceStore interface {
	GetByName(ctx context.Context, name string) (*store.CustomTool, error)
}

// Engine holds the registry the meta-tools operate on.
type Engine struct {
	reg            *registry.Registry
	source         SourceStore
	builtinSources map[string]string
	limits         Limits
	metrics        *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithSourceStore wires the custom-tool store for inspect_tool_source.
func WithSourceStore(s SourceStore) Option {
	return func(e *Engine) { e.source = s }
}

// WithBuiltinSources exposes builtin tool source text by tool name.
func WithBuiltinSources(sources map[string]string) Option {
	return func(e *Engine) { e.builtinSources = sources }
}

// WithLimits overrides the default limits.
func WithLimits(limits Limits) Option {
	return func(e *Engine) { e.limits = limits }
}

// WithMetrics wires batch counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a meta-tool engine over the registry.
func NewEngine(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MetaTool pairs a definition with its executor for registration.
type MetaTool struct {
	Definition registry.ToolDefinition
	Executor   registry.Executor
}

// Tools returns the five meta-tools in stable order. The dynamic
// registrar wraps and registers them like any other executor.
func (e *Engine) Tools() []MetaTool {
	return []MetaTool{
		{Definition: searchToolsDefinition(), Executor: e.SearchTools},
		{Definition: getToolHelpDefinition(), Executor: e.GetToolHelp},
		{Definition: useToolDefinition(), Executor: e.UseTool},
		{Definition: batchUseToolDefinition(), Executor: e.BatchUseTool},
		{Definition: inspectSourceDefinition(), Executor: e.InspectToolSource},
	}
}

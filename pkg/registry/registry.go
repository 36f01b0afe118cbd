package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// RegisteredTool is a definition bound to an executor, plus provenance.
type RegisteredTool struct {
	Definition ToolDefinition
	Executor   Executor
	Source     ToolSource
	OwnerID    string

	schema *gojsonschema.Schema
}

// Registry is the per-agent tool namespace: name -> registered tool.
// One instance is built per agent/session at construction time and
// discarded on cache eviction; it is never persisted. Upstream changes
// (tool CRUD, extension enable/disable, plugin connect/disconnect) are
// handled by rebuilding the registry, not by patching it in place.
type Registry struct {
	tools map[string]*RegisteredTool
	order []string
	mu    sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*RegisteredTool),
	}
}

// Register adds a tool under its definition name. Registering a name
// that already exists fails with ErrAlreadyExists; callers that want
// replace semantics use UpdateExecutor.
func (r *Registry) Register(def ToolDefinition, exec Executor, source ToolSource, ownerID string) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if exec == nil {
		return fmt.Errorf("%w: executor cannot be nil for %s", ErrValidation, def.Name)
	}
	if !source.Valid() {
		return fmt.Errorf("%w: unknown tool source %q", ErrValidation, string(source))
	}

	schema, err := def.CompileSchema()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, def.Name)
	}

	r.tools[def.Name] = &RegisteredTool{
		Definition: def,
		Executor:   exec,
		Source:     source,
		OwnerID:    ownerID,
		schema:     schema,
	}
	r.order = append(r.order, def.Name)

	log.Debug().
		Str("tool", def.Name).
		Str("source", string(source)).
		Msg("Tool registered")

	return nil
}

// Unregister removes a tool by name, reporting whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return false
	}

	delete(r.tools, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	log.Debug().Str("tool", name).Msg("Tool unregistered")
	return true
}

// UnregisterOwner removes every tool registered by ownerID and returns
// the removed names. Used when a plugin disconnects or an extension is
// uninstalled.
func (r *Registry) UnregisterOwner(ownerID string) []string {
	r.mu.RLock()
	var names []string
	for _, name := range r.order {
		if r.tools[name].OwnerID == ownerID {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()

	for _, name := range names {
		r.Unregister(name)
	}
	return names
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// Get returns the registered tool for name, or nil.
func (r *Registry) Get(name string) *RegisteredTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// GetDefinition returns the definition for name, or false.
func (r *Registry) GetDefinition(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return ToolDefinition{}, false
	}
	return tool.Definition, true
}

// Definitions returns every registered definition in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Names returns every registered tool name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// UpdateExecutor swaps the executor of an existing entry in place,
// preserving registration order. Used by registrars that re-register
// an already-known name (plugin reconnect, protocol refresh).
func (r *Registry) UpdateExecutor(name string, exec Executor) error {
	if exec == nil {
		return fmt.Errorf("%w: executor cannot be nil for %s", ErrValidation, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tool, exists := r.tools[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	tool.Executor = exec

	log.Debug().Str("tool", name).Msg("Tool executor updated")
	return nil
}

// ValidateArguments checks args against the tool's parameter schema.
func (r *Registry) ValidateArguments(name string, args map[string]interface{}) error {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return ValidateArguments(tool.schema, args)
}

// Execute looks up and runs a tool, always returning a normalized
// result. An unknown name yields a not-found result with fuzzy name
// suggestions; an executor panic or error is converted to an Err
// result so callers never see a raised failure.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (result ExecutionResult) {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return Err(CodeNotFound, NotFoundMessage(name, r.Names()))
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("tool", name).
				Interface("panic", rec).
				Msg("Tool executor panicked")
			result = Errf(CodeExecution, "tool %s panicked: %v", name, rec)
		}
	}()

	res, err := tool.Executor(ctx, args)
	if err != nil {
		return Err(CodeExecution, err.Error())
	}
	return res
}

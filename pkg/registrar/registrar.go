// Package registrar assembles a per-agent tool registry from the five
// tool sources, in fixed order: builtin, dynamic, plugin, extension,
// protocol. Earlier sources win name collisions. Every executor is
// wrapped with the dispatch middleware before registration, so tools
// behave identically regardless of where they came from.
package registrar

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/internal/metrics"
	"github.com/tessera-ai/dispatch/pkg/extension"
	"github.com/tessera-ai/dispatch/pkg/metatools"
	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/plugin"
	"github.com/tessera-ai/dispatch/pkg/protocol"
	"github.com/tessera-ai/dispatch/pkg/registry"
	"github.com/tessera-ai/dispatch/pkg/sandbox"
	"github.com/tessera-ai/dispatch/pkg/store"
)

// Builder holds the source dependencies for one registry build. Any
// nil dependency simply contributes no tools; registry construction
// never fails because a source is unavailable.
type Builder struct {
	Host       *Host
	Store      *store.SQLiteStore
	Runner     sandbox.Runner
	Plugins    *plugin.Manager
	Extensions *extension.Catalog
	Protocol   *protocol.SharedRegistry
	Metrics    *metrics.Metrics

	// Limits configures the meta-tool engine; zero means defaults.
	Limits metatools.Limits
	// Wrap configures the middleware applied to every executor.
	Wrap middleware.Options
}

// Report summarizes one registry build.
type Report struct {
	// BySource maps each source to the names it registered, in
	// registration order.
	BySource map[registry.ToolSource][]string
	// Shadowed lists provider tools dropped to a name collision with
	// an earlier source.
	Shadowed []string
}

// Total returns the number of registered tools across all sources.
func (r *Report) Total() int {
	n := 0
	for _, names := range r.BySource {
		n += len(names)
	}
	return n
}

// Build constructs a fresh registry from all available sources and
// returns it with the meta-tool engine bound to it. A failure in the
// builtin or meta-tool phase is fatal; later sources degrade to
// warnings inside their registrars.
func (b *Builder) Build(ctx context.Context) (*registry.Registry, *metatools.Engine, *Report, error) {
	reg := registry.New()
	report := &Report{BySource: make(map[registry.ToolSource][]string)}

	limits := b.Limits
	if limits == (metatools.Limits{}) {
		limits = metatools.DefaultLimits()
	}

	engineOpts := []metatools.Option{metatools.WithLimits(limits)}
	if b.Store != nil {
		engineOpts = append(engineOpts, metatools.WithSourceStore(b.Store))
	}
	if b.Metrics != nil {
		engineOpts = append(engineOpts, metatools.WithMetrics(b.Metrics))
	}
	engine := metatools.NewEngine(reg, engineOpts...)

	builtins, err := RegisterBuiltin(reg, b.Host, b.Extensions, b.Wrap)
	if err != nil {
		return nil, nil, nil, err
	}
	report.record(registry.SourceBuiltin, builtins)

	var customSource CustomToolSource
	if b.Store != nil {
		customSource = b.Store
	}
	dynamic, err := RegisterDynamic(ctx, reg, engine, customSource, b.Runner, b.Wrap)
	if err != nil {
		return nil, nil, nil, err
	}
	report.record(registry.SourceDynamic, dynamic)

	plugins, err := RegisterPlugin(reg, b.Plugins, b.Wrap)
	if err != nil {
		return nil, nil, nil, err
	}
	report.record(registry.SourcePlugin, plugins)

	extensions, err := RegisterExtension(reg, b.Extensions, b.Wrap)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, def := range extensions {
		source := registry.SourceExtension
		if tool := reg.Get(def.Name); tool != nil {
			source = tool.Source
		}
		report.record(source, []registry.ToolDefinition{def})
	}

	providers, shadowed, err := RegisterProtocol(reg, b.Protocol, b.Wrap)
	if err != nil {
		return nil, nil, nil, err
	}
	report.record(registry.SourceProtocol, providers)
	report.Shadowed = shadowed

	if b.Metrics != nil {
		for source, names := range report.BySource {
			b.Metrics.RegisteredTools.WithLabelValues(string(source)).Set(float64(len(names)))
		}
	}

	log.Info().
		Int("tools", reg.Len()).
		Int("shadowed", len(shadowed)).
		Msg("Tool registry built")

	return reg, engine, report, nil
}

func (r *Report) record(source registry.ToolSource, defs []registry.ToolDefinition) {
	for _, def := range defs {
		r.BySource[source] = append(r.BySource[source], def.Name)
	}
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessera-ai/dispatch/internal/config"
	"github.com/tessera-ai/dispatch/internal/metrics"
	"github.com/tessera-ai/dispatch/internal/tracing"
	"github.com/tessera-ai/dispatch/pkg/extension"
	"github.com/tessera-ai/dispatch/pkg/metatools"
	"github.com/tessera-ai/dispatch/pkg/middleware"
	"github.com/tessera-ai/dispatch/pkg/registrar"
	"github.com/tessera-ai/dispatch/pkg/registry"
	"github.com/tessera-ai/dispatch/pkg/retry"
	"github.com/tessera-ai/dispatch/pkg/sandbox"
	"github.com/tessera-ai/dispatch/pkg/store"
)

var (
	toolsSource   string
	toolsArgsJSON string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and invoke the local tool registry",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools",
	RunE:  runToolsList,
}

var toolsDescribeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Show full help for one tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsDescribe,
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <name>",
	Short: "Invoke a tool with JSON arguments",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolsCall,
}

func init() {
	toolsListCmd.Flags().StringVar(&toolsSource, "source", "", "filter by source (builtin, dynamic, plugin, extension, skill, protocol)")
	toolsCallCmd.Flags().StringVar(&toolsArgsJSON, "args", "{}", "tool arguments as JSON")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsDescribeCmd)
	toolsCmd.AddCommand(toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}

// buildObservability assembles the tracer and metrics sink the
// execution wrapper emits into. Tracing disabled yields a noop tracer;
// metrics are always collected.
func buildObservability(cfg *config.Config) (tracing.Tracer, *metrics.Metrics, error) {
	var tracer tracing.Tracer = tracing.NoopTracer{}
	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		tracer = tracing.NewOtelTracer("")
	}
	return tracer, metrics.NewMetrics(), nil
}

// buildRegistry assembles a local registry from the builtin, dynamic
// and extension sources reachable without a running daemon.
func buildRegistry(ctx context.Context, cfg *config.Config) (*registry.Registry, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	tracer, m, err := buildObservability(cfg)
	if err != nil {
		return nil, nil, err
	}

	var toolStore *store.SQLiteStore
	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path, tracer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open tool store: %w", err)
		}
		toolStore = s
		cleanup = append(cleanup, func() { s.Close() })
	}

	var catalog *extension.Catalog
	if cfg.Extensions.Dir != "" {
		catalog = extension.NewCatalog(cfg.Extensions.Dir)
	}

	wrap := middleware.Options{
		Tracer:         tracer,
		Metrics:        m,
		ArgsMaxSize:    cfg.Limits.ToolArgsMaxSize,
		ContentMaxSize: cfg.Limits.ToolContentMaxSize,
		Timeout:        cfg.Limits.ExecutionTimeout,
	}
	if cfg.Retry.Enabled {
		wrap.Retry = &retry.Policy{
			MaxRetries:        cfg.Retry.MaxRetries,
			InitialDelay:      cfg.Retry.InitialDelay,
			MaxDelay:          cfg.Retry.MaxDelay,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
			Jitter:            cfg.Retry.Jitter,
		}
	}

	builder := &registrar.Builder{
		Host:       registrar.NewHost(map[string]string{"version": version}),
		Store:      toolStore,
		Runner:     sandbox.NewHostRunner(cfg.Sandbox.Interpreter, cfg.Sandbox.Args, cfg.Sandbox.Timeout),
		Extensions: catalog,
		Metrics:    m,
		Limits: metatools.Limits{
			ArgsMaxSize:   cfg.Limits.ToolArgsMaxSize,
			MaxBatchCalls: cfg.Limits.MaxBatchToolCalls,
			LimitCap:      cfg.Limits.UseToolLimitCap,
		},
		Wrap: wrap,
	}

	reg, _, _, err := builder.Build(ctx)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return reg, closeAll, nil
}

func withRegistry(fn func(ctx context.Context, reg *registry.Registry) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lg, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reg, cleanup, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, reg)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	return withRegistry(func(ctx context.Context, reg *registry.Registry) error {
		count := 0
		for _, name := range reg.Names() {
			tool := reg.Get(name)
			if toolsSource != "" && string(tool.Source) != toolsSource {
				continue
			}
			fmt.Printf("%-40s %-10s %s\n", name, tool.Source, firstLine(tool.Definition.Description))
			count++
		}
		fmt.Printf("\n%d tool(s)\n", count)
		return nil
	})
}

func runToolsDescribe(cmd *cobra.Command, args []string) error {
	name := args[0]
	return withRegistry(func(ctx context.Context, reg *registry.Registry) error {
		res := reg.Execute(ctx, metatools.ToolGetToolHelp, map[string]interface{}{
			"tool_name": name,
		})
		if !res.OK {
			return fmt.Errorf("%s", res.Message)
		}
		fmt.Println(res.Content)
		return nil
	})
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	name := args[0]

	var toolArgs map[string]interface{}
	if err := json.Unmarshal([]byte(toolsArgsJSON), &toolArgs); err != nil {
		return fmt.Errorf("invalid --args JSON: %w", err)
	}

	return withRegistry(func(ctx context.Context, reg *registry.Registry) error {
		res := reg.Execute(ctx, name, toolArgs)
		if !res.OK {
			return fmt.Errorf("[%s] %s", res.Code, res.Message)
		}
		fmt.Println(res.Content)
		return nil
	})
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}

// Package config holds dispatch-core configuration: limits, retry
// defaults, tracing and metrics toggles.
package config

import (
	"fmt"
	"time"
)

// Config represents the dispatch core configuration
type Config struct {
	// Limits
	Limits LimitsConfig `json:"limits"`

	// Retry
	Retry RetryConfig `json:"retry"`

	// Tracing
	Tracing TracingConfig `json:"tracing"`

	// Logging
	Logging LoggingConfig `json:"logging"`

	// Store
	Store StoreConfig `json:"store"`

	// Sandbox
	Sandbox SandboxConfig `json:"sandbox"`

	// Extensions
	Extensions ExtensionsConfig `json:"extensions"`
}

// LimitsConfig bounds tool invocation payloads.
type LimitsConfig struct {
	// ToolArgsMaxSize caps serialized argument payloads in bytes.
	ToolArgsMaxSize int `json:"tool_args_max_size"`
	// ToolContentMaxSize caps result content before truncation.
	ToolContentMaxSize int `json:"tool_content_max_size"`
	// MaxBatchToolCalls caps batch_use_tool input length.
	MaxBatchToolCalls int `json:"max_batch_tool_calls"`
	// UseToolLimitCap clamps a numeric "limit" argument in use_tool.
	UseToolLimitCap int `json:"use_tool_limit_cap"`
	// ExecutionTimeout bounds a single executor invocation.
	ExecutionTimeout time.Duration `json:"execution_timeout"`
}

// RetryConfig configures the retry engine defaults.
type RetryConfig struct {
	Enabled           bool          `json:"enabled"`
	MaxRetries        int           `json:"max_retries"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	Jitter            bool          `json:"jitter"`
}

// TracingConfig configures trace emission.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"service_name"`
}

// LoggingConfig configures the zerolog setup.
type LoggingConfig struct {
	Level   string `json:"level"` // debug, info, warn, error
	File    string `json:"file"`
	Console bool   `json:"console"`
	Pretty  bool   `json:"pretty"`
}

// StoreConfig configures the custom-tool store.
type StoreConfig struct {
	// Path is the SQLite database path; ":memory:" for ephemeral.
	Path string `json:"path"`
}

// SandboxConfig configures the user-code runner.
type SandboxConfig struct {
	// Interpreter is the command used to run user tool code.
	Interpreter string `json:"interpreter"`
	// Args are passed before the code file argument.
	Args []string `json:"args"`
	// Timeout bounds a single sandboxed run.
	Timeout time.Duration `json:"timeout"`
}

// ExtensionsConfig configures extension pack discovery.
type ExtensionsConfig struct {
	// Dir is the directory scanned for extension pack manifests.
	Dir string `json:"dir"`
	// Watch enables the fsnotify invalidation watcher.
	Watch bool `json:"watch"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			ToolArgsMaxSize:    64 * 1024,
			ToolContentMaxSize: 32 * 1024,
			MaxBatchToolCalls:  10,
			UseToolLimitCap:    100,
			ExecutionTimeout:   30 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:           true,
			MaxRetries:        2,
			InitialDelay:      time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2,
			Jitter:            true,
		},
		Tracing: TracingConfig{
			Enabled:     true,
			ServiceName: "dispatch",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Store: StoreConfig{
			Path: ":memory:",
		},
		Sandbox: SandboxConfig{
			Interpreter: "deno",
			Args:        []string{"run", "--quiet", "--no-prompt"},
			Timeout:     30 * time.Second,
		},
		Extensions: ExtensionsConfig{
			Watch: false,
		},
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Limits.ToolArgsMaxSize <= 0 {
		return fmt.Errorf("limits.tool_args_max_size must be positive")
	}
	if c.Limits.MaxBatchToolCalls <= 0 {
		return fmt.Errorf("limits.max_batch_tool_calls must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be at least 1")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

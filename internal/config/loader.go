package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Load reads configuration from an optional JSON file, then applies
// DISPATCH_* environment overrides on top of defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISPATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DISPATCH_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DISPATCH_EXTENSIONS_DIR"); v != "" {
		cfg.Extensions.Dir = v
	}
	if v, ok := envInt("DISPATCH_TOOL_ARGS_MAX_SIZE"); ok {
		cfg.Limits.ToolArgsMaxSize = v
	}
	if v, ok := envInt("DISPATCH_MAX_BATCH_TOOL_CALLS"); ok {
		cfg.Limits.MaxBatchToolCalls = v
	}
	if v, ok := envInt("DISPATCH_MAX_RETRIES"); ok {
		cfg.Retry.MaxRetries = v
	}
	if v := os.Getenv("DISPATCH_RETRY_INITIAL_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Retry.InitialDelay = d
		}
	}
	if v := os.Getenv("DISPATCH_TRACING_ENABLED"); v != "" {
		cfg.Tracing.Enabled = v == "true" || v == "1"
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Package middleware decorates tool executors with the uniform
// dispatch envelope: argument size limits, tracing, metrics, output
// truncation, error normalization and optional retry. Every registrar
// wraps its executors here before touching the registry, so every
// tool behaves identically regardless of source.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/internal/metrics"
	"github.com/tessera-ai/dispatch/internal/tracing"
	"github.com/tessera-ai/dispatch/pkg/registry"
	"github.com/tessera-ai/dispatch/pkg/retry"
)

const (
	// DefaultArgsMaxSize caps the serialized argument payload.
	DefaultArgsMaxSize = 64 * 1024
	// DefaultContentMaxSize caps result content before truncation.
	DefaultContentMaxSize = 32 * 1024
)

// Options configures the wrapper. Zero-value fields disable the
// corresponding concern.
type Options struct {
	Tracer         tracing.Tracer
	Metrics        *metrics.Metrics
	ArgsMaxSize    int
	ContentMaxSize int
	// Timeout bounds one executor invocation; retries each get a
	// fresh timeout.
	Timeout time.Duration
	Retry   *retry.Policy
}

// SerializedArgsSize returns the size in bytes of the JSON-encoded
// arguments, or an error when they cannot be encoded.
func SerializedArgsSize(args map[string]interface{}) (int, error) {
	if len(args) == 0 {
		return 2, nil // "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("%w: arguments are not serializable: %v", registry.ErrValidation, err)
	}
	return len(data), nil
}

// Wrap decorates exec with the uniform execution envelope. The
// returned executor never returns a Go error for executor-level
// failures: those are normalized into Err results. The error return is
// reserved for the retry engine's exhaustion channel.
func Wrap(name string, exec registry.Executor, opts Options) registry.Executor {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.NoopTracer{}
	}
	argsMax := opts.ArgsMaxSize
	if argsMax <= 0 {
		argsMax = DefaultArgsMaxSize
	}
	contentMax := opts.ContentMaxSize
	if contentMax <= 0 {
		contentMax = DefaultContentMaxSize
	}

	return func(ctx context.Context, args map[string]interface{}) (registry.ExecutionResult, error) {
		size, err := SerializedArgsSize(args)
		if err != nil {
			return registry.Err(registry.CodeValidation, err.Error()), nil
		}
		if size > argsMax {
			return registry.Errf(registry.CodeArgsTooLarge,
				"arguments too large: %d bytes exceeds the %d byte limit", size, argsMax), nil
		}

		ctx = tracer.ToolCallStart(ctx, name)
		start := time.Now()

		var res registry.ExecutionResult
		if opts.Retry != nil {
			policy := *opts.Retry
			if opts.Metrics != nil && policy.OnRetry == nil {
				policy.OnRetry = func(attempt int, err error, delay time.Duration) {
					opts.Metrics.ToolRetriesTotal.WithLabelValues(name).Inc()
				}
			}
			res, err = retry.Do(ctx, policy, func(ctx context.Context) (registry.ExecutionResult, error) {
				return invoke(ctx, name, exec, args, opts.Timeout)
			})
		} else {
			res, err = invoke(ctx, name, exec, args, opts.Timeout)
			err = nil // normalized into res by invoke
		}

		if res.OK && len(res.Content) > contentMax {
			res = truncate(res, contentMax)
		}

		duration := time.Since(start)
		tracer.ToolCallEnd(ctx, tracing.ExecutionTrace{
			ToolName:     name,
			StartedAt:    start,
			DurationMs:   duration.Milliseconds(),
			Success:      res.OK,
			ErrorMessage: res.Message,
		})
		if opts.Metrics != nil {
			opts.Metrics.RecordExecution(name, res.OK, duration.Seconds(), string(res.Code))
		}

		return res, err
	}
}

// invoke runs the underlying executor, converting panics and returned
// errors into Err results so nothing escapes the envelope.
func invoke(ctx context.Context, name string, exec registry.Executor, args map[string]interface{}, timeout time.Duration) (res registry.ExecutionResult, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("tool", name).
				Interface("panic", rec).
				Msg("Tool executor panicked")
			res = registry.Errf(registry.CodeExecution, "tool %s panicked: %v", name, rec)
			err = nil
		}
	}()

	res, execErr := exec(ctx, args)
	if execErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return registry.Errf(registry.CodeTimeout, "tool %s timed out after %v", name, timeout), execErr
		}
		return registry.Err(registry.CodeExecution, execErr.Error()), execErr
	}
	return res, nil
}

func truncate(res registry.ExecutionResult, max int) registry.ExecutionResult {
	original := len(res.Content)
	if res.Metadata == nil {
		res.Metadata = map[string]interface{}{}
	}
	res.Metadata["truncated"] = true
	res.Metadata["original_size"] = original

	// Back up to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := max
	for cut > 0 && !utf8.RuneStart(res.Content[cut]) {
		cut--
	}
	res.Content = res.Content[:cut] + "\n... [output truncated]"

	log.Warn().
		Int("original", original).
		Int("max", max).
		Msg("Tool output truncated")

	return res
}

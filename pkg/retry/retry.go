// Package retry classifies failures as transient or permanent and
// retries operations with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tessera-ai/dispatch/pkg/registry"
)

// ErrRetryExhausted wraps the last error after all attempts failed.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// Policy controls retry behavior. Total attempts = MaxRetries + 1.
type Policy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            bool

	// IsRetryable overrides the default transient/permanent
	// classification when non-nil.
	IsRetryable func(err error) bool

	// OnRetry fires before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy returns the policy used by the execution wrapper when
// retry is enabled without further configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        2,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            true,
	}
}

// Delay computes the backoff before retry k (1-indexed):
// min(initial * multiplier^(k-1), max), optionally jittered by a
// symmetric +/-50% random factor.
func (p Policy) Delay(k int) time.Duration {
	multiplier := p.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	delay := float64(p.InitialDelay)
	for i := 1; i < k; i++ {
		delay *= multiplier
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		// 0.5x..1.5x
		delay *= 0.5 + rand.Float64()
	}

	return time.Duration(delay)
}

func (p Policy) retryable(err error) bool {
	if p.IsRetryable != nil {
		return p.IsRetryable(err)
	}
	return IsRetryableError(err)
}

// Op is a retryable operation. It reports failure on either channel:
// a typed Err result (retried based on the wrapped error) or a
// returned error (classified the same way, wrapped in
// ErrRetryExhausted once attempts run out).
type Op func(ctx context.Context) (registry.ExecutionResult, error)

// Do runs op under the policy. Permanent failures are returned
// immediately. On the final attempt a retryable Err result is returned
// as-is so the original error payload survives; a returned error is
// wrapped in ErrRetryExhausted to preserve the caller's error-handling
// path.
func Do(ctx context.Context, policy Policy, op Op) (registry.ExecutionResult, error) {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		res, err := op(ctx)

		if err == nil && res.OK {
			return res, nil
		}

		final := attempt == policy.MaxRetries

		if err != nil {
			lastErr = err
			if !policy.retryable(err) {
				return res, err
			}
			if final {
				return res, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, policy.MaxRetries+1, lastErr)
			}
		} else {
			resultErr := errors.New(res.Message)
			if !policy.retryable(resultErr) {
				return res, nil
			}
			if final {
				// Final-attempt retryable Err results are returned
				// unwrapped so callers see the original payload.
				return res, nil
			}
			lastErr = resultErr
		}

		delay := policy.Delay(attempt + 1)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, lastErr, delay)
		}

		log.Debug().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(lastErr).
			Msg("Retrying after transient failure")

		select {
		case <-ctx.Done():
			return registry.Err(registry.CodeTimeout, ctx.Err().Error()), ctx.Err()
		case <-time.After(delay):
		}
	}

	// Unreachable: the final attempt always returns above.
	return registry.Err(registry.CodeExecution, "retry loop exited unexpectedly"), lastErr
}

var retryablePhrases = []string{
	"timeout",
	"timed out",
	"econnreset",
	"econnrefused",
	"connection reset",
	"connection refused",
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"too many requests",
	"temporarily unavailable",
	"overloaded",
}

var permanentPhrases = []string{
	"validation",
	"invalid",
	"not found",
	"unauthorized",
	"forbidden",
	"authentication",
	"401",
	"403",
}

// IsRetryableError is the default transient/permanent classification:
// timeouts, connection resets/refusals, HTTP 429/5xx and rate-limit
// phrasing retry; validation, not-found and auth failures do not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, registry.ErrNotFound) ||
		errors.Is(err, registry.ErrValidation) ||
		errors.Is(err, registry.ErrArgsTooLarge) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range permanentPhrases {
		if strings.Contains(msg, phrase) {
			return false
		}
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/southerncoder/faultkit/errors"
)

// jitterFactor is the uniform perturbation applied to backoff delays.
const jitterFactor = 0.25

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// BackoffMultiplier is the exponential growth factor between attempts.
	BackoffMultiplier float64
	// Jitter perturbs each delay by ±25% to avoid synchronized retry storms.
	Jitter bool
	// RetryableKinds is the set of error kinds worth retrying. Defaults to
	// the taxonomy's retryable kinds.
	RetryableKinds []errors.Kind
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableKinds:    errors.RetryableKinds(),
	}
}

// Retry executes fn with bounded retries and exponential backoff. Each
// failure is classified; a failure whose kind is outside RetryableKinds (or
// whose classification overrides retryable to false) is returned immediately
// as a classified error. When every attempt fails, the terminal error matches
// errors.ErrRetriesExhausted and wraps the last raw failure.
//
// Backoff sleeps suspend only the calling goroutine and honor ctx: on
// cancellation the context error is returned as-is, outside the taxonomy.
func Retry[T any](ctx context.Context, ectx *errors.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2.0
	}
	if len(cfg.RetryableKinds) == 0 {
		cfg.RetryableKinds = errors.RetryableKinds()
	}
	retryable := make(map[errors.Kind]bool, len(cfg.RetryableKinds))
	for _, k := range cfg.RetryableKinds {
		retryable[k] = true
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		classified := errors.Classify(err, ectx)
		if !classified.Retryable || !retryable[classified.Kind] {
			return zero, classified
		}

		// The last attempt's failure is terminal regardless of retryability.
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := backoffDelay(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, errors.RetriesExhausted(cfg.MaxAttempts, lastErr).WithContext(ectx)
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, ectx *errors.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, ectx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// backoffDelay computes the sleep before retrying attempt (0-indexed):
// min(MaxDelay, BaseDelay × BackoffMultiplier^attempt), perturbed by ±25%
// when jitter is enabled.
func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		delay += (rand.Float64()*2 - 1) * jitterFactor * delay
	}
	if delay < 0 {
		delay = float64(cfg.BaseDelay)
	}
	return time.Duration(delay)
}

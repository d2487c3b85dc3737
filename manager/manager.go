// Package manager orchestrates the resilience core: it classifies raw
// failures, dispatches them to the handler registry, forwards them to the
// log sink, and owns the named circuit breakers consumers execute through.
package manager

import (
	"context"
	"sync"

	"github.com/southerncoder/faultkit/errors"
	"github.com/southerncoder/faultkit/handlers"
	"github.com/southerncoder/faultkit/resilience"
)

// Sink receives structured log entries. Level is one of the logger package's
// level strings (debug, info, warn, error, critical).
type Sink interface {
	Write(level, component, operation, message string, metadata map[string]any)
}

// Observer receives circuit breaker lifecycle events.
type Observer interface {
	BreakerStateChanged(name string, from, to resilience.State)
	BreakerOpened(name string, failureCount int)
	BreakerRecovered(name string)
}

// Config holds the defaults applied to lazily created breakers and to
// retries without an explicit override.
type Config struct {
	// Breaker is the template config for breakers created by GetCircuitBreaker.
	// Its Name and callbacks are set per breaker.
	Breaker resilience.CircuitBreakerConfig
	// Retry is the default retry policy for ExecuteWithRetry.
	Retry resilience.RetryConfig
}

// DefaultConfig returns the default breaker and retry settings.
func DefaultConfig() Config {
	return Config{
		Breaker: resilience.DefaultCircuitBreakerConfig(""),
		Retry:   resilience.DefaultRetryConfig(),
	}
}

// Manager ties the resilience components together. All state is in-memory
// and scoped to the process; breakers are created on first reference to a
// name and cached for the manager's lifetime.
type Manager struct {
	cfg      Config
	registry *handlers.Registry
	sink     Sink
	observer Observer

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

// Option configures a Manager.
type Option func(*Manager)

// WithSink sets the log sink failures and breaker events are written to.
func WithSink(s Sink) Option {
	return func(m *Manager) { m.sink = s }
}

// WithRegistry replaces the manager's handler registry.
func WithRegistry(r *handlers.Registry) Option {
	return func(m *Manager) { m.registry = r }
}

// WithObserver subscribes an observer to breaker lifecycle events.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// New creates a Manager. Handler dispatch failures are recorded through the
// sink as secondary failures.
func New(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		registry: handlers.NewRegistry(),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.registry.OnFailure(func(handlerErr error, original *errors.ClassifiedError) {
		m.write("error", "handlers", "dispatch", "error handler failed", map[string]any{
			"handler_error": handlerErr.Error(),
			"original_kind": original.Kind.String(),
		})
	})
	return m
}

// Registry returns the manager's handler registry for handler registration.
func (m *Manager) Registry() *handlers.Registry { return m.registry }

// GetCircuitBreaker returns the breaker for name, creating it on first use.
// The first caller's config wins: later calls return the cached instance and
// ignore differing overrides. A nil override uses the manager's defaults.
func (m *Manager) GetCircuitBreaker(name string, override *resilience.CircuitBreakerConfig) *resilience.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[name]; ok {
		return cb
	}

	cfg := m.cfg.Breaker
	if override != nil {
		cfg = *override
	}
	cfg.Name = name
	m.instrument(&cfg)

	cb := resilience.NewCircuitBreaker(cfg)
	m.breakers[name] = cb
	return cb
}

// Breakers returns snapshots of every cached circuit breaker.
func (m *Manager) Breakers() []resilience.BreakerSnapshot {
	m.mu.Lock()
	cached := make([]*resilience.CircuitBreaker, 0, len(m.breakers))
	for _, cb := range m.breakers {
		cached = append(cached, cb)
	}
	m.mu.Unlock()

	snaps := make([]resilience.BreakerSnapshot, 0, len(cached))
	for _, cb := range cached {
		snaps = append(snaps, cb.Snapshot())
	}
	return snaps
}

// HandleError classifies a raw failure, dispatches it to the registered
// handlers, writes it to the log sink, and returns the classified error for
// the caller to re-raise or inspect.
func (m *Manager) HandleError(err error, ectx *errors.Context) *errors.ClassifiedError {
	classified := errors.Classify(err, ectx)
	if classified == nil {
		return nil
	}

	m.registry.Dispatch(classified)
	m.log(classified)
	return classified
}

// ExecuteWithRetry runs fn under the manager's retry policy (or the override
// when non-nil). Every attempt's failure is classified, dispatched, and
// logged before the retry decision; callers wanting per-dependency isolation
// wrap fn with a named breaker themselves so breaker identity stays under
// caller control.
func ExecuteWithRetry[T any](ctx context.Context, m *Manager, ectx *errors.Context, fn func() (T, error), override *resilience.RetryConfig) (T, error) {
	cfg := m.cfg.Retry
	if override != nil {
		cfg = *override
	}

	return resilience.Retry(ctx, ectx, cfg, func() (T, error) {
		result, err := fn()
		if err != nil {
			m.HandleError(err, ectx)
		}
		return result, err
	})
}

// ExecuteWithRetryFunc is ExecuteWithRetry for operations without a result.
func ExecuteWithRetryFunc(ctx context.Context, m *Manager, ectx *errors.Context, fn func() error, override *resilience.RetryConfig) error {
	_, err := ExecuteWithRetry(ctx, m, ectx, func() (struct{}, error) {
		return struct{}{}, fn()
	}, override)
	return err
}

// LevelForSeverity maps a taxonomy severity onto a sink level.
func LevelForSeverity(s errors.Severity) string {
	switch s {
	case errors.SeverityLow:
		return "warn"
	case errors.SeverityCritical:
		return "critical"
	default:
		return "error"
	}
}

// instrument chains the manager's event plumbing onto a breaker config,
// preserving any caller-supplied callbacks.
func (m *Manager) instrument(cfg *resilience.CircuitBreakerConfig) {
	userStateChange := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		m.write("info", "circuit_breaker", name, "circuit breaker state changed", map[string]any{
			"from": from.String(),
			"to":   to.String(),
		})
		if m.observer != nil {
			m.observer.BreakerStateChanged(name, from, to)
		}
		if userStateChange != nil {
			userStateChange(name, from, to)
		}
	}

	userOpen := cfg.OnOpen
	cfg.OnOpen = func(name string, failureCount int) {
		m.write("warn", "circuit_breaker", name, "circuit breaker opened", map[string]any{
			"failure_count": failureCount,
		})
		if m.observer != nil {
			m.observer.BreakerOpened(name, failureCount)
		}
		if userOpen != nil {
			userOpen(name, failureCount)
		}
	}

	userRecover := cfg.OnRecover
	cfg.OnRecover = func(name string) {
		m.write("info", "circuit_breaker", name, "circuit breaker recovered", nil)
		if m.observer != nil {
			m.observer.BreakerRecovered(name)
		}
		if userRecover != nil {
			userRecover(name)
		}
	}
}

// log writes a classified error to the sink at the level its severity maps to.
func (m *Manager) log(ce *errors.ClassifiedError) {
	var component, operation string
	meta := map[string]any{
		"kind":      ce.Kind.String(),
		"severity":  ce.Severity.String(),
		"strategy":  ce.Strategy.String(),
		"retryable": ce.Retryable,
	}
	if ce.RetryCount > 0 {
		meta["retry_count"] = ce.RetryCount
	}
	if ce.Cause != nil {
		meta["cause"] = ce.Cause.Error()
	}
	if ectx := ce.Context; ectx != nil {
		component = ectx.Component
		operation = ectx.Operation
		if ectx.CorrelationID != "" {
			meta["correlation_id"] = ectx.CorrelationID
		}
		if ectx.SubjectID != "" {
			meta["subject_id"] = ectx.SubjectID
		}
		ectx.RangeMeta(func(k string, v any) {
			meta[k] = v
		})
	}

	m.write(LevelForSeverity(ce.Severity), component, operation, ce.Message, meta)
}

func (m *Manager) write(level, component, operation, message string, metadata map[string]any) {
	if m.sink == nil {
		return
	}
	m.sink.Write(level, component, operation, message, metadata)
}

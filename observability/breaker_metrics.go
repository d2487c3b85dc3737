package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/southerncoder/faultkit/errors"
	"github.com/southerncoder/faultkit/handlers"
	"github.com/southerncoder/faultkit/resilience"
)

// BreakerMetrics records circuit breaker lifecycle events and classified
// errors as OpenTelemetry counters. It satisfies the manager's Observer
// interface.
type BreakerMetrics struct {
	stateChanges metric.Int64Counter
	opened       metric.Int64Counter
	recovered    metric.Int64Counter
	errorTotal   metric.Int64Counter
}

// NewBreakerMetrics creates the breaker metric instruments on the given meter.
func NewBreakerMetrics(meter metric.Meter) (*BreakerMetrics, error) {
	stateChanges, err := meter.Int64Counter("breaker.state_change.total",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaker.state_change.total counter: %w", err)
	}

	opened, err := meter.Int64Counter("breaker.opened.total",
		metric.WithDescription("Circuit breaker open transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaker.opened.total counter: %w", err)
	}

	recovered, err := meter.Int64Counter("breaker.recovered.total",
		metric.WithDescription("Circuit breaker recoveries from half-open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating breaker.recovered.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Classified errors by kind and severity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &BreakerMetrics{
		stateChanges: stateChanges,
		opened:       opened,
		recovered:    recovered,
		errorTotal:   errorTotal,
	}, nil
}

// BreakerStateChanged records a state transition.
func (m *BreakerMetrics) BreakerStateChanged(name string, from, to resilience.State) {
	m.stateChanges.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

// BreakerOpened records an open transition with the failure count that
// tripped it.
func (m *BreakerMetrics) BreakerOpened(name string, failureCount int) {
	m.opened.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
		attribute.Int("failure_count", failureCount),
	))
}

// BreakerRecovered records a successful trial call closing the circuit.
func (m *BreakerMetrics) BreakerRecovered(name string) {
	m.recovered.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("breaker", name),
	))
}

// RecordError counts a classified error by kind and severity.
func (m *BreakerMetrics) RecordError(ce *errors.ClassifiedError) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", ce.Kind.String()),
		attribute.String("severity", ce.Severity.String()),
	}
	if ce.Context != nil && ce.Context.Component != "" {
		attrs = append(attrs, attribute.String("component", ce.Context.Component))
	}
	m.errorTotal.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// ErrorHandler returns a global handler that counts every dispatched error.
// Register it with handlers.Registry.RegisterGlobal.
func ErrorHandler(m *BreakerMetrics) handlers.Handler {
	return func(ce *errors.ClassifiedError, _ *errors.Context) error {
		m.RecordError(ce)
		return nil
	}
}

package errors

import (
	"errors"
	"testing"
	"time"
)

func TestNewAppliesKindDefaults(t *testing.T) {
	e := New(KindNetwork, "connection dropped")

	if e.Kind != KindNetwork {
		t.Errorf("expected kind NETWORK, got %s", e.Kind)
	}
	if e.Severity != SeverityLow {
		t.Errorf("expected low severity, got %s", e.Severity)
	}
	if e.Strategy != StrategyRetry {
		t.Errorf("expected retry strategy, got %s", e.Strategy)
	}
	if !e.Retryable {
		t.Error("expected NETWORK error to default retryable")
	}
}

func TestErrorString(t *testing.T) {
	e := New(KindTimeout, "request timed out")
	if got, want := e.Error(), "TIMEOUT: request timed out"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("dial tcp: i/o timeout")
	e = e.WithCause(cause)
	if got, want := e.Error(), "TIMEOUT: request timed out (cause: dial tcp: i/o timeout)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := New(KindInternal, "wrapper").WithCause(cause)

	if !errors.Is(e, cause) {
		t.Error("errors.Is should match the cause through Unwrap")
	}
}

func TestBuilderOverrides(t *testing.T) {
	e := New(KindNetwork, "n").
		WithRetryable(false).
		WithSeverity(SeverityCritical).
		WithStrategy(StrategyDegrade).
		WithRetryCount(2)

	if e.Retryable {
		t.Error("WithRetryable(false) not applied")
	}
	if e.Severity != SeverityCritical {
		t.Errorf("expected critical severity, got %s", e.Severity)
	}
	if e.Strategy != StrategyDegrade {
		t.Errorf("expected degrade strategy, got %s", e.Strategy)
	}
	if e.RetryCount != 2 {
		t.Errorf("expected retry count 2, got %d", e.RetryCount)
	}
}

func TestAsClassified(t *testing.T) {
	inner := New(KindAPI, "upstream 502")
	wrapped := errors.Join(errors.New("outer"), inner)

	ce, ok := AsClassified(wrapped)
	if !ok {
		t.Fatal("expected to find ClassifiedError in chain")
	}
	if ce.Kind != KindAPI {
		t.Errorf("expected kind API, got %s", ce.Kind)
	}

	if _, ok := AsClassified(errors.New("plain")); ok {
		t.Error("plain error should not match")
	}
}

func TestCircuitOpenError(t *testing.T) {
	next := time.Now().Add(time.Minute)
	e := CircuitOpen("llm-provider", next)

	if e.Kind != KindSystem || e.Severity != SeverityHigh {
		t.Errorf("expected SYSTEM/high, got %s/%s", e.Kind, e.Severity)
	}
	if e.Retryable {
		t.Error("circuit-open errors must not be retryable")
	}
	if !errors.Is(e, ErrCircuitOpen) {
		t.Error("errors.Is(e, ErrCircuitOpen) should hold")
	}
}

func TestRetriesExhaustedError(t *testing.T) {
	last := errors.New("connection reset by peer")
	e := RetriesExhausted(3, last)

	if e.Kind != KindSystem || e.Severity != SeverityHigh {
		t.Errorf("expected SYSTEM/high, got %s/%s", e.Kind, e.Severity)
	}
	if e.RetryCount != 3 {
		t.Errorf("expected retry count 3, got %d", e.RetryCount)
	}
	if !errors.Is(e, ErrRetriesExhausted) {
		t.Error("errors.Is(e, ErrRetriesExhausted) should hold")
	}
	if !errors.Is(e, last) {
		t.Error("terminal error should wrap the last raw failure")
	}
}

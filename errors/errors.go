package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is matching on resilience outcomes.
var (
	// ErrCircuitOpen marks failures caused by an open circuit breaker.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrRetriesExhausted marks failures after all retry attempts were spent.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ClassifiedError is an error placed in the taxonomy. It carries the kind,
// severity, and recovery strategy decided at classification time, and is not
// mutated after construction (the With* builders are construction-time only).
type ClassifiedError struct {
	// Kind is the taxonomy category.
	Kind Kind `json:"kind"`
	// Severity is the operational impact.
	Severity Severity `json:"severity"`
	// Strategy is the recommended recovery action.
	Strategy Strategy `json:"strategy"`
	// Message is a human-readable description.
	Message string `json:"message"`
	// Retryable indicates whether the failed operation may be retried.
	Retryable bool `json:"retryable"`
	// RetryCount is the number of attempts already spent on the operation.
	RetryCount int `json:"retry_count,omitempty"`
	// Context describes the call site that produced the error.
	Context *Context `json:"context,omitempty"`
	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *ClassifiedError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *ClassifiedError) WithCause(cause error) *ClassifiedError {
	e.Cause = cause
	return e
}

// WithContext sets the error context and returns the receiver.
func (e *ClassifiedError) WithContext(ctx *Context) *ClassifiedError {
	e.Context = ctx
	return e
}

// WithRetryable overrides the kind's default retryable flag.
func (e *ClassifiedError) WithRetryable(retryable bool) *ClassifiedError {
	e.Retryable = retryable
	return e
}

// WithSeverity overrides the kind's default severity.
func (e *ClassifiedError) WithSeverity(s Severity) *ClassifiedError {
	e.Severity = s
	return e
}

// WithStrategy overrides the kind's default recovery strategy.
func (e *ClassifiedError) WithStrategy(s Strategy) *ClassifiedError {
	e.Strategy = s
	return e
}

// WithRetryCount records how many attempts were spent and returns the receiver.
func (e *ClassifiedError) WithRetryCount(n int) *ClassifiedError {
	e.RetryCount = n
	return e
}

// New creates a ClassifiedError with the kind's default severity, strategy,
// and retryable flag.
func New(kind Kind, message string) *ClassifiedError {
	p := profileFor(kind)
	return &ClassifiedError{
		Kind:      kind,
		Severity:  p.severity,
		Strategy:  p.strategy,
		Message:   message,
		Retryable: p.retryable,
	}
}

// Newf creates a ClassifiedError with a formatted message.
func Newf(kind Kind, format string, args ...any) *ClassifiedError {
	return New(kind, fmt.Sprintf(format, args...))
}

// AsClassified extracts a ClassifiedError from an error chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var ce *ClassifiedError
	ok := errors.As(err, &ce)
	return ce, ok
}

// --- Resilience outcome constructors ---

// CircuitOpen creates the error returned when a breaker rejects a call.
// It matches errors.Is(err, ErrCircuitOpen).
func CircuitOpen(breaker string, nextAttempt time.Time) *ClassifiedError {
	return &ClassifiedError{
		Kind:      KindSystem,
		Severity:  SeverityHigh,
		Strategy:  StrategyAbort,
		Message:   fmt.Sprintf("circuit breaker %q is open until %s", breaker, nextAttempt.Format(time.RFC3339)),
		Retryable: false,
		Cause:     ErrCircuitOpen,
	}
}

// RetriesExhausted creates the terminal error returned after every retry
// attempt failed. It wraps the last raw error and matches
// errors.Is(err, ErrRetriesExhausted).
func RetriesExhausted(attempts int, last error) *ClassifiedError {
	return &ClassifiedError{
		Kind:       KindSystem,
		Severity:   SeverityHigh,
		Strategy:   StrategyAbort,
		Message:    fmt.Sprintf("retries exhausted after %d attempts", attempts),
		Retryable:  false,
		RetryCount: attempts,
		Cause:      fmt.Errorf("%w: %w", ErrRetriesExhausted, last),
	}
}

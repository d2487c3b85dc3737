package resilience

import (
	"sync"
	"time"

	"github.com/southerncoder/faultkit/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen rejects all requests until the recovery timeout elapses.
	StateOpen
	// StateHalfOpen admits a single trial request to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for events and logging.
	Name string
	// FailureThreshold is the windowed failure count that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before a trial call.
	RecoveryTimeout time.Duration
	// MonitoringWindow is the sliding window over which failures are counted.
	MonitoringWindow time.Duration
	// MinimumRequests raises the effective threshold: the circuit opens only
	// once windowed failures reach max(MinimumRequests, FailureThreshold).
	MinimumRequests int
	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to State)
	// OnOpen is called when the circuit opens, with the windowed failure count.
	OnOpen func(name string, failureCount int)
	// OnRecover is called when a trial call succeeds and the circuit closes.
	OnRecover func(name string)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		MonitoringWindow: 5 * time.Minute,
		MinimumRequests:  3,
	}
}

// CircuitBreaker guards calls to a single named dependency. Failures are
// counted over a sliding window; once the effective threshold is reached the
// circuit opens and rejects calls until RecoveryTimeout elapses, after which
// exactly one trial call is admitted. A failed trial reopens the circuit
// immediately.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      []time.Time
	nextAttempt   time.Time
	trialInFlight bool
	now           func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.MonitoringWindow <= 0 {
		config.MonitoringWindow = 5 * time.Minute
	}
	if config.MinimumRequests < 0 {
		config.MinimumRequests = 0
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Execute runs fn through the circuit breaker. When the circuit is open it
// fails fast with a SYSTEM-kind error matching errors.ErrCircuitOpen, without
// invoking fn. The original error from fn is always returned to the caller,
// whether or not it tripped the circuit.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// Call runs a result-returning fn through the circuit breaker.
func Call[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := cb.Execute(func() error {
		var callErr error
		result, callErr = fn()
		return callErr
	})
	return result, err
}

// Name returns the breaker's configured name.
func (cb *CircuitBreaker) Name() string { return cb.config.Name }

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the failure count within the monitoring window.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.prune(cb.now())
	return len(cb.failures)
}

// BreakerSnapshot is a point-in-time view of a breaker, for health surfaces.
type BreakerSnapshot struct {
	Name             string    `json:"name"`
	State            string    `json:"state"`
	WindowedFailures int       `json:"windowed_failures"`
	NextAttempt      time.Time `json:"next_attempt,omitzero"`
}

// Snapshot returns the breaker's current state, windowed failure count, and
// next trial time.
func (cb *CircuitBreaker) Snapshot() BreakerSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.prune(cb.now())
	snap := BreakerSnapshot{
		Name:             cb.config.Name,
		State:            cb.state.String(),
		WindowedFailures: len(cb.failures),
	}
	if cb.state == StateOpen {
		snap.NextAttempt = cb.nextAttempt
	}
	return snap
}

// Reset returns the circuit breaker to the closed state and clears the
// failure history. Intended for tests and operational tooling.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
	cb.failures = nil
	cb.trialInFlight = false
}

// admit decides whether a call may proceed, handling the open→half-open
// transition once the recovery timeout has elapsed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			return errors.CircuitOpen(cb.config.Name, cb.nextAttempt)
		}
		cb.transition(StateHalfOpen)
		cb.trialInFlight = true
		return nil
	case StateHalfOpen:
		// One trial call at a time.
		if cb.trialInFlight {
			return errors.CircuitOpen(cb.config.Name, cb.nextAttempt)
		}
		cb.trialInFlight = true
		return nil
	default:
		return errors.CircuitOpen(cb.config.Name, cb.nextAttempt)
	}
}

// record updates the state machine with the outcome of an admitted call.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccess()
	} else {
		cb.onFailure()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		// A success resets the rolling window so unrelated incidents do not
		// accumulate toward the threshold.
		cb.failures = cb.failures[:0]
	case StateHalfOpen:
		cb.trialInFlight = false
		cb.failures = nil
		cb.transition(StateClosed)
		if cb.config.OnRecover != nil {
			cb.config.OnRecover(cb.config.Name)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	if cb.state == StateOpen {
		// A straggler from before the circuit opened; the window is settled.
		return
	}

	now := cb.now()
	cb.failures = append(cb.failures, now)
	cb.prune(now)

	if cb.state == StateHalfOpen {
		// The trial call failed: reopen without waiting for a full threshold.
		cb.trialInFlight = false
		cb.open(now)
		return
	}
	if len(cb.failures) >= cb.effectiveThreshold() {
		cb.open(now)
	}
}

func (cb *CircuitBreaker) open(now time.Time) {
	cb.nextAttempt = now.Add(cb.config.RecoveryTimeout)
	cb.transition(StateOpen)
	if cb.config.OnOpen != nil {
		cb.config.OnOpen(cb.config.Name, len(cb.failures))
	}
}

// prune drops failures older than the monitoring window.
func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.config.MonitoringWindow)
	i := 0
	for i < len(cb.failures) && !cb.failures[i].After(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

func (cb *CircuitBreaker) effectiveThreshold() int {
	if cb.config.MinimumRequests > cb.config.FailureThreshold {
		return cb.config.MinimumRequests
	}
	return cb.config.FailureThreshold
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

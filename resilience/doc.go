// Package resilience provides the failure-management primitives of the
// library: a per-dependency circuit breaker with a sliding failure window and
// a retry engine with exponential backoff, jitter, and taxonomy-aware
// retryability.
//
// The two primitives compose explicitly: when both guard the same operation,
// the breaker belongs inside each retry attempt so that a tripped breaker
// makes the remaining attempts fail fast instead of hitting the dependency.
package resilience

// Package errors defines the closed error taxonomy for the resilience core:
// kinds, severities, and default recovery strategies, plus a pure classifier
// that places raw errors into the taxonomy.
package errors

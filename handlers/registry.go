// Package handlers maps error kinds to ordered lists of side-effecting
// handlers (alerting, metrics, compensating actions) and dispatches
// classified errors to them on a best-effort basis.
package handlers

import (
	"fmt"
	"sync"

	"github.com/southerncoder/faultkit/errors"
)

// Handler reacts to a classified error. A handler may fail by returning an
// error or panicking; either way the failure is isolated by the registry and
// never reaches the dispatching caller.
type Handler func(err *errors.ClassifiedError, ctx *errors.Context) error

// Registry holds kind-specific, global, and critical handlers. The zero
// registry is not usable; create one with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	byKind    map[errors.Kind][]Handler
	global    []Handler
	critical  []Handler
	onFailure func(handlerErr error, original *errors.ClassifiedError)
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		byKind: make(map[errors.Kind][]Handler),
	}
}

// OnFailure sets the callback invoked when a handler fails during dispatch.
// Typically wired to a log sink to record the secondary failure.
func (r *Registry) OnFailure(fn func(handlerErr error, original *errors.ClassifiedError)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onFailure = fn
}

// Register appends a handler for a specific error kind. Handlers run in
// registration order.
func (r *Registry) Register(kind errors.Kind, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind[kind] = append(r.byKind[kind], h)
}

// RegisterGlobal appends a handler that runs for every dispatched error,
// after the kind-specific handlers.
func (r *Registry) RegisterGlobal(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, h)
}

// RegisterCritical appends a handler that runs only for CRITICAL-severity
// errors, after the global handlers.
func (r *Registry) RegisterCritical(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.critical = append(r.critical, h)
}

// Unregister removes all handlers for a kind.
func (r *Registry) Unregister(kind errors.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byKind, kind)
}

// Clear removes every registered handler.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKind = make(map[errors.Kind][]Handler)
	r.global = nil
	r.critical = nil
}

// Dispatch runs the kind-specific handlers for the error, then the global
// handlers, then the critical handlers when severity is CRITICAL. Each
// handler is isolated: a failing handler is reported through OnFailure and
// the remaining handlers still run. Dispatch itself never fails.
func (r *Registry) Dispatch(ce *errors.ClassifiedError) {
	if ce == nil {
		return
	}

	r.mu.RLock()
	kindHandlers := append([]Handler(nil), r.byKind[ce.Kind]...)
	global := append([]Handler(nil), r.global...)
	critical := append([]Handler(nil), r.critical...)
	onFailure := r.onFailure
	r.mu.RUnlock()

	for _, h := range kindHandlers {
		r.invoke(h, ce, onFailure)
	}
	for _, h := range global {
		r.invoke(h, ce, onFailure)
	}
	if ce.Severity == errors.SeverityCritical {
		for _, h := range critical {
			r.invoke(h, ce, onFailure)
		}
	}
}

// invoke runs one handler, converting panics and returned errors into
// OnFailure notifications.
func (r *Registry) invoke(h Handler, ce *errors.ClassifiedError, onFailure func(error, *errors.ClassifiedError)) {
	defer func() {
		if rec := recover(); rec != nil && onFailure != nil {
			onFailure(fmt.Errorf("handler panic: %v", rec), ce)
		}
	}()

	if err := h(ce, ce.Context); err != nil && onFailure != nil {
		onFailure(err, ce)
	}
}

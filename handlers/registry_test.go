package handlers

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/southerncoder/faultkit/errors"
)

func TestDispatchOrdering(t *testing.T) {
	r := NewRegistry()
	var order []string

	record := func(name string) Handler {
		return func(_ *errors.ClassifiedError, _ *errors.Context) error {
			order = append(order, name)
			return nil
		}
	}

	r.RegisterGlobal(record("global"))
	r.Register(errors.KindNetwork, record("kind-1"))
	r.Register(errors.KindNetwork, record("kind-2"))
	r.Register(errors.KindTimeout, record("other-kind"))

	r.Dispatch(errors.New(errors.KindNetwork, "reset"))

	want := []string{"kind-1", "kind-2", "global"}
	if len(order) != len(want) {
		t.Fatalf("dispatch order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestDispatchCriticalHandlers(t *testing.T) {
	r := NewRegistry()
	criticalRuns := 0
	r.RegisterCritical(func(_ *errors.ClassifiedError, _ *errors.Context) error {
		criticalRuns++
		return nil
	})

	r.Dispatch(errors.New(errors.KindNetwork, "reset"))
	if criticalRuns != 0 {
		t.Error("critical handler ran for a non-critical error")
	}

	r.Dispatch(errors.New(errors.KindMemory, "oom"))
	if criticalRuns != 1 {
		t.Errorf("critical handler runs = %d, want 1", criticalRuns)
	}
}

func TestDispatchIsolatesPanic(t *testing.T) {
	r := NewRegistry()
	var failures []string
	r.OnFailure(func(handlerErr error, _ *errors.ClassifiedError) {
		failures = append(failures, handlerErr.Error())
	})

	secondRan := false
	r.Register(errors.KindAPI, func(_ *errors.ClassifiedError, _ *errors.Context) error {
		panic("handler exploded")
	})
	r.Register(errors.KindAPI, func(_ *errors.ClassifiedError, _ *errors.Context) error {
		secondRan = true
		return nil
	})

	r.Dispatch(errors.New(errors.KindAPI, "upstream 502"))

	if !secondRan {
		t.Error("handler after the panicking one did not run")
	}
	if len(failures) != 1 || !strings.Contains(failures[0], "handler exploded") {
		t.Errorf("unexpected failure reports: %v", failures)
	}
}

func TestDispatchReportsHandlerError(t *testing.T) {
	r := NewRegistry()
	handlerErr := stderrors.New("alert webhook down")
	var reported error
	var reportedFor *errors.ClassifiedError
	r.OnFailure(func(err error, original *errors.ClassifiedError) {
		reported = err
		reportedFor = original
	})

	ce := errors.New(errors.KindTimeout, "slow upstream")
	r.Register(errors.KindTimeout, func(_ *errors.ClassifiedError, _ *errors.Context) error {
		return handlerErr
	})
	r.Dispatch(ce)

	if !stderrors.Is(reported, handlerErr) {
		t.Errorf("reported error = %v, want %v", reported, handlerErr)
	}
	if reportedFor != ce {
		t.Error("failure report lost the original error")
	}
}

func TestDispatchWithoutOnFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(errors.KindAPI, func(_ *errors.ClassifiedError, _ *errors.Context) error {
		panic("boom")
	})

	// Must not propagate the panic even with no failure callback wired.
	r.Dispatch(errors.New(errors.KindAPI, "upstream"))
}

func TestDispatchNil(t *testing.T) {
	r := NewRegistry()
	r.RegisterGlobal(func(_ *errors.ClassifiedError, _ *errors.Context) error {
		t.Error("handler ran for nil error")
		return nil
	})
	r.Dispatch(nil)
}

func TestDispatchPassesContext(t *testing.T) {
	r := NewRegistry()
	ectx := errors.NewContext("agent", "analyze")
	var got *errors.Context
	r.Register(errors.KindProcessing, func(_ *errors.ClassifiedError, ctx *errors.Context) error {
		got = ctx
		return nil
	})

	r.Dispatch(errors.New(errors.KindProcessing, "parse failure").WithContext(ectx))
	if got != ectx {
		t.Error("handler did not receive the error context")
	}
}

func TestUnregisterAndClear(t *testing.T) {
	r := NewRegistry()
	runs := 0
	count := func(_ *errors.ClassifiedError, _ *errors.Context) error {
		runs++
		return nil
	}
	r.Register(errors.KindNetwork, count)
	r.RegisterGlobal(count)

	r.Unregister(errors.KindNetwork)
	r.Dispatch(errors.New(errors.KindNetwork, "reset"))
	if runs != 1 {
		t.Errorf("runs after Unregister = %d, want 1 (global only)", runs)
	}

	r.Clear()
	r.Dispatch(errors.New(errors.KindNetwork, "reset"))
	if runs != 1 {
		t.Errorf("runs after Clear = %d, want 1", runs)
	}
}

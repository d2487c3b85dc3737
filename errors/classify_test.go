package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

type statusError struct {
	status int
}

func (e *statusError) Error() string   { return fmt.Sprintf("HTTP %d", e.status) }
func (e *statusError) StatusCode() int { return e.status }

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil, nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestClassifyReturnsClassifiedUnchanged(t *testing.T) {
	original := New(KindValidation, "bad ticker").WithRetryable(true)

	got := Classify(original, NewContext("c", "o"))
	if got != original {
		t.Error("already-classified error should be returned unchanged")
	}
	if !got.Retryable {
		t.Error("caller override must survive classification")
	}
}

func TestClassifyStatusCoder(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuthentication},
		{403, KindAuthentication},
		{408, KindTimeout},
		{429, KindRateLimit},
		{500, KindAPI},
		{503, KindAPI},
		{400, KindValidation},
	}

	for _, tt := range tests {
		ce := Classify(&statusError{status: tt.status}, nil)
		if ce.Kind != tt.want {
			t.Errorf("status %d: got kind %s, want %s", tt.status, ce.Kind, tt.want)
		}
	}
}

func TestClassifyDeadlineExceeded(t *testing.T) {
	ce := Classify(fmt.Errorf("fetch: %w", context.DeadlineExceeded), nil)
	if ce.Kind != KindTimeout {
		t.Errorf("expected TIMEOUT, got %s", ce.Kind)
	}
	if !ce.Retryable {
		t.Error("timeout should be retryable by default")
	}
}

func TestClassifySyscallErrors(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		want  Kind
	}{
		{syscall.ECONNRESET, KindNetwork},
		{syscall.ECONNREFUSED, KindNetwork},
		{syscall.ETIMEDOUT, KindTimeout},
	}

	for _, tt := range tests {
		ce := Classify(fmt.Errorf("dial: %w", tt.errno), nil)
		if ce.Kind != tt.want {
			t.Errorf("%v: got kind %s, want %s", tt.errno, ce.Kind, tt.want)
		}
	}
}

func TestClassifyNetOpError(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}
	ce := Classify(opErr, nil)
	if ce.Kind != KindNetwork {
		t.Errorf("expected NETWORK, got %s", ce.Kind)
	}
}

func TestClassifyByMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"request timeout after 30s", KindTimeout},
		{"read tcp: connection reset by peer", KindNetwork},
		{"rate limit exceeded, retry later", KindRateLimit},
		{"too many requests", KindRateLimit},
		{"unauthorized: invalid api key", KindAuthentication},
		{"upstream returned 502 bad gateway", KindAPI},
		{"service unavailable", KindAPI},
	}

	for _, tt := range tests {
		ce := Classify(errors.New(tt.msg), nil)
		if ce.Kind != tt.want {
			t.Errorf("%q: got kind %s, want %s", tt.msg, ce.Kind, tt.want)
		}
	}
}

func TestClassifyUnmatchedIsInternal(t *testing.T) {
	raw := errors.New("something odd happened")
	ce := Classify(raw, nil)

	if ce.Kind != KindInternal {
		t.Errorf("expected INTERNAL, got %s", ce.Kind)
	}
	if ce.Severity != SeverityMedium {
		t.Errorf("expected medium severity, got %s", ce.Severity)
	}
	if ce.Strategy != StrategyAbort {
		t.Errorf("expected abort strategy, got %s", ce.Strategy)
	}
	if ce.Retryable {
		t.Error("internal errors must not be retryable")
	}
	if !errors.Is(ce, raw) {
		t.Error("classified error should wrap the raw error")
	}
}

func TestClassifyAttachesContext(t *testing.T) {
	ectx := NewContext("news", "fetch_headlines")
	ce := Classify(errors.New("connection refused"), ectx)

	if ce.Context != ectx {
		t.Error("context not attached to classified error")
	}
}

func TestFromStatusCodeSuccessIsNil(t *testing.T) {
	if ce := FromStatusCode(204, ""); ce != nil {
		t.Errorf("2xx should classify to nil, got %v", ce)
	}
}

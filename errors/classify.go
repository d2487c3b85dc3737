package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Classify places a raw error into the taxonomy. Already-classified errors
// are returned unchanged, including any caller overrides they carry. The
// function is pure: it inspects the error and context but touches nothing.
func Classify(err error, ctx *Context) *ClassifiedError {
	if err == nil {
		return nil
	}
	if ce, ok := AsClassified(err); ok {
		return ce
	}

	ce := classifyRaw(err)
	ce.Cause = err
	ce.Context = ctx
	return ce
}

func classifyRaw(err error) *ClassifiedError {
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, err.Error())
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if ce := FromStatusCode(sc.StatusCode(), err.Error()); ce != nil {
			return ce
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(KindTimeout, err.Error())
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EPIPE,
			syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return New(KindNetwork, err.Error())
		case syscall.ETIMEDOUT:
			return New(KindTimeout, err.Error())
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return New(KindNetwork, err.Error())
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return New(KindNetwork, err.Error())
	}

	if kind, ok := kindFromMessage(err.Error()); ok {
		return New(kind, err.Error())
	}
	return New(KindInternal, err.Error())
}

// FromStatusCode converts an HTTP status code into a classified error.
// Returns nil for 2xx codes.
func FromStatusCode(status int, message string) *ClassifiedError {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401 || status == 403:
		return New(KindAuthentication, message)
	case status == 408:
		return New(KindTimeout, message)
	case status == 429:
		return New(KindRateLimit, message)
	case status >= 500:
		return New(KindAPI, message)
	case status >= 400:
		return New(KindValidation, message)
	default:
		return New(KindInternal, message)
	}
}

// kindFromMessage matches well-known failure phrases in an error message.
// Ordering matters: timeout phrasing wins over generic connection phrasing.
func kindFromMessage(msg string) (Kind, bool) {
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, "timeout", "timed out", "deadline exceeded"):
		return KindTimeout, true
	case containsAny(lower, "connection reset", "connection refused", "broken pipe",
		"no such host", "network is unreachable", "connection closed"):
		return KindNetwork, true
	case containsAny(lower, "rate limit", "too many requests", "429"):
		return KindRateLimit, true
	case containsAny(lower, "unauthorized", "forbidden", "invalid api key", "401", "403"):
		return KindAuthentication, true
	case containsAny(lower, "internal server error", "bad gateway", "service unavailable",
		"gateway timeout", "502", "503"):
		return KindAPI, true
	}
	return KindInternal, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

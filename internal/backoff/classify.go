package backoff

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Class buckets a failed attempt by how it should be handled.
type Class int

const (
	// ClassNone marks attempts that failed in a way retrying cannot help
	// with, such as a cancelled context. Not retryable.
	ClassNone Class = iota

	// ClassTransient marks network-level failures: timeouts, connection
	// resets, refused connections. Retryable.
	ClassTransient

	// ClassThrottled marks HTTP 429 responses. Retryable; the server's
	// Retry-After value, when present, overrides the computed delay.
	ClassThrottled

	// ClassServer marks HTTP 5xx responses. Retryable.
	ClassServer

	// ClassClient marks HTTP 4xx responses other than 429. Terminal: the
	// request itself is wrong and retrying cannot fix it.
	ClassClient
)

// Retryable reports whether another attempt may succeed for this class.
func (c Class) Retryable() bool {
	switch c {
	case ClassTransient, ClassThrottled, ClassServer:
		return true
	default:
		return false
	}
}

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassThrottled:
		return "throttled"
	case ClassServer:
		return "server"
	case ClassClient:
		return "client"
	default:
		return "none"
	}
}

// Classify buckets a completed attempt. Exactly one of statusCode and err is
// meaningful: err is consulted when non-nil, otherwise the HTTP status code.
// A 2xx status classifies as ClassNone, which is simply "nothing to retry".
func Classify(statusCode int, err error) Class {
	if err != nil {
		// The caller gave up; retrying on their behalf would outlive the
		// request. A deadline error is NOT terminal here: http.Client's
		// per-attempt timeout surfaces as context.DeadlineExceeded too, and
		// only the caller's own context tells those apart. Callers racing a
		// deadline check their context before classifying.
		if errors.Is(err, context.Canceled) {
			return ClassNone
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ClassTransient
		}
		// Connection resets, refused connections, DNS hiccups and other
		// transport failures all land here.
		return ClassTransient
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ClassThrottled
	case statusCode >= 500:
		return ClassServer
	case statusCode >= 400:
		return ClassClient
	default:
		return ClassNone
	}
}

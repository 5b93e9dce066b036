package retry

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// Kind is the closed classification of operation failures.
type Kind string

const (
	// KindTimeout is a deadline or timeout failure.
	KindTimeout Kind = "timeout"
	// KindRateLimit is an upstream throttling failure.
	KindRateLimit Kind = "rate_limit"
	// KindNetwork is a transient transport failure.
	KindNetwork Kind = "network_error"
	// KindToolFailure is a failure inside an invoked tool.
	KindToolFailure Kind = "tool_failure"
	// KindUnclassified is the default for errors the classifier does not
	// recognize.
	KindUnclassified Kind = "unclassified"
)

// Classifier maps an error to a Kind. Implementations must handle nil-safe
// inspection of wrapped errors; they are never called with a nil error.
type Classifier func(error) Kind

// Kinder lets an error carry its own classification.
type Kinder interface {
	Kind() Kind
}

// RetryAfterHinter lets an error suggest how long to wait before the next
// attempt, typically from a rate-limit response header.
type RetryAfterHinter interface {
	RetryAfterHint() time.Duration
}

// ClassifiedError wraps an error with an explicit kind and an optional
// retry-after hint. Operations that know their failure mode should return
// one of these instead of relying on the default classifier.
type ClassifiedError struct {
	ErrKind    Kind
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return string(e.ErrKind) + ": " + e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Kind implements Kinder.
func (e *ClassifiedError) Kind() Kind { return e.ErrKind }

// RetryAfterHint implements RetryAfterHinter. Zero means no hint.
func (e *ClassifiedError) RetryAfterHint() time.Duration { return e.RetryAfter }

// DefaultClassifier classifies errors into the closed kind set. Errors
// implementing Kinder win; context and net errors map to timeout and
// network_error; everything else is unclassified.
func DefaultClassifier(err error) Kind {
	var kinder Kinder
	if errors.As(err, &kinder) {
		return kinder.Kind()
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	return KindUnclassified
}

// hintFor extracts a retry-after hint from an error chain, or zero.
func hintFor(err error) time.Duration {
	var hinter RetryAfterHinter
	if errors.As(err, &hinter) {
		if d := hinter.RetryAfterHint(); d > 0 {
			return d
		}
	}
	return 0
}

package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureClass is the taxonomy the resilience layer classifies every
// collaborator error into before deciding whether to retry, trip a
// breaker, or hand the error to a recovery strategy (spec.md §4.E).
type FailureClass string

const (
	ClassTransient    FailureClass = "transient"
	ClassTimeout      FailureClass = "timeout"
	ClassRateLimit    FailureClass = "rate_limit"
	ClassDataQuality  FailureClass = "data_quality"
	ClassNotFound     FailureClass = "not_found"
	ClassPermanent    FailureClass = "permanent"
)

// ClassifiedError pairs an error with the failure class assigned to it so
// downstream retry/recovery logic doesn't need to re-derive it.
type ClassifiedError struct {
	Err   error
	Class FailureClass
}

func (e *ClassifiedError) Error() string { return e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// NewClassifiedError wraps err with an explicit class, bypassing heuristic
// classification. Collaborators that know their own failure mode (e.g. a
// 404 from a search API) should construct this directly.
func NewClassifiedError(err error, class FailureClass) *ClassifiedError {
	return &ClassifiedError{Err: err, Class: class}
}

// Classify assigns a FailureClass to err, preferring an explicit
// ClassifiedError in the chain, then an HTTP status code if one is
// supplied, then a TransientError in the chain (its retryable status
// class, else transient), then string/network heuristics. Unrecognized errors classify
// as permanent, the conservative choice for a taxonomy that drives
// retry/recovery decisions.
func Classify(err error, statusCode int) FailureClass {
	if err == nil {
		return ""
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}

	if statusCode > 0 {
		if class, ok := classifyHTTPStatus(statusCode); ok {
			return class
		}
	}

	var te *TransientError
	if errors.As(err, &te) {
		if class, ok := classifyHTTPStatus(te.StatusCode); ok && class.Retryable() {
			return class
		}
		return ClassTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return ClassTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "context deadline exceeded", "i/o timeout", "tls handshake timeout"):
		return ClassTimeout
	case containsAny(msg, "rate limit", "too many requests", "quota exceeded"):
		return ClassRateLimit
	case containsAny(msg, "not found", "no such company", "no results"):
		return ClassNotFound
	case containsAny(msg, "insufficient content", "low confidence", "unparseable", "malformed"):
		return ClassDataQuality
	case containsAny(msg,
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"server closed idle connection",
		"transport connection broken"):
		return ClassTransient
	default:
		return ClassPermanent
	}
}

func classifyHTTPStatus(code int) (FailureClass, bool) {
	switch code {
	case 429:
		return ClassRateLimit, true
	case 408, 504:
		return ClassTimeout, true
	case 404:
		return ClassNotFound, true
	case 422:
		return ClassDataQuality, true
	case 500, 502, 503:
		return ClassTransient, true
	case 400, 401, 403, 405, 410:
		return ClassPermanent, true
	default:
		return "", false
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Retryable reports whether class warrants an automatic retry within the
// same attempt budget: transient, timeout, rate-limit, and data-quality
// failures all are; not-found and permanent failures are not (spec.md
// §4.E). A request that exhausts retries on a retryable class still gets
// one recovery pass, see internal/recovery.
func (c FailureClass) Retryable() bool {
	switch c {
	case ClassTransient, ClassTimeout, ClassRateLimit, ClassDataQuality:
		return true
	default:
		return false
	}
}

// TransientError wraps an error that is safe to retry (e.g., 429, 5xx, network timeout).
//
// Deprecated: prefer NewClassifiedError with an explicit FailureClass.
// Kept because the retry helpers still use IsTransient as their default
// predicate.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, a ClassifiedError whose class is retryable, or matches
// common transient error patterns (network timeouts, connection resets,
// DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}

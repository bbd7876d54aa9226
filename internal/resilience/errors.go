// Package resilience implements the coordination engine's per-operation
// circuit breakers, retry-with-backoff, and bounded-timeout propagation.
// A resilience wrapper composes as circuit_breaker(retry(op)): every
// externally invoked operation in the registry, swarm, hive, and
// coordinator packages passes through Wrap before doing real work.
package resilience

import "errors"

// Kind classifies an error for the purposes of retry and circuit-breaker
// accounting.
type Kind string

const (
	KindUnknownAgent    Kind = "unknown_agent"
	KindUnknownSwarm    Kind = "unknown_swarm"
	KindUnknownDecision Kind = "unknown_decision"
	KindUnknownAction   Kind = "unknown_action"
	KindInvalidInput    Kind = "invalid_input"
	KindResourceExhausted Kind = "resource_exhausted"
	KindCoordination    Kind = "coordination_error"
	KindTimeout         Kind = "timeout"
	KindInternal        Kind = "internal_error"
)

// Error is the engine's structured error type. Recoverable distinguishes
// errors the retry layer should attempt again (CoordinationError,
// InternalError) from ones it must not (ResourceExhausted, InvalidInput,
// the Unknown* family).
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a non-recoverable Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs a non-recoverable Error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Recoverable constructs a retryable Error.
func Recoverable(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause, Recoverable: true}
}

// IsRecoverable reports whether err should be retried. Unrecognized
// errors are treated as recoverable, matching InternalError's default
// behavior: retried under resilience, surfaced after attempts exhaust.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}
	return true
}

// KindOf extracts the Kind of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

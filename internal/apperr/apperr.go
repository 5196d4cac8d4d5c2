// Package apperr defines the normalized error taxonomy shared by the
// recommendation pipeline. Every failure that crosses a component boundary is
// an *Error carrying a closed Kind, so handling sites can match exhaustively
// instead of probing for ad-hoc code fields.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies a failure class.
type Kind string

// Kinds cover every failure the pipeline can surface.
const (
	// KindNoKey means no API key is configured. The client never prompts.
	KindNoKey Kind = "no_key"
	// KindKeyInvalid means the provider rejected the configured key.
	KindKeyInvalid Kind = "key_invalid"
	// KindModelUnavailable means the requested model does not exist.
	KindModelUnavailable Kind = "model_unavailable"
	// KindRateLimitExceeded means 429 responses exhausted the retry ceiling.
	KindRateLimitExceeded Kind = "rate_limit_exceeded"
	// KindServerError covers provider 5xx responses.
	KindServerError Kind = "server_error"
	// KindUnsupportedOperation means the provider cannot perform the request,
	// e.g. embeddings from a chat-only provider.
	KindUnsupportedOperation Kind = "unsupported_operation"
	// KindParseError means a response body could not be interpreted.
	KindParseError Kind = "parse_error"
	// KindNetworkError covers timeouts and connection failures.
	KindNetworkError Kind = "network_error"
	// KindInvalidInput means the caller supplied unusable input.
	KindInvalidInput Kind = "invalid_input"
	// KindInvalidResponse means the provider returned a malformed or missing
	// embedding payload.
	KindInvalidResponse Kind = "invalid_response"
	// KindDimensionMismatch means two vectors of different lengths were compared.
	KindDimensionMismatch Kind = "dimension_mismatch"
	// KindWorkerBusy means the single-flight operation slot is occupied.
	KindWorkerBusy Kind = "worker_busy"
	// KindTimeout means an operation exceeded its deadline.
	KindTimeout Kind = "timeout"
)

// Retryable reports whether a retry may succeed without caller intervention.
// WorkerBusy is deliberately not retryable: the caller must wait for the
// in-flight operation or time it out.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetworkError, KindRateLimitExceeded, KindServerError:
		return true
	default:
		return false
	}
}

// Error is the single structured error type used across the pipeline.
type Error struct {
	Kind       Kind
	Message    string
	Status     int           // HTTP status when the failure came off the wire
	RetryAfter time.Duration // server-supplied delay hint, zero if absent
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is match on Kind, so callers can compare against a bare
// kind error without caring about message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithStatus attaches the originating HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithRetryAfter attaches a server-supplied retry delay.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// KindOf extracts the Kind from err, or empty string if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is a transient failure worth retrying.
func Retryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Retryable()
	}
	return false
}

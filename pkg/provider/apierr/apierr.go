// Package apierr classifies failures coming back from remote provider
// APIs into a small closed set of kinds, so that callers can react to
// the failure class without string-matching provider-specific messages.
package apierr

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies the failure class of a provider call.
type Kind int

const (
	// KindUnknown covers failures that fit no other class.
	KindUnknown Kind = iota

	// KindUpstreamRejected means the remote API answered with a non-success
	// status (auth failure, quota, server error).
	KindUpstreamRejected

	// KindMalformedResponse means the API answered 2xx but the payload did
	// not have the documented shape.
	KindMalformedResponse

	// KindDecodeFailure means the payload shape was fine but the content
	// could not be decoded (e.g., truncated PCM audio).
	KindDecodeFailure

	// KindTimeout means the call exceeded its deadline or was cancelled.
	KindTimeout

	// KindInvalidInput means the caller supplied a request the provider
	// refuses locally, before any network round trip.
	KindInvalidInput
)

// String returns the stable lowercase name of the kind, suitable for
// log attributes and metric labels.
func (k Kind) String() string {
	switch k {
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindMalformedResponse:
		return "malformed_response"
	case KindDecodeFailure:
		return "decode_failure"
	case KindTimeout:
		return "timeout"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure. Provider is the implementation
// name, Status carries the HTTP status when one was received (zero
// otherwise), and Err is the underlying cause.
type Error struct {
	Kind     Kind
	Provider string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with the given kind and provider name.
func New(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// Newf is New with a formatted message as the cause.
func Newf(kind Kind, provider, format string, args ...any) *Error {
	return &Error{Kind: kind, Provider: provider, Err: fmt.Errorf(format, args...)}
}

// Rejected builds an upstream-rejection error carrying the HTTP status.
func Rejected(provider string, status int, err error) *Error {
	return &Error{Kind: KindUpstreamRejected, Provider: provider, Status: status, Err: err}
}

// Classify maps an arbitrary error to its Kind. Context deadline and
// cancellation errors classify as KindTimeout even when wrapped by a
// transport.
func Classify(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind, directly or via
// Classify's timeout detection.
func IsKind(err error, kind Kind) bool {
	return Classify(err) == kind
}

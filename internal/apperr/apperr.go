// Package apperr defines the error taxonomy shared by handlers and
// services.  Handlers translate kinds into HTTP status codes; the
// repository layer keeps its own sentinel errors and services wrap
// them into one of these kinds before they cross the handler boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and retry semantics.
type Kind int

const (
	// Validation is malformed or missing input.  Reported to the
	// caller, never retried automatically.
	Validation Kind = iota
	// Conflict is a retryable-by-user condition: seat locked or
	// unavailable, booking not in the required state.
	Conflict
	// NotFound is an unknown showtime, seat or booking.
	NotFound
	// Upstream is a dependency failure: payment provider, lock store
	// or event log unreachable.
	Upstream
	// Invariant indicates a bug, e.g. a partial multi-seat commit.
	// It must be logged loudly and the operation aborted.
	Invariant
)

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches a cause to a new Error of the given kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind from err, defaulting to Upstream for
// unclassified failures so they map to a 5xx response.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Upstream
}

// HTTPStatus maps an error to the status code handlers should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Invariant, Upstream:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

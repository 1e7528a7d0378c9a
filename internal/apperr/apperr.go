// Package apperr defines the error taxonomy shared by all services and the
// HTTP layer. Handlers match on Kind to pick a status code; messages are safe
// to return to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// Internal is the fallback for storage and infrastructure failures.
	Internal Kind = iota
	// Validation covers malformed or missing input, including
	// unrecognized scan payloads.
	Validation
	// NotFound covers unknown shifts, students, and records.
	NotFound
	// Conflict covers duplicate scans and duplicate slot records.
	Conflict
	// InvalidOp covers operations against entities in the wrong state,
	// such as scanning into a closed shift.
	InvalidOp
)

// Error carries a kind and a client-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Code returns the machine-usable error class for the response envelope.
func Code(err error) string {
	switch KindOf(err) {
	case Validation:
		return "validation_error"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidOp:
		return "invalid_operation"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps a kind to its status code. Conflict maps to 409; the
// appointment handlers override that to 400 where the API contract says so.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation, InvalidOp:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

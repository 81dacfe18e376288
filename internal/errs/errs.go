// Package errs defines the error taxonomy for cache and sync operations.
// Every mutation resolves to either the updated entity or one of these.
// Nothing here is fatal; the cache rolls back before re-raising.
package errs

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNetwork    Code = "NETWORK"    // request failed or non-2xx
	CodeValidation Code = "VALIDATION" // local schema check failed, no request issued
	CodeTransition Code = "TRANSITION" // status change is not a valid forward transition
	CodeNotFound   Code = "NOT_FOUND"  // entity absent from the cache
)

// Error is a coded sync-layer error. Message is safe to surface verbatim.
type Error struct {
	Code    Code
	Message string
	Status  int // HTTP status for network errors, 0 otherwise
	Cause   error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewNetwork wraps a failed request or a non-2xx response. message comes
// from the response body when the server provided one, status text otherwise.
func NewNetwork(status int, message string, cause error) *Error {
	return &Error{Code: CodeNetwork, Status: status, Message: message, Cause: cause}
}

func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func NewTransition(message string) *Error {
	return &Error{Code: CodeTransition, Message: message}
}

func NewNotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not in cache", kind, id)}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsNetwork(err error) bool    { return Is(err, CodeNetwork) }
func IsValidation(err error) bool { return Is(err, CodeValidation) }
func IsTransition(err error) bool { return Is(err, CodeTransition) }
func IsNotFound(err error) bool   { return Is(err, CodeNotFound) }

// Package errors provides common, reusable error values and helpers.
//
// Every failed operation in the portal is classified by a Kind so the HTTP
// boundary can map it to a status code without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindUnauthorized           Kind = "unauthorized"
	KindInvalidApprovalLevel   Kind = "invalid_approval_level"
	KindDuplicateKey           Kind = "duplicate_key"
	KindValidation             Kind = "validation"
	KindExternalSink           Kind = "external_sink"
	KindInternal               Kind = "internal"
)

// Error is a classified portal error.
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

// E builds a classified error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef builds a classified error with a formatted message.
func Ef(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapKind wraps err with a kind and message, preserving the cause.
func WrapKind(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Common errors
var (
	ErrEntityNotFound   = E(KindNotFound, "entity not found")
	ErrDivisionNotFound = E(KindNotFound, "division not found")
	ErrUserNotFound     = E(KindNotFound, "user not found")
	ErrGrantNotFound    = E(KindNotFound, "approval grant not found")

	ErrInvalidCredentials = E(KindUnauthorized, "invalid credentials")
)

// New creates an unclassified error. Kept for parity with the stdlib surface.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is re-exports errors.Is so callers need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports errors.As so callers need a single errors import.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Package apperr classifies failures of the content adapter so that HTTP
// handlers can pick a status code and a user-safe message by category
// instead of inspecting upstream error text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the classification of an adapter failure.
type Kind string

const (
	KindConfig     Kind = "config"     // required identifier or credential missing
	KindAuth       Kind = "auth"       // credential rejected or lacks access
	KindNotFound   Kind = "not_found"  // database, page or post does not exist
	KindUpstream   Kind = "upstream"   // any other non-success upstream response
	KindValidation Kind = "validation" // malformed caller input
	KindNetwork    Kind = "network"    // transport failure reaching upstream
	KindInternal   Kind = "internal"
)

// Error is a classified adapter error.
type Error struct {
	Kind      Kind
	Message   string
	Cause     error
	Status    int // upstream HTTP status, 0 if none
	Retryable bool
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

// Is matches another *Error by kind and message, so package-level sentinels
// built with New work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

// WithStatus records the upstream HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// AsRetryable marks the error as transient.
func (e *Error) AsRetryable() *Error {
	e.Retryable = true
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err is a transient classified failure.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// PublicMessage returns the stable, user-facing message for a kind.
func PublicMessage(kind Kind) string {
	switch kind {
	case KindConfig:
		return "Database configuration error"
	case KindAuth:
		return "Invalid content token or insufficient permissions"
	case KindNotFound:
		return "Database not found or not accessible"
	case KindValidation:
		return "Invalid request"
	case KindNetwork:
		return "Content service unreachable"
	case KindUpstream:
		return "Content service error"
	default:
		return "Internal server error"
	}
}

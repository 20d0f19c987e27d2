// Package domain contains the directory's entities, value objects, and
// domain-specific errors. It has no dependencies outside the standard library.
package domain

import (
	"errors"
	"fmt"
)

// Caller-visible messages. They are part of the wire contract with domain
// servers and must not change casually.
const (
	MsgUnauthorized       = "Unauthorized"
	MsgDomainNotFound     = "Domain not found"
	MsgBadlyFormed        = "badly formed data"
	MsgTargetDomainAbsent = "Target domain does not exist"
	MsgNotAuthorized      = "Not authorized"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized is returned when the caller could not be identified or
	// does not hold any of the required roles.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadlyFormed is returned when an update payload has no recognizable shape.
	ErrBadlyFormed = errors.New(MsgBadlyFormed)

	// ErrUnknownField is returned by the field engine for names outside the
	// closed field set.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidValue is returned by the field engine when a value fails
	// validation or coercion.
	ErrInvalidValue = errors.New("invalid value")

	// ErrForbiddenField is returned by the field engine when the acting
	// account may not change a field it is otherwise allowed to send.
	ErrForbiddenField = errors.New("field not permitted")
)

// DomainError wraps a base error with additional context.
type DomainError struct {
	// Base is the underlying error type (e.g., ErrNotFound)
	Base error

	// Message provides human-readable context
	Message string

	// Field indicates which field caused the error (for validation errors)
	Field string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Base.Error(), e.Message, e.Field)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Base.Error(), e.Message)
	}
	return e.Base.Error()
}

// Unwrap returns the base error for errors.Is/As support.
func (e *DomainError) Unwrap() error {
	return e.Base
}

// NewNotFoundError creates a not found error with context.
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{
		Base:    ErrNotFound,
		Message: resource,
	}
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Base:    ErrInvalidValue,
		Message: message,
		Field:   field,
	}
}

// NewUnauthorizedError creates an unauthorized error with context.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{
		Base:    ErrUnauthorized,
		Message: message,
	}
}

// NewBadlyFormedError creates the error reported for unusable payloads.
func NewBadlyFormedError() *DomainError {
	return &DomainError{
		Base:    ErrBadlyFormed,
		Message: MsgBadlyFormed,
	}
}

// PublicMessage returns the message safe to show a caller.
func PublicMessage(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidValue)
}

// IsUnauthorized checks if an error is unauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsBadlyFormed checks if an error reports an unusable payload.
func IsBadlyFormed(err error) bool {
	return errors.Is(err, ErrBadlyFormed)
}

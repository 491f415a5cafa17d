package model

import (
	"errors"
	"fmt"
)

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrConflict    ErrorCode = "CONFLICT"
	ErrUnavailable ErrorCode = "UNAVAILABLE"
	ErrInternal    ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the handlers and their API.
//
// The same type carries the three error classes the handlers distinguish:
// VALIDATION_ERROR (bad input or broken business rule), NOT_FOUND (a
// referenced run, pipeline or data object does not exist) and UNAVAILABLE
// (a store, registry or service could not be reached).
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`

	// Err is the underlying cause, if any. It is never serialized.
	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	return e.Err
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// NewUnavailableError wraps an infrastructure failure of op.
func NewUnavailableError(op string, err error) *APIError {
	return &APIError{Code: ErrUnavailable, Message: op, Err: err}
}

// InvalidTransitionError is returned when a status change would move a
// workflow run backwards.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}

// CodeOf returns the ErrorCode carried by err, or ErrInternal when err is
// not an APIError. Invalid transitions map to ErrConflict.
func CodeOf(err error) ErrorCode {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var transErr *InvalidTransitionError
	if errors.As(err, &transErr) {
		return ErrConflict
	}
	return ErrInternal
}

// IsValidation reports whether err is a VALIDATION_ERROR.
func IsValidation(err error) bool { return CodeOf(err) == ErrValidation }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrNotFound }

// IsUnavailable reports whether err is an infrastructure failure.
func IsUnavailable(err error) bool { return CodeOf(err) == ErrUnavailable }

// AsAPIError converts any error into an APIError suitable for a response body.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var transErr *InvalidTransitionError
	if errors.As(err, &transErr) {
		return &APIError{Code: ErrConflict, Message: transErr.Error()}
	}
	return &APIError{Code: ErrInternal, Message: err.Error()}
}

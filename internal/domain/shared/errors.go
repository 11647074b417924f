package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")

	// ErrValidation is matched by every *ValidationError
	ErrValidation = NewDomainError("VALIDATION_ERROR", "Validation failed")
	// ErrBackendWrite is matched by every *BackendWriteError
	ErrBackendWrite = NewDomainError("BACKEND_WRITE_FAILED", "Write rejected by the store")
	// ErrNotReady is returned when an operation needs a view that has not received its first snapshot
	ErrNotReady = NewDomainError("NOT_READY", "Data is still loading")
)

// ValidationError is returned synchronously when input is rejected before any write
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) true
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackendWriteError reports a write rejected by a store for one document
type BackendWriteError struct {
	Path string
	Op   string
	Err  error
}

// Error implements the error interface
func (e *BackendWriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the store error
func (e *BackendWriteError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrBackendWrite) true in addition to the wrapped chain
func (e *BackendWriteError) Is(target error) bool {
	return target == ErrBackendWrite
}

// Code returns the error code used for API responses
func Code(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ErrValidation.Code
	}
	var we *BackendWriteError
	if errors.As(err, &we) {
		if errors.Is(we.Err, ErrNotFound) {
			return ErrNotFound.Code
		}
		return ErrBackendWrite.Code
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// Name-classification sentinels.
var (
	ErrEmptyName      = fmt.Errorf("%w: name has no significant tokens", ErrValidation)
	ErrNameTooComplex = fmt.Errorf("%w: name has more than six significant tokens", ErrValidation)
	ErrConcurrentJob  = fmt.Errorf("%w: a running job already holds the lock for this input", ErrConflict)
	ErrInputChanged   = fmt.Errorf("%w: input fingerprint differs from the job's recorded fingerprint", ErrConflict)
)

// ErrorKind is a closed taxonomy of cascade and store failure reasons. It is
// attached to a Classification or LeadResult rather than surfaced as a bare
// error value, so callers can branch on it without string matching.
type ErrorKind string

const (
	ErrorKindNone ErrorKind = ""

	ErrorKindEmptyName     ErrorKind = "input.empty_name"
	ErrorKindNameTooComplex ErrorKind = "input.name_too_complex"
	ErrorKindMalformedRow  ErrorKind = "input.malformed_row"

	ErrorKindLLMRateLimited ErrorKind = "llm.rate_limited"
	ErrorKindLLMTimeout     ErrorKind = "llm.timeout"
	ErrorKindLLMTransport   ErrorKind = "llm.transport"
	ErrorKindLLMMalformed   ErrorKind = "llm.malformed"
	ErrorKindLLMRefused     ErrorKind = "llm.refused"

	ErrorKindStoreConflict ErrorKind = "store.conflict"
	ErrorKindStoreIO       ErrorKind = "store.io"
	ErrorKindInternalBug   ErrorKind = "internal.bug"
)

// Retryable reports whether the Runner should attempt a micro-batch retry
// for this error kind.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindLLMRateLimited, ErrorKindLLMTimeout, ErrorKindLLMTransport:
		return true
	default:
		return false
	}
}

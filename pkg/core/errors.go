package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error for the turn pipeline and its stores.
type Error struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	Param         string    `json:"param,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	ProviderError any       `json:"provider_error,omitempty"`

	wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors by the pipeline step that produced them.
type ErrorType string

const (
	ErrValidation    ErrorType = "validation_error"
	ErrNotFound      ErrorType = "not_found_error"
	ErrTranscription ErrorType = "transcription_error"
	ErrReasoning     ErrorType = "reasoning_error"
	ErrSynthesis     ErrorType = "synthesis_error"
	ErrStorage       ErrorType = "storage_error"
)

// NewValidationError creates a validation error for missing or malformed input.
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
	}
}

// NewValidationErrorWithParam creates a validation error naming the offending parameter.
func NewValidationErrorWithParam(message, param string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
		Param:   param,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewTranscriptionError wraps a speech-to-text provider failure.
func NewTranscriptionError(provider string, underlying error) *Error {
	return newProviderError(ErrTranscription, provider, underlying)
}

// NewReasoningError wraps a reasoning provider failure.
func NewReasoningError(provider string, underlying error) *Error {
	return newProviderError(ErrReasoning, provider, underlying)
}

// NewSynthesisError wraps a text-to-speech provider failure.
func NewSynthesisError(provider string, underlying error) *Error {
	return newProviderError(ErrSynthesis, provider, underlying)
}

// NewStorageError wraps a record or blob store failure.
func NewStorageError(op string, underlying error) *Error {
	return &Error{
		Type:    ErrStorage,
		Message: fmt.Sprintf("%s: %v", op, underlying),
		wrapped: underlying,
	}
}

func newProviderError(kind ErrorType, provider string, underlying error) *Error {
	return &Error{
		Type:          kind,
		Message:       fmt.Sprintf("%s: %v", provider, underlying),
		ProviderError: underlying.Error(),
		wrapped:       underlying,
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.wrapped
}

// IsKind reports whether err is a pipeline *Error of the given kind.
func IsKind(err error, kind ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) || e == nil {
		return false
	}
	return e.Type == kind
}

// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies pipeline and API failures
type ErrorType string

const (
	// Generic error types
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeError      ErrorType = "processing_error"

	// Narration pipeline error types
	ErrorTypeGatewayExhausted       ErrorType = "gateway_exhausted"
	ErrorTypeParseMalformed         ErrorType = "parse_malformed"
	ErrorTypeSchemaViolation        ErrorType = "schema_violation"
	ErrorTypeDestinationUnavailable ErrorType = "destination_unavailable"
	ErrorTypeMaintenance            ErrorType = "maintenance"
)

// AppError is the application error structure
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Field   string // offending field for schema violations
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field %q)", e.Message, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error chaining
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError creates a processing error
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewGatewayExhaustedError signals that every configured backend model
// failed for one generation cycle.
func NewGatewayExhaustedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeGatewayExhausted, message, originalError)
}

// NewParseMalformedError signals that no JSON object could be parsed out of
// a model reply.
func NewParseMalformedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeParseMalformed, message, originalError)
}

// NewSchemaViolationError signals a reply whose JSON object is missing a
// required field for its directive kind.
func NewSchemaViolationError(field string) *AppError {
	return &AppError{
		Type:    ErrorTypeSchemaViolation,
		Message: "model reply violates the directive shape contract",
		Field:   field,
	}
}

// NewDestinationUnavailableError signals a missing channel or thread; the
// effect is skipped, sibling effects proceed.
func NewDestinationUnavailableError(message string) *AppError {
	return NewAppError(ErrorTypeDestinationUnavailable, message, nil)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// IsNotFoundError checks for a not-found error
func IsNotFoundError(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsGatewayExhausted checks for a gateway-exhausted error
func IsGatewayExhausted(err error) bool {
	return IsType(err, ErrorTypeGatewayExhausted)
}

// IsSchemaViolation checks for a schema-violation error
func IsSchemaViolation(err error) bool {
	return IsType(err, ErrorTypeSchemaViolation)
}

// IsParseMalformed checks for a malformed-reply error
func IsParseMalformed(err error) bool {
	return IsType(err, ErrorTypeParseMalformed)
}

// ViolatedField returns the offending field of a schema violation, or "".
func ViolatedField(err error) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Field
	}
	return ""
}

// WrapError wraps an existing error, preserving an AppError's type
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Field:   appError.Field,
		}
	}

	return NewAppError(errType, message, err)
}

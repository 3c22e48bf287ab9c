package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Stable error codes surfaced by the extraction and workflow pipeline.
const (
	CodeUnreadableDocument      = "UNREADABLE_DOCUMENT"
	CodeExtractionFailed        = "EXTRACTION_FAILED"
	CodeExtractionTimeout       = "EXTRACTION_TIMEOUT"
	CodeClassificationTimeout   = "CLASSIFICATION_TIMEOUT"
	CodeMalformedClassification = "MALFORMED_CLASSIFICATION_RESPONSE"
	CodeInvalidTransition       = "INVALID_TRANSITION"
	CodeTruncatedInput          = "TRUNCATED_INPUT"
	CodeConfigError             = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorCode extracts the AppError code from err, or "" if err carries none.
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsCode reports whether err carries the given AppError code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// Package errors provides a lightweight structured error type (TrellisError)
// for category-based classification in the render engine and its HTTP adapter.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a trellis error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Content pipeline errors
	CategoryContent ErrorCategory = "content"
	CategoryParse   ErrorCategory = "parse"
	CategoryCrypto  ErrorCategory = "crypto"

	// Runtime and infrastructure errors
	CategoryCache      ErrorCategory = "cache"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the operation
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// TrellisError is a structured error with category, severity, and context
type TrellisError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for TrellisError
type ContextFields map[string]any

// Error implements the error interface
func (e *TrellisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *TrellisError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *TrellisError) WithContext(key string, value any) *TrellisError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new TrellisError
func New(category ErrorCategory, severity ErrorSeverity, message string) *TrellisError {
	return &TrellisError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new TrellisError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *TrellisError {
	return &TrellisError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category, unwrapping
// as needed.
func IsCategory(err error, category ErrorCategory) bool {
	var te *TrellisError
	if errors.As(err, &te) {
		return te.Category == category
	}
	return false
}

// GetCategory extracts the category from an error chain, or returns
// CategoryInternal when no TrellisError is present.
func GetCategory(err error) ErrorCategory {
	var te *TrellisError
	if errors.As(err, &te) {
		return te.Category
	}
	return CategoryInternal
}

// Package errors provides the standardized error taxonomy for the assistant
// pipeline. Every failure that crosses a stage boundary is a *StandardError
// so that transport status codes, decision-trail tokens and user-facing
// messages can all be derived from one place.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Access errors
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"

	// Routing errors
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Request errors
	ErrCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"

	// Backend errors
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeBackendTimeout     ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeDataQueryFailed    ErrorCode = "DATA_QUERY_FAILED"

	// Internal errors
	ErrCodeConfigDefect  ErrorCode = "CONFIG_DEFECT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface.
func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the error for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err into a *StandardError if one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or ErrCodeInternalError when err is
// not a StandardError.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternalError
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Retryable
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUnauthenticatedError creates a non-retryable authentication error.
func NewUnauthenticatedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthenticated,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenError creates a non-retryable authorization error.
func NewForbiddenError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "Insufficient permissions",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotImplementedError creates a non-retryable capability gap error.
func NewNotImplementedError(intent string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotImplemented,
		Message:   "Capability not implemented",
		Details:   fmt.Sprintf("intent: %s", intent),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationError,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable lookup miss error.
func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnavailableError creates a retryable backend connectivity error.
func NewBackendUnavailableError(backend string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendUnavailable,
		Message:   fmt.Sprintf("Backend '%s' unavailable", backend),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendTimeoutError creates a retryable backend timeout error.
func NewBackendTimeoutError(backend string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   fmt.Sprintf("Backend '%s' timeout", backend),
		Details:   "call exceeded deadline",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataQueryFailedError creates a retryable data access error.
func NewDataQueryFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataQueryFailed,
		Message:   "Data query failed",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigDefectError creates a non-retryable configuration defect error.
func NewConfigDefectError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigDefect,
		Message:   "Configuration defect",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError creates a non-retryable internal error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalError,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Transport Mapping
// ==========================

// HTTPStatus maps an error code to the HTTP status the transport layer
// reports. Pipeline outcomes still travel as a normal response body; only
// the status line mirrors the code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidationError:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeBackendTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// ==========================
// 4. Failure Classification
// ==========================

// failureKinds maps error codes to the coarse machine-readable kind recorded
// in decision trails and metric labels. Anything unmapped is "internal".
var failureKinds = map[ErrorCode]string{
	ErrCodeValidationError:    "validation",
	ErrCodeNotFound:           "not_found",
	ErrCodeBackendUnavailable: "unavailable",
	ErrCodeBackendTimeout:     "timeout",
	ErrCodeDataQueryFailed:    "query",
	ErrCodeConfigDefect:       "config",
}

// FailureKind classifies err into a coarse kind. It never exposes message
// content.
func FailureKind(err error) string {
	if err == nil {
		return ""
	}
	if stdErr, ok := AsStandardError(err); ok {
		if kind, found := failureKinds[stdErr.Code]; found {
			return kind
		}
	}
	return "internal"
}

// ==========================
// 5. Detail Sanitization
// ==========================

var (
	dsnPattern      = regexp.MustCompile(`\b\w+://[^\s"']*@[^\s"']+`)
	urlPattern      = regexp.MustCompile(`https?://[^\s"']+`)
	ipPattern       = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}(?::\d{1,5})?\b`)
	sqlPattern      = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|ALTER)\b[^;]{0,200}`)
	filePathPattern = regexp.MustCompile(`(?:/[\w.-]+){2,}`)
)

// Sanitize strips connection strings, URLs, IP addresses, SQL fragments and
// file paths from text so that backend internals never reach a caller.
func Sanitize(text string) string {
	text = dsnPattern.ReplaceAllString(text, "[redacted]")
	text = urlPattern.ReplaceAllString(text, "[redacted]")
	text = ipPattern.ReplaceAllString(text, "[redacted]")
	text = sqlPattern.ReplaceAllString(text, "[redacted]")
	text = filePathPattern.ReplaceAllString(text, "[redacted]")
	return text
}

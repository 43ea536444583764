package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeInvalidInput covers missing/undersized pixel buffers and
	// buffers whose byte length does not match width*height*4.
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeConfiguration covers malformed stain matrices, weight sets
	// that do not sum to 1.0, empty grade-band tables and the like. These
	// are surfaced at construction time, before any pixel work begins.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeInsufficientSamples marks a scorer that received fewer
	// regions than its configured minimum. Recoverable: the scorer emits
	// its documented low-confidence default instead of failing.
	ErrorTypeInsufficientSamples ErrorType = "insufficient_samples"
	// ErrorTypeResourceLimit marks a region that hit the max-pixel cap
	// during growth. Recoverable: the region is kept with a truncation flag.
	ErrorTypeResourceLimit ErrorType = "resource_limit"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeInternal      ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewInvalidInputError creates an error for rejected pixel buffers
func NewInvalidInputError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidInput,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewConfigurationError creates an error for invalid pipeline configuration
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewInsufficientSamplesError creates the recoverable starvation error
func NewInsufficientSamplesError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInsufficientSamples,
		Message:    message,
		StatusCode: http.StatusOK,
		Cause:      cause,
	}
}

// NewResourceLimitError creates the recoverable cap-hit error
func NewResourceLimitError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeResourceLimit,
		Message:    message,
		StatusCode: http.StatusOK,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == errorType
	}
	return false
}

// IsRecoverable reports whether the error category is absorbed into the
// result rather than aborting the request.
func IsRecoverable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Type == ErrorTypeInsufficientSamples || appErr.Type == ErrorTypeResourceLimit
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

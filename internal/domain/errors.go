package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure taxonomy. Malformed input lines and
// missing numeric fields are deliberately not errors: the parser skips the
// former and the scorers degrade to zero contribution for the latter.
var (
	// ErrUnsupportedFormat means the uploaded file does not match the
	// supported genotype layout. Terminal; no retry.
	ErrUnsupportedFormat = errors.New("unsupported genotype file format")

	// ErrCatalogUnavailable means an underlying catalog store call failed.
	// Terminal for the current run; the caller may retry the whole run.
	ErrCatalogUnavailable = errors.New("catalog store unavailable")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// APIError is a structured error response for the HTTP layer.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeCatalogError      = "CATALOG_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRateLimit         = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer    = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// Package errors defines the error taxonomy of the record engine and the
// structured error type used to report it over the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Conditions raised by the engine. Match them with errors.Is.
var (
	// ErrStorageUnavailable is wrapped by persistence backends when a get or
	// set fails. Stores recover from it locally and never surface it.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrImportParse is returned when an import payload is not valid JSON.
	ErrImportParse = errors.New("import payload is not valid JSON")
	// ErrImportFormat is returned when an import payload parses but is not an
	// array of record objects.
	ErrImportFormat = errors.New("import payload is not an array of records")
	// ErrDuplicateColumn is returned when adding a column whose key already
	// exists in the schema.
	ErrDuplicateColumn = errors.New("column key already exists")
	// ErrColumnIndex is returned when a column position is out of range.
	ErrColumnIndex = errors.New("column index out of range")
)

// StaleColumnReference is the name given to a record lacking a field for a
// displayed column. It is not an error: display and export render the missing
// field as an empty value.
const StaleColumnReference = "stale column reference"

// ValidationError reports a form field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrImportParseError is returned when an imported file is not JSON
	ErrImportParseError ErrorCode = "IMPORT_PARSE_ERROR"
	// ErrImportFormatError is returned when an imported file is not a JSON array
	ErrImportFormatError ErrorCode = "IMPORT_FORMAT_ERROR"

	// ErrNotFound is returned when a resource is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrConflict is returned when there is a resource conflict
	ErrConflict ErrorCode = "CONFLICT"
	// ErrRateLimited is returned when too many writes arrive in a window
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// ErrInternal is returned when an unexpected server error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, fmt.Sprintf("Missing required field: %s", fieldName))
}

// RateLimited creates a 429 error telling the client when to retry.
func RateLimited(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "Too many writes, retry later").
		WithDetail("retry_after", retryAfter)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// FromDomain maps an engine condition to its API representation. Errors that
// are already an ErrorWithStatus, or unknown, are returned as-is.
func FromDomain(err error) error {
	if err == nil {
		return nil
	}
	var ews ErrorWithStatus
	if errors.As(err, &ews) {
		return err
	}
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrImportParse):
		return NewAPIError(http.StatusBadRequest, ErrImportParseError, "Invalid JSON file").Wrap(err)
	case errors.Is(err, ErrImportFormat):
		return NewAPIError(http.StatusBadRequest, ErrImportFormatError, "JSON file must contain an array of records").Wrap(err)
	case errors.Is(err, ErrDuplicateColumn):
		return NewAPIError(http.StatusConflict, ErrConflict, "Column key already exists").Wrap(err)
	case errors.Is(err, ErrColumnIndex):
		return NotFound("column").Wrap(err)
	case errors.As(err, &verr):
		return BadRequest(verr.Error()).WithDetail("field", verr.Field)
	}
	return err
}

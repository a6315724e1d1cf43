package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so wrapped sentinels still match with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeAlreadyExists   = "ALREADY_EXISTS"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTooLarge        = "PAYLOAD_TOO_LARGE"
	ErrCodeExternalService = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// ErrorCode returns the code of the first DomainError in err's chain, or "".
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// Validation errors
var (
	ErrInvalidBatchSize     = NewDomainError(ErrCodeValidation, "batch size must be positive")
	ErrInvalidGroupSize     = NewDomainError(ErrCodeValidation, "group size must be at least 2")
	ErrInvalidThreshold     = NewDomainError(ErrCodeValidation, "reduce threshold must be positive")
	ErrInvalidChunkUnit     = NewDomainError(ErrCodeValidation, "invalid chunk unit")
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid summary job status")
	ErrInvalidJobMode       = NewDomainError(ErrCodeValidation, "invalid summary job mode")
	ErrNoStudentsSelected   = NewDomainError(ErrCodeValidation, "at least one student is required")
	ErrEmptyChunk           = NewDomainError(ErrCodeValidation, "chunk cannot be empty")
	ErrUnknownPrompt        = NewDomainError(ErrCodeValidation, "unknown prompt template")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrMalformedDataset     = NewDomainError(ErrCodeValidation, "malformed dataset")
	ErrBodyTooLarge         = NewDomainError(ErrCodeTooLarge, "request body too large")
)

// Not found errors
var (
	ErrStudentNotFound = NewDomainError(ErrCodeNotFound, "no data found for student")
	ErrJobNotFound     = NewDomainError(ErrCodeNotFound, "summary job not found")
	ErrReportNotFound  = NewDomainError(ErrCodeNotFound, "summary report not found")
)

// External service errors
var (
	ErrGeneration         = NewDomainError(ErrCodeExternalService, "text generation failed")
	ErrMalformedResponse  = NewDomainError(ErrCodeExternalService, "malformed generation response")
	ErrRateLimited        = NewDomainError(ErrCodeExternalService, "text generation rate limited")
	ErrDatasetUnavailable = NewDomainError(ErrCodeExternalService, "dataset unavailable")
)

// Storage errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrArchiveNotConfigured = NewDomainError(ErrCodeInternalError, "report archive not configured")
)

// ExternalServiceError wraps a generator failure so it carries the
// EXTERNAL_SERVICE_ERROR code while keeping the cause inspectable.
func ExternalServiceError(message string, cause error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExternalService, message, cause)
}

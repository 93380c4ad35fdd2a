package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
	CodeBadInput           ErrorCode = "BAD_INPUT"
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"

	// Upload and extraction
	CodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	CodePayloadTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeExtractionFailed     ErrorCode = "EXTRACTION_FAILED"
	CodeStorageUploadFailed  ErrorCode = "STORAGE_UPLOAD_FAILED"
	CodeNoContent            ErrorCode = "NO_CONTENT"

	// Upstream LLM API
	CodeRateLimitExceeded     ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeUpstreamCallFailed    ErrorCode = "UPSTREAM_CALL_FAILED"
	CodeUpstreamUnavailable   ErrorCode = "UPSTREAM_UNAVAILABLE"
	CodeEmptyUpstreamResponse ErrorCode = "EMPTY_UPSTREAM_RESPONSE"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// WithContext attaches a detail that the error handler exposes to the client.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err carries a DomainError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewBadInputError(message string) *DomainError {
	return NewError(CodeBadInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(CodeUnauthorized, message, nil)
}

func NewPreconditionFailedError(message string) *DomainError {
	return NewError(CodePreconditionFailed, message, nil)
}

func NewUnsupportedMediaTypeError(mimeType string) *DomainError {
	return NewError(CodeUnsupportedMediaType, fmt.Sprintf("unsupported file type: %s", mimeType), nil)
}

func NewPayloadTooLargeError(size, limit int64) *DomainError {
	return NewError(CodePayloadTooLarge, "file exceeds the maximum upload size", nil).
		WithContext("size", size).
		WithContext("limit", limit)
}

func NewExtractionFailedError(message string, err error) *DomainError {
	return NewError(CodeExtractionFailed, message, err)
}

func NewStorageUploadFailedError(err error) *DomainError {
	return NewError(CodeStorageUploadFailed, "failed to upload document to storage", err)
}

func NewNoContentError() *DomainError {
	return NewError(CodeNoContent, "document contains no usable text", nil)
}

func NewRateLimitExceededError(attempts int, err error) *DomainError {
	return NewError(CodeRateLimitExceeded, "upstream rate limit exceeded", err).WithContext("attempts", attempts)
}

func NewUpstreamCallFailedError(status int, err error) *DomainError {
	return NewError(CodeUpstreamCallFailed, "upstream call failed", err).WithContext("upstream_status", status)
}

func NewUpstreamUnavailableError(attempts int, err error) *DomainError {
	return NewError(CodeUpstreamUnavailable, "upstream service unavailable", err).WithContext("attempts", attempts)
}

func NewEmptyUpstreamResponseError(err error) *DomainError {
	return NewError(CodeEmptyUpstreamResponse, "upstream returned no usable content", err)
}

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is returned as a whole so the error handler can render every field.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Message: "is required"}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Field: field, Message: "has an invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max), Value: value}
}

func NewInvalidChoiceError(field string, value interface{}, allowed []string) ValidationError {
	return ValidationError{Field: field, Message: "must be one of " + strings.Join(allowed, ", "), Value: value}
}

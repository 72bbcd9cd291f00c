package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Standard error codes for API responses and engine failures.
const (
	ErrCodeInvalidJSON    = "INVALID_JSON"
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeInvalidFilter  = "INVALID_FILTER"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeNoConnectivity = "NO_CONNECTIVITY"
	ErrCodeUnauthorised   = "UNAUTHORIZED"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

// DomainError is a business-level failure carrying a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies compare equal.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound       = NewDomainError(ErrCodeNotFound, "record not found")
	ErrInvalidInput   = NewDomainError(ErrCodeInvalidInput, "invalid input")
	ErrInvalidFilter  = NewDomainError(ErrCodeInvalidFilter, "unsupported filter field")
	ErrNoConnectivity = NewDomainError(ErrCodeNoConnectivity, "no internet connection")
)

// IsCode reports whether err is a DomainError with the given code.
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

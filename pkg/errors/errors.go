package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes used across the service
const (
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeIO              = "IO_ERROR"
	CodeProtocol        = "PROTOCOL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInternal        = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// Wrap creates an application error that keeps err as its cause
func Wrap(err error, statusCode int, code string, message string) *AppError {
	appErr := NewError(statusCode, code, message)
	appErr.cause = err
	return appErr
}

// NewExternalServiceError reports an upstream API that was unreachable,
// rejected the request or answered with something unusable
func NewExternalServiceError(err error, message string) *AppError {
	return Wrap(err, http.StatusBadGateway, CodeExternalService, message)
}

// NewIOError reports a local filesystem failure
func NewIOError(err error, message string) *AppError {
	return Wrap(err, http.StatusInternalServerError, CodeIO, message)
}

// NewProtocolError reports a client that broke the connection protocol
func NewProtocolError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeProtocol, message)
}

// NewInvalidInputError reports input rejected before any upstream call
func NewInvalidInputError(message string) *AppError {
	return NewError(http.StatusBadRequest, CodeInvalidInput, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// Is checks whether err (or anything it wraps) is an AppError with the given code
func Is(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the workflow engine and the HTTP surface.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "PERMISSION_DENIED"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "STATE_CONFLICT"
	CodeDeliveryFailure = "DELIVERY_FAILURE"
	CodeInternal        = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// WithCause attaches the underlying error so errors.Is keeps working across layers.
func (e *DomainError) WithCause(err error) *DomainError {
	e.Err = err
	return e
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewInvalid wraps a domain sentinel as a validation failure.
func NewInvalid(cause error, details map[string]any) error {
	return NewDomainError(CodeValidation, cause.Error(), http.StatusBadRequest, details).WithCause(cause)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewMissing reports a NotFound whose message comes from a domain sentinel.
func NewMissing(cause error, details map[string]any) error {
	return NewDomainError(CodeNotFound, cause.Error(), http.StatusNotFound, details).WithCause(cause)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewDenied reports a permission failure carrying a domain sentinel.
func NewDenied(cause error) error {
	return NewDomainError(CodeForbidden, cause.Error(), http.StatusForbidden, nil).WithCause(cause)
}

// NewConflict reports a state conflict; cause is usually a domain sentinel.
func NewConflict(cause error, details map[string]any) error {
	return NewDomainError(CodeConflict, cause.Error(), http.StatusConflict, details).WithCause(cause)
}

// NewDeliveryFailure reports that the gateway could not reach a recipient.
func NewDeliveryFailure(recipient int64, err error) error {
	return NewDomainError(CodeDeliveryFailure, "could not deliver message", http.StatusBadGateway,
		map[string]any{"recipient_id": recipient}).WithCause(err)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given DomainError code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func MapError(err error) error {
	return ToDomainError(err)
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Is matches errors by code, so clones with overridden messages still
// compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Code == t.Code
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrRateLimited  = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests")

	// Result workflow errors.
	ErrDuplicateResult   = New("DUPLICATE_RESULT", http.StatusConflict, "a result already exists for this student, session and term")
	ErrInvalidTransition = New("INVALID_TRANSITION", http.StatusConflict, "operation not allowed in the current status")

	// PIN lifecycle errors.
	ErrDuplicatePendingRequest = New("DUPLICATE_PENDING_REQUEST", http.StatusConflict, "a pending PIN request already exists for this session and term")
	ErrSchoolNotFound          = New("SCHOOL_NOT_FOUND", http.StatusNotFound, "school not found")
	ErrStudentNotFound         = New("STUDENT_NOT_FOUND", http.StatusNotFound, "no student with this admission number")
	ErrPinNotFound             = New("PIN_NOT_FOUND", http.StatusNotFound, "PIN not found for this school, session and term")
	ErrPinExpired              = New("PIN_EXPIRED", http.StatusGone, "PIN has expired")
	ErrPinAlreadyUsed          = New("PIN_ALREADY_USED", http.StatusConflict, "PIN has already been used")
	ErrAttemptsExhausted       = New("ATTEMPTS_EXHAUSTED", http.StatusTooManyRequests, "maximum verification attempts reached for this PIN")
	ErrResultNotAvailable      = New("RESULT_NOT_AVAILABLE", http.StatusNotFound, "no approved result matches the supplied details")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of the error carrying a structured payload,
// e.g. the prior redemption recorded on an already-used PIN.
func WithDetails(err *Error, details interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}

package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so wrapped clones compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether the caller may safely retry the operation.
func (e *Error) Retryable() bool {
	return e != nil && e.Code == ErrBackendUnavailable.Code
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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrAlreadyDecided     = New("ALREADY_DECIDED", http.StatusConflict, "receipt has already been decided")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrBackendUnavailable = New("BACKEND_UNAVAILABLE", http.StatusServiceUnavailable, "service temporarily unavailable, please retry")
	ErrConfiguration      = New("CONFIGURATION_ERROR", http.StatusInternalServerError, "missing server configuration")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
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

// Postgres SQLSTATE codes for constraint violations.
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// IsConstraintViolation reports whether err is a Postgres unique or foreign
// key violation.
func IsConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == pqUniqueViolation || pqErr.Code == pqForeignKeyViolation
}

// Backend wraps an infrastructure failure as a retryable error. Missing rows
// are reported as not found and constraint violations as conflicts.
func Backend(err error, message string) *Error {
	if errors.Is(err, sql.ErrNoRows) {
		return Wrap(err, ErrNotFound.Code, ErrNotFound.Status, message+": not found")
	}
	if IsConstraintViolation(err) {
		return Wrap(err, ErrConflict.Code, ErrConflict.Status, message+": conflicts with existing data")
	}
	return Wrap(err, ErrBackendUnavailable.Code, ErrBackendUnavailable.Status, message)
}

// Package apperr defines the application error type shared by every domain
// service. Handlers never build status codes themselves; the HTTP error
// handler maps an *Error to its status and envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error kinds.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrUnavailable  = errors.New("service unavailable")
	ErrInternal     = errors.New("internal error")
)

// Error is an application error carrying a user facing message.
type Error struct {
	Err        error
	Message    string
	Code       string
	HTTPStatus int
	// Details holds per-field messages for validation failures.
	Details map[string]string
	// Data is returned in the envelope next to the error, e.g. the
	// existing record on a duplicate.
	Data any
}

func (e *Error) Error() string {
	if e.Err != nil && !isKind(e.Err) {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func isKind(err error) bool {
	switch err {
	case ErrNotFound, ErrUnauthorized, ErrForbidden, ErrBadRequest,
		ErrConflict, ErrValidation, ErrUnavailable, ErrInternal:
		return true
	}
	return false
}

// NotFound creates a 404 error.
func NotFound(message string) *Error {
	return &Error{Err: ErrNotFound, Message: message, Code: "NOT_FOUND", HTTPStatus: http.StatusNotFound}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Err: ErrUnauthorized, Message: message, Code: "UNAUTHORIZED", HTTPStatus: http.StatusUnauthorized}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *Error {
	return &Error{Err: ErrForbidden, Message: message, Code: "FORBIDDEN", HTTPStatus: http.StatusForbidden}
}

// BadRequest creates a 400 error.
func BadRequest(message string) *Error {
	return &Error{Err: ErrBadRequest, Message: message, Code: "BAD_REQUEST", HTTPStatus: http.StatusBadRequest}
}

// Validation creates a 422 error.
func Validation(message string) *Error {
	return &Error{Err: ErrValidation, Message: message, Code: "VALIDATION_ERROR", HTTPStatus: http.StatusUnprocessableEntity}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// ValidationFields creates a 422 error with per-field details.
func ValidationFields(message string, details map[string]string) *Error {
	e := Validation(message)
	e.Details = details
	return e
}

// Conflict creates a 409 error.
func Conflict(message string) *Error {
	return &Error{Err: ErrConflict, Message: message, Code: "CONFLICT", HTTPStatus: http.StatusConflict}
}

// ConflictWithData creates a 409 error that also returns data to the client.
func ConflictWithData(message string, data any) *Error {
	e := Conflict(message)
	e.Data = data
	return e
}

// Unavailable creates a 503 error.
func Unavailable(message string) *Error {
	return &Error{Err: ErrUnavailable, Message: message, Code: "UNAVAILABLE", HTTPStatus: http.StatusServiceUnavailable}
}

// Internal wraps an unexpected error. Its message is never shown to clients.
func Internal(err error) *Error {
	return &Error{Err: err, Message: "Error interno del servidor", Code: codeInternal, HTTPStatus: http.StatusInternalServerError}
}

// Wrap prefixes the message of an application error, or turns any other
// error into an internal one with the given message.
func Wrap(err error, message string) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		cp := *appErr
		cp.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return &cp
	}
	return &Error{Err: err, Message: message, Code: codeInternal, HTTPStatus: http.StatusInternalServerError}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, 500 when it is not classified.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsInternal reports whether err would be rendered as a 5xx server fault.
func IsInternal(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return true
	}
	return appErr.HTTPStatus >= 500 && appErr.HTTPStatus != http.StatusServiceUnavailable
}

const codeInternal = "INTERNAL_ERROR"

// Rollback reports a unit of work that was undone. Client errors keep their
// status behind the "Transacción revertida" prefix; any other cause becomes
// a 500 with a fixed message and is kept for logging.
func Rollback(err error) *Error {
	if appErr, ok := As(err); ok && !IsInternal(appErr) {
		return Wrap(appErr, "Transacción revertida")
	}
	return &Error{Err: err, Message: "Transacción revertida: error interno", Code: "TX_ROLLED_BACK", HTTPStatus: http.StatusInternalServerError}
}

// Redacted reports whether the message of err must be hidden from clients.
func Redacted(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return true
	}
	return appErr.Code == codeInternal
}

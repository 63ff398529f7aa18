package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies an AppError for HTTP mapping and client handling.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation_error"
	KindAuth       ErrorKind = "authentication_error"
	KindForbidden  ErrorKind = "authorization_error"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindRateLimit  ErrorKind = "rate_limit"
	KindInternal   ErrorKind = "internal_error"
)

// Domain sentinels surfaced with distinct machine-readable codes.
var (
	ErrReservationNotFound = NotFound("reservation not found")
	ErrVoucherNotFound     = NotFound("voucher not found")
	ErrVoucherUsed         = Conflict("voucher already used")
	ErrVoucherExpired      = Validation("voucher expired")
	ErrTableTaken          = Conflict("one or more selected tables are already reserved")
	ErrNoCapacity          = Validation("party size exceeds remaining capacity")
)

// AppError carries an error kind, a client-safe message and an optional
// wrapped cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to a status code.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *AppError  { return &AppError{Kind: KindValidation, Message: msg} }
func AuthError(msg string) *AppError   { return &AppError{Kind: KindAuth, Message: msg} }
func Forbidden(msg string) *AppError   { return &AppError{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *AppError    { return &AppError{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *AppError    { return &AppError{Kind: KindConflict, Message: msg} }
func RateLimited(msg string) *AppError { return &AppError{Kind: KindRateLimit, Message: msg} }

// Internal wraps an unexpected error with a client-safe message.
func Internal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// AsAppError extracts an *AppError from err, or wraps err as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

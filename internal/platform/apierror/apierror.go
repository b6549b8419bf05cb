// Package apierror defines the error body every endpoint returns and the
// echo error handler that renders it.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Code is a stable, machine-readable error identifier. Clients switch on it;
// the human message may change freely.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeConflict           Code = "CONFLICT"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeNotFound           Code = "NOT_FOUND"
	CodeSlotUnavailable    Code = "SLOT_UNAVAILABLE"
	CodeOrderFailed        Code = "ORDER_FAILED"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodePayloadTooLarge    Code = "PAYLOAD_TOO_LARGE"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeTimeout            Code = "TIMEOUT"
	CodeMethodNotAllowed   Code = "METHOD_NOT_ALLOWED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is returned from handlers and middleware. Cause is logged but never
// serialized.
type Error struct {
	Status  int
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Body is the JSON shape of every error response.
type Body struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func New(status int, code Code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg}
}

func Validation(msg string) *Error {
	return New(http.StatusBadRequest, CodeValidation, msg)
}

func Validationf(format string, args ...interface{}) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func Conflict(msg string) *Error {
	return New(http.StatusBadRequest, CodeConflict, msg)
}

func InvalidCredentials() *Error {
	return New(http.StatusBadRequest, CodeInvalidCredentials, "invalid credentials")
}

func Unauthorized(msg string) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, msg)
}

func Forbidden(msg string) *Error {
	return New(http.StatusForbidden, CodeForbidden, msg)
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, what+" not found")
}

func SlotUnavailable() *Error {
	return New(http.StatusConflict, CodeSlotUnavailable, "the requested slot is already booked")
}

func InvalidTransition(from, to string) *Error {
	return New(http.StatusConflict, CodeInvalidTransition,
		fmt.Sprintf("cannot change status from %s to %s", from, to))
}

// OrderFailed reports an order that could not be placed. Business failures
// such as insufficient stock use 422.
func OrderFailed(msg string) *Error {
	return New(http.StatusUnprocessableEntity, CodeOrderFailed, msg)
}

// Internal wraps an unexpected failure. The message sent to the client is
// generic; cause is only logged.
func Internal(msg string, cause error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: msg, Cause: cause}
}

// Handler returns an echo.HTTPErrorHandler that renders every error as Body.
// Failed requests, including their causes, are logged by the request logger
// middleware; logger here only records failures to write the response.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		apiErr := From(err)
		rid, _ := c.Get("request_id").(string)

		body := Body{Code: apiErr.Code, Message: apiErr.Message, RequestID: rid}
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(apiErr.Status)
		} else {
			writeErr = c.JSON(apiErr.Status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Str("request_id", rid).Msg("write error response")
		}
	}
}

// From converts any error into an *Error. echo.HTTPError values produced by
// the router and binder keep their status.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return &Error{Status: he.Code, Code: codeForStatus(he.Code), Message: msg, Cause: he.Internal}
	}

	return Internal("internal server error", err)
}

func codeForStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestEntityTooLarge:
		return CodePayloadTooLarge
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusGatewayTimeout, http.StatusServiceUnavailable:
		return CodeTimeout
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return CodeValidation
}

// Bind converts an echo binder failure. Oversized bodies keep their 413;
// anything else is reported as malformed JSON.
func Bind(err error) *Error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return New(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
	}
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: "invalid JSON body", Cause: err}
}

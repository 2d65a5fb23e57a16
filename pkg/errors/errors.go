// Package errors defines the sentinel errors shared by the HTTP handlers and
// the recorder, and maps them onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrChatNotFound       = errors.New("chat not found")
	ErrFeedbackAlreadySet = errors.New("feedback already recorded")
	ErrDuplicateEvent     = errors.New("duplicate event")
	ErrUnavailable        = errors.New("temporarily unavailable")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

// AppError pairs a sentinel with a client-facing message. StatusCode, when
// non-zero, overrides the sentinel's default status.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Permanent reports whether retrying the operation that produced err
// cannot succeed.
func Permanent(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrChatNotFound) ||
		errors.Is(err, ErrFeedbackAlreadySet) ||
		errors.Is(err, ErrDuplicateEvent)
}

// HTTPStatusCode maps err to a response status. Unknown errors are 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrFeedbackAlreadySet), errors.Is(err, ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Render returns the status and client-facing message for err. Only an
// AppError's Message is exposed; anything else gets the generic text of its
// status so internal detail does not leak.
func Render(err error) (int, string) {
	status := HTTPStatusCode(err)
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return status, appErr.Message
	}
	return status, http.StatusText(status)
}

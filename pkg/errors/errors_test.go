package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInternal, http.StatusTeapot, "x"), http.StatusTeapot},
		{"app error without status uses sentinel", New(ErrUnavailable, 0, "queue full"), http.StatusServiceUnavailable},
		{"wrapped not found", fmt.Errorf("recording: %w", ErrChatNotFound), http.StatusNotFound},
		{"already set", ErrFeedbackAlreadySet, http.StatusConflict},
		{"duplicate", ErrDuplicateEvent, http.StatusConflict},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"method", ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", fmt.Errorf("write search: %w", ErrTimeout), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestRender(t *testing.T) {
	status, msg := Render(New(ErrInvalidInput, 0, "invalid JSON body"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid JSON body", msg)

	status, msg = Render(fmt.Errorf("pq: password authentication failed: %w", ErrInternal))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal Server Error", msg, "raw causes are not exposed")
}

func TestAppErrorUnwrap(t *testing.T) {
	err := New(ErrInvalidInput, http.StatusBadRequest, `bad label "meh"`)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, `invalid input: bad label "meh"`, err.Error())
}

func TestPermanent(t *testing.T) {
	assert.True(t, Permanent(fmt.Errorf("x: %w", ErrFeedbackAlreadySet)))
	assert.True(t, Permanent(ErrChatNotFound))
	assert.True(t, Permanent(ErrDuplicateEvent))
	assert.False(t, Permanent(fmt.Errorf("x: %w", ErrTimeout)))
	assert.False(t, Permanent(errors.New("connection reset")))
}

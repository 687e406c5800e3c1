package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

type recordingLogger struct {
	warns  []string
	errors []string
	fields []map[string]interface{}
}

func (r *recordingLogger) Warn(msg string, fields map[string]interface{}) {
	r.warns = append(r.warns, msg)
	r.fields = append(r.fields, fields)
}

func (r *recordingLogger) Error(msg string, fields map[string]interface{}) {
	r.errors = append(r.errors, msg)
	r.fields = append(r.fields, fields)
}

// ==========================
// StandardError Tests
// ==========================

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("advance: %w", NewFormIncompleteError([]string{"name"}))

	assert.True(t, stderrors.Is(err, ErrFormIncomplete))
	assert.False(t, stderrors.Is(err, ErrRelayRejected))
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewRelayRequestFailedError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, NoticeSubmissionFailed, err.Message)
	assert.True(t, err.Retryable)
}

func TestNewFormIncompleteError(t *testing.T) {
	err := NewFormIncompleteError([]string{"gmail", "role"})

	assert.Equal(t, ErrCodeFormIncomplete, err.Code)
	assert.Equal(t, "Please fill Name, Gmail, Phone and pick a Role before continuing.", err.Message)
	assert.Equal(t, "missing: gmail, role", err.Details)
}

func TestNewRelayRejectedError_Retryable(t *testing.T) {
	assert.True(t, NewRelayRejectedError(503, "").Retryable)
	assert.False(t, NewRelayRejectedError(400, "bad").Retryable)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeFormIncomplete, http.StatusUnprocessableEntity},
		{ErrCodeInvalidRole, http.StatusUnprocessableEntity},
		{ErrCodeSubmissionInFlight, http.StatusConflict},
		{ErrCodeInvalidTransition, http.StatusConflict},
		{ErrCodeRelayRejected, http.StatusBadGateway},
		{ErrCodeSessionNotFound, http.StatusNotFound},
		{ErrCodeSessionStoreFailed, http.StatusServiceUnavailable},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SUBMISSION", GetErrorCategory(ErrCodeRelayRejected))
	assert.Equal(t, "SUBMISSION", GetErrorCategory(ErrCodePayloadInvalid))
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionStoreFailed))
	assert.Equal(t, "WIZARD", GetErrorCategory(ErrCodeFormIncomplete))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

// ==========================
// ErrorHandler Tests
// ==========================

func TestErrorHandler_NormalizesPlainErrors(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	stdErr, status := h.Handle("submit", stderrors.New("kaboom"))

	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "kaboom", stdErr.Details)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Len(t, log.errors, 1)
}

func TestErrorHandler_WizardErrorsLoggedAsWarnings(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	stdErr, status := h.Handle("advance", NewFormIncompleteError([]string{"phone"}))

	assert.Equal(t, ErrCodeFormIncomplete, stdErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Len(t, log.warns, 1)
	assert.Empty(t, log.errors)
	assert.Equal(t, "advance", log.fields[0]["operation"])
}

func TestErrorHandler_NilLogger(t *testing.T) {
	h := NewErrorHandler(nil)
	assert.NotPanics(t, func() {
		h.Handle("submit", NewRelayRejectedError(500, "oops"))
	})
}

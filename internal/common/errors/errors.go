// Package errors provides the standardized error model used by the wizard,
// the relay client and the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFormIncomplete     ErrorCode = "FORM_INCOMPLETE"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeSubmissionInFlight ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeFieldUnknown       ErrorCode = "FIELD_UNKNOWN"
	ErrCodeInvalidRole        ErrorCode = "INVALID_ROLE"
	ErrCodeFormLocked         ErrorCode = "FORM_LOCKED"

	ErrCodeRelayRequestFailed ErrorCode = "RELAY_REQUEST_FAILED"
	ErrCodeRelayRejected      ErrorCode = "RELAY_REJECTED"
	ErrCodePayloadInvalid     ErrorCode = "PAYLOAD_INVALID"

	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// User-facing notices. These are shown verbatim in the blocking notice.
const (
	NoticeFormIncomplete   = "Please fill Name, Gmail, Phone and pick a Role before continuing."
	NoticeSubmissionFailed = "There was an error submitting your application. Please try again."
	NoticeSubmitInFlight   = "Your application is already being submitted."
)

// StandardError represents a structured application error. Message is safe
// to show to the applicant; Details is for operators.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches another *StandardError by code, so callers can compare against
// the sentinel values below with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrFormIncomplete     = &StandardError{Code: ErrCodeFormIncomplete}
	ErrInvalidTransition  = &StandardError{Code: ErrCodeInvalidTransition}
	ErrSubmissionInFlight = &StandardError{Code: ErrCodeSubmissionInFlight}
	ErrFieldUnknown       = &StandardError{Code: ErrCodeFieldUnknown}
	ErrInvalidRole        = &StandardError{Code: ErrCodeInvalidRole}
	ErrFormLocked         = &StandardError{Code: ErrCodeFormLocked}
	ErrRelayRequestFailed = &StandardError{Code: ErrCodeRelayRequestFailed}
	ErrRelayRejected      = &StandardError{Code: ErrCodeRelayRejected}
	ErrPayloadInvalid     = &StandardError{Code: ErrCodePayloadInvalid}
	ErrSessionNotFound    = &StandardError{Code: ErrCodeSessionNotFound}
	ErrSessionStoreFailed = &StandardError{Code: ErrCodeSessionStoreFailed}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewFormIncompleteError reports the Main -> RoleDetails guard failing.
func NewFormIncompleteError(missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFormIncomplete,
		Message:   NoticeFormIncomplete,
		Details:   fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"missing": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports an operation attempted from the wrong step.
func NewInvalidTransitionError(operation string, step int) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "This action is not available at the current step.",
		Details:   fmt.Sprintf("operation: %s, step: %d", operation, step),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSubmissionInFlightError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionInFlight,
		Message:   NoticeSubmitInFlight,
		Details:   "a submission for this session has not resolved yet",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewFieldUnknownError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFieldUnknown,
		Message:   "Unknown form field.",
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRoleError(role string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRole,
		Message:   "Please pick one of the listed roles.",
		Details:   fmt.Sprintf("role: %q", role),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewFormLockedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeFormLocked,
		Message:   "Your application has already been submitted.",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRelayRequestFailedError wraps a transport-level failure talking to the relay.
func NewRelayRequestFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRelayRequestFailed,
		Message:   NoticeSubmissionFailed,
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRelayRejectedError reports a non-2xx relay response.
func NewRelayRejectedError(status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRelayRejected,
		Message:   NoticeSubmissionFailed,
		Details:   fmt.Sprintf("status: %d, body: %s", status, body),
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

func NewPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   NoticeSubmissionFailed,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Your session has expired. Please start again.",
		Details:   fmt.Sprintf("sessionId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionStoreFailedError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Something went wrong. Please try again.",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError unwraps err to a *StandardError, if there is one in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HTTPStatus maps an error code to the status the web layer answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeFormIncomplete, ErrCodeFieldUnknown, ErrCodeInvalidRole:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidTransition, ErrCodeSubmissionInFlight, ErrCodeFormLocked:
		return http.StatusConflict
	case ErrCodeRelayRequestFailed, ErrCodeRelayRejected:
		return http.StatusBadGateway
	case ErrCodeSessionNotFound:
		return http.StatusNotFound
	case ErrCodeSessionStoreFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "RELAY") || strings.HasPrefix(codeStr, "PAYLOAD"):
		return "SUBMISSION"
	case strings.HasPrefix(codeStr, "SESSION"):
		return "SESSION"
	case code == ErrCodeInternal:
		return "OTHER"
	default:
		return "WIZARD"
	}
}

package errors

import (
	"time"
)

// ErrorHandler normalizes errors raised while serving a wizard request and
// logs them once.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle normalizes err, logs it and returns the HTTP status to answer with.
func (h *ErrorHandler) Handle(operation string, err error) (*StandardError, int) {
	stdErr := h.normalizeError(err)
	h.logError(operation, stdErr)
	return stdErr, HTTPStatus(stdErr.Code)
}

// normalizeError ensures we always have a StandardError.
func (h *ErrorHandler) normalizeError(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong. Please try again.",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(operation string, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"operation": operation,
		"errorCode": string(stdErr.Code),
		"category":  GetErrorCategory(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	}
	// Wizard errors are applicant mistakes; only infrastructure failures are
	// logged at error level.
	if GetErrorCategory(stdErr.Code) == "WIZARD" {
		h.logger.Warn("wizard request rejected", fields)
		return
	}
	h.logger.Error("wizard request failed", fields)
}

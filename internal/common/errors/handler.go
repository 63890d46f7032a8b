package errors

import (
	"github.com/google/uuid"
)

// Logger is the subset of logging the handler needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler normalizes errors and logs server-side faults under a fresh
// correlation id so user-facing responses never carry internal error text.
type ErrorHandler struct {
	logger Logger
	newID  func() string
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Handled is a normalized error plus the correlation id assigned to it.
type Handled struct {
	Err     *StandardError
	ErrorID string
}

// Handle normalizes err. Client errors are logged at warn without an id;
// everything else receives a correlation id and is logged at error.
func (h *ErrorHandler) Handle(operation string, err error) Handled {
	stdErr := Normalize(err)

	if GetErrorCategory(stdErr.Code) == "CLIENT_ERROR" && stdErr.Code != ErrCodeProviderNotConfigured {
		h.logger.Warn("request rejected", map[string]interface{}{
			"operation": operation,
			"code":      string(stdErr.Code),
			"message":   stdErr.Message,
		})
		return Handled{Err: stdErr}
	}

	errorID := h.newID()
	h.logger.Error("request failed", map[string]interface{}{
		"operation": operation,
		"errorId":   errorID,
		"code":      string(stdErr.Code),
		"category":  GetErrorCategory(stdErr.Code),
		"details":   stdErr.Details,
		"error":     err.Error(),
	})
	return Handled{Err: stdErr, ErrorID: errorID}
}

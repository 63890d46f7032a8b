// Package errors provides the service-wide error taxonomy.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidRequest             ErrorCode = "INVALID_REQUEST"
	ErrCodeInvalidIdentity            ErrorCode = "INVALID_IDENTITY"
	ErrCodeUnknownSession             ErrorCode = "UNKNOWN_SESSION"
	ErrCodeProviderNotConfigured      ErrorCode = "PROVIDER_NOT_CONFIGURED"
	ErrCodeProviderRateLimited        ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrCodeProviderUnavailable        ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeSchemaReconciliationFailed ErrorCode = "SCHEMA_RECONCILIATION_FAILED"
	ErrCodeInternal                   ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	RetryAfter int                    `json:"retryAfter,omitempty"` // seconds, 0 = unknown
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error for errors.Is/As traversal.
func (e *StandardError) WithCause(err error) *StandardError {
	e.cause = err
	return e
}

// NewInvalidIdentityError is returned for malformed, free-provider or missing identities.
func NewInvalidIdentityError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidIdentity,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownSessionError is returned when a session is absent or expired.
func NewUnknownSessionError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownSession,
		Message:   "Unknown/expired session. Please bootstrap again.",
		Retryable: false,
		Metadata:  map[string]interface{}{"sessionId": sessionID},
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderNotConfiguredError is returned when no LLM credentials are set.
func NewProviderNotConfiguredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderNotConfigured,
		Message:   "LLM provider is not configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderRateLimitedError carries the parsed retry delay, 0 when unknown.
func NewProviderRateLimitedError(retryAfter int, details string) *StandardError {
	return &StandardError{
		Code:       ErrCodeProviderRateLimited,
		Message:    "LLM provider rate limit reached",
		Details:    details,
		Retryable:  true,
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC(),
	}
}

// NewProviderUnavailableError is returned for overloaded or unreachable providers.
func NewProviderUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnavailable,
		Message:   "LLM provider temporarily unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaReconciliationError is returned when the model output could not be
// coerced into the dossier schema after both repair attempts.
func NewSchemaReconciliationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchemaReconciliationFailed,
		Message:   "Model output did not match the required schema",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unclassified fault.
func NewInternalError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return (&StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

// Standarder is implemented by typed errors that know their StandardError form.
type Standarder interface {
	Standard() *StandardError
}

// Normalize returns the StandardError form of any error.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	var s Standarder
	if errors.As(err, &s) {
		return s.Standard()
	}
	return NewInternalError(err)
}

// HasCode reports whether err normalizes to the given code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return Normalize(err).Code == code
}

// IsRetryable reports whether the caller may retry after a pause.
func IsRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeProviderRateLimited, ErrCodeProviderUnavailable:
		return true
	default:
		return false
	}
}

// GetErrorCategory groups codes for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeInvalidIdentity, ErrCodeUnknownSession, ErrCodeProviderNotConfigured:
		return "CLIENT_ERROR"
	case ErrCodeProviderRateLimited, ErrCodeProviderUnavailable:
		return "PROVIDER_ERROR"
	case ErrCodeSchemaReconciliationFailed:
		return "MODEL_OUTPUT_ERROR"
	default:
		return "SYSTEM_ERROR"
	}
}

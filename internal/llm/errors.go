package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "meeting-intel/internal/common/errors"
)

var (
	ErrNotConfigured = errors.New("LLM_NOT_CONFIGURED")
	ErrLLMTimeout    = errors.New("LLM_TIMEOUT")
	ErrGatewayFailed = errors.New("LLM_GATEWAY_FAILED")
	ErrCircuitOpen   = errors.New("LLM_CIRCUIT_OPEN")
)

// Kind classifies provider faults.
type Kind string

const (
	KindRateLimited   Kind = "rate_limited"
	KindUnavailable   Kind = "unavailable"
	KindNotConfigured Kind = "not_configured"
	KindOther         Kind = "other"
)

// ProviderError is the typed form of every provider fault. RetryAfter is
// in seconds, 0 when the provider gave no usable hint.
type ProviderError struct {
	Kind       Kind
	RetryAfter int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm %s (retry after %ds): %v", e.Kind, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Standard maps the fault onto the service error taxonomy.
func (e *ProviderError) Standard() *apperrors.StandardError {
	details := ""
	if e.Err != nil {
		details = e.Err.Error()
	}
	switch e.Kind {
	case KindRateLimited:
		return apperrors.NewProviderRateLimitedError(e.RetryAfter, details).WithCause(e)
	case KindUnavailable:
		return apperrors.NewProviderUnavailableError(details).WithCause(e)
	case KindNotConfigured:
		return apperrors.NewProviderNotConfiguredError(details).WithCause(e)
	default:
		return apperrors.NewInternalError(e)
	}
}

var (
	retryInRe    = regexp.MustCompile(`(?i)retry in\s+([0-9]+(?:\.[0-9]+)?)s`)
	retryDelayRe = regexp.MustCompile(`retryDelay['"]?\s*[:=]\s*['"]([0-9]+)s['"]`)
)

// Classify wraps err in a ProviderError based on its text. An existing
// ProviderError is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	text := err.Error()
	switch {
	case isRateLimitText(text):
		return &ProviderError{Kind: KindRateLimited, RetryAfter: ParseRetryAfter(text), Err: err}
	case isUnavailableText(text):
		return &ProviderError{Kind: KindUnavailable, Err: err}
	default:
		return &ProviderError{Kind: KindOther, Err: err}
	}
}

func isRateLimitText(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(text, "RESOURCE_EXHAUSTED") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(text, "429")
}

func isUnavailableText(text string) bool {
	return strings.Contains(text, "UNAVAILABLE") ||
		strings.Contains(text, "503") ||
		strings.Contains(strings.ToLower(text), "overloaded")
}

// ParseRetryAfter extracts a delay in whole seconds from provider error
// text, or 0 when neither known shape is present.
func ParseRetryAfter(text string) int {
	if m := retryInRe.FindStringSubmatch(text); m != nil {
		if secs, err := strconv.ParseFloat(m[1], 64); err == nil {
			return atLeastOne(int(secs))
		}
	}
	if m := retryDelayRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return atLeastOne(n)
		}
	}
	return 0
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Package llm hides the text-generation backend behind Provider. Provider
// faults are classified once here, at the call boundary.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"meeting-intel/internal/common/config"
)

// Request is one generation call. System is sent as a separate
// instruction so repair calls can reuse it unchanged.
type Request struct {
	System  string
	Prompt  string
	JSON    bool
	Purpose string
}

// Provider returns the raw model text for a request. Errors are
// *ProviderError values.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Doer is the outbound HTTP client used by the gateway provider.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New builds the configured provider behind a circuit breaker. A missing
// Gemini key yields a provider whose every call fails as not configured.
func New(ctx context.Context, cfg config.LLMConfig, client Doer, log Logger) (Provider, error) {
	var (
		inner Provider
		err   error
	)
	switch cfg.Provider {
	case "gateway":
		inner = NewGateway(cfg, client, log)
	case "gemini", "":
		if cfg.APIKey == "" {
			log.Warn("LLM provider not configured", map[string]interface{}{"provider": "gemini"})
			return NewUnconfigured("GEMINI_API_KEY is not set"), nil
		}
		inner, err = NewGemini(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	return NewBreaker(inner, BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: config.GetDuration(cfg.Breaker.OpenTimeout),
	}, log), nil
}

// Unconfigured fails every call with KindNotConfigured.
type Unconfigured struct {
	reason string
}

func NewUnconfigured(reason string) *Unconfigured {
	return &Unconfigured{reason: reason}
}

func (u *Unconfigured) Generate(context.Context, Request) (string, error) {
	return "", &ProviderError{Kind: KindNotConfigured, Err: fmt.Errorf("%w: %s", ErrNotConfigured, u.reason)}
}

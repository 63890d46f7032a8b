package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures Breaker.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Breaker stops calling a failing provider for OpenTimeout after
// MaxFailures consecutive faults. Rejected calls fail as unavailable.
// Rate limits and missing credentials never trip the circuit, so callers
// keep seeing the provider's retry delay.
type Breaker struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
	logger  Logger
}

func NewBreaker(inner Provider, settings BreakerSettings, log Logger) *Breaker {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	b := &Breaker{inner: inner, logger: log.With(map[string]interface{}{"component": "llm-breaker"})}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			var pe *ProviderError
			if errors.As(err, &pe) {
				return pe.Kind == KindNotConfigured || pe.Kind == KindRateLimited
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
	return b
}

func (b *Breaker) Generate(ctx context.Context, req Request) (string, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &ProviderError{Kind: KindUnavailable, Err: ErrCircuitOpen}
		}
		return "", Classify(err)
	}
	return out.(string), nil
}

// State reports the circuit state for readiness checks.
func (b *Breaker) State() string {
	return b.breaker.State().String()
}

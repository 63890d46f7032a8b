package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meeting-intel/internal/common/config"
)

// GatewayProvider posts prompts to a self-hosted generation gateway at
// {base}/api/ai/generate. Transport errors and 5xx responses are retried
// with exponential backoff; 429 is returned immediately.
type GatewayProvider struct {
	baseURL     string
	client      Doer
	timeout     time.Duration
	maxRetries  int
	maxTokens   int
	temperature float64
	logger      Logger
}

func NewGateway(cfg config.LLMConfig, client Doer, log Logger) *GatewayProvider {
	return &GatewayProvider{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		client:      client,
		timeout:     config.GetDuration(cfg.Timeout),
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      log.With(map[string]interface{}{"component": "llm-gateway"}),
	}
}

type gatewayRequest struct {
	Prompt         string  `json:"prompt"`
	System         string  `json:"system,omitempty"`
	ResponseFormat string  `json:"response_format,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
}

type gatewayResponse struct {
	Text string `json:"text"`
}

// statusError carries a non-2xx gateway answer into Classify.
type statusError struct {
	status     int
	body       string
	retryAfter string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func (g *GatewayProvider) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	payload := gatewayRequest{
		Prompt:      req.Prompt,
		System:      req.System,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}
	if req.JSON {
		payload.ResponseFormat = "json"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Kind: KindOther, Err: fmt.Errorf("%w: %v", ErrGatewayFailed, err)}
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &ProviderError{Kind: KindOther, Err: ErrLLMTimeout}
			}
		}

		text, err := g.once(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.status < 500 {
			break
		}
		if ctx.Err() != nil {
			return "", &ProviderError{Kind: KindOther, Err: ErrLLMTimeout}
		}
	}

	g.logger.Warn("gateway generate failed", map[string]interface{}{
		"purpose": req.Purpose,
		"error":   lastErr.Error(),
	})
	return "", g.classify(lastErr)
}

func (g *GatewayProvider) once(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/ai/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &statusError{
			status:     resp.StatusCode,
			body:       strings.TrimSpace(string(snippet)),
			retryAfter: resp.Header.Get("Retry-After"),
		}
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrGatewayFailed, err)
	}
	return out.Text, nil
}

func (g *GatewayProvider) classify(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.status == http.StatusTooManyRequests:
			retry := ParseRetryAfter(se.body)
			if n, convErr := strconv.Atoi(se.retryAfter); convErr == nil && n > 0 {
				retry = n
			}
			return &ProviderError{Kind: KindRateLimited, RetryAfter: retry, Err: err}
		case se.status == http.StatusServiceUnavailable:
			return &ProviderError{Kind: KindUnavailable, Err: err}
		}
	}
	return Classify(err)
}

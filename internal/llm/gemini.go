package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"meeting-intel/internal/common/config"
)

// GeminiProvider calls the Gemini API through the genai SDK.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	maxTokens   int32
	temperature *float32
	logger      Logger
}

// NewGemini creates the SDK client. BaseURL overrides the API endpoint.
func NewGemini(ctx context.Context, cfg config.LLMConfig, log Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNotConfigured)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	p := &GeminiProvider{
		client:    client,
		model:     cfg.Model,
		timeout:   config.GetDuration(cfg.Timeout),
		maxTokens: int32(cfg.MaxTokens),
		logger:    log.With(map[string]interface{}{"component": "gemini"}),
	}
	if cfg.Temperature > 0 {
		p.temperature = genai.Ptr(float32(cfg.Temperature))
	}
	return p, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     p.temperature,
		MaxOutputTokens: p.maxTokens,
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		classified := Classify(err)
		p.logger.Warn("generate content failed", map[string]interface{}{
			"purpose":  req.Purpose,
			"duration": time.Since(start).Milliseconds(),
			"error":    classified.Error(),
		})
		return "", classified
	}

	text := resp.Text()
	p.logger.Info("generate content completed", map[string]interface{}{
		"purpose":  req.Purpose,
		"duration": time.Since(start).Milliseconds(),
		"chars":    len(text),
	})
	return text, nil
}

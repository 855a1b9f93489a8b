// Package enrichment adapts semantic image-description backends to a single
// Analyze call returning model.EnrichmentResponse.
package enrichment

import (
	"context"
	"fmt"
	"strings"

	"objectlens/internal/config"
	"objectlens/internal/logger"
	"objectlens/internal/model"
)

type Client interface {
	Analyze(ctx context.Context, image []byte, candidateLabels []string) (*model.EnrichmentResponse, error)
	Close() error
}

// Describer sends one JPEG plus a prompt to a multimodal model and returns its text reply.
type Describer interface {
	Describe(ctx context.Context, image []byte, prompt string) (string, error)
}

// LLMClient turns a Describer into an enrichment client.
type LLMClient struct {
	name      string
	describer Describer
	closer    func() error
	logger    *logger.Logger
}

func NewLLMClient(name string, describer Describer, log *logger.Logger) *LLMClient {
	return &LLMClient{
		name:      name,
		describer: describer,
		logger:    log.WithFields(logger.Fields{"component": "enrichment", "provider": name}),
	}
}

func (c *LLMClient) Analyze(ctx context.Context, image []byte, candidateLabels []string) (*model.EnrichmentResponse, error) {
	text, err := c.describer.Describe(ctx, image, BuildPrompt(candidateLabels))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", model.ErrNetwork, c.name, err)
	}

	resp, err := ParseResponse(text)
	if err != nil {
		c.logger.Debug("unparseable reply: %.200s", text)
		return nil, err
	}
	return resp, nil
}

func (c *LLMClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// NewClient builds the enrichment client selected by cfg.EnrichmentProvider. It
// returns nil for "none".
func NewClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (Client, error) {
	provider := strings.ToLower(cfg.EnrichmentProvider)

	switch provider {
	case "", "none":
		return nil, nil

	case "http":
		return NewHTTPClient(cfg.EnrichmentURL, nil, log), nil

	case "gemini":
		d, err := NewGeminiDescriber(ctx, cfg.EnrichmentAPIKey, cfg.EnrichmentModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		c := NewLLMClient(provider, d, log)
		c.closer = d.Close
		return c, nil

	case "openai":
		return NewLLMClient(provider, NewOpenAIDescriber(cfg.EnrichmentAPIKey, cfg.EnrichmentModel, cfg.EnrichmentBaseURL), log), nil

	case "claude":
		return NewLLMClient(provider, NewClaudeDescriber(cfg.EnrichmentAPIKey, cfg.EnrichmentModel, cfg.EnrichmentBaseURL), log), nil

	default:
		return nil, fmt.Errorf("unsupported enrichment provider: %s", provider)
	}
}

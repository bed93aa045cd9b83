package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient provides access to the Anthropic Messages API.
// Anthropic has no embedding API, so embedding requests are delegated to
// an OpenAI-compatible embedder.
type AnthropicClient struct {
	client   *anthropic.Client
	embedder *OpenAIClient
	model    string
	logger   *zap.Logger
}

// NewAnthropicClient creates a new Anthropic client. The embedder may be
// nil when the deployment never computes embeddings.
func NewAnthropicClient(cfg *Config, embedder *OpenAIClient, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &AnthropicClient{
		client:   anthropic.NewClient(cfg.AnthropicAPIKey),
		embedder: embedder,
		model:    cfg.Model,
		logger:   logger.Named("llm"),
	}, nil
}

// GenerateResponse generates a chat completion via the Messages API.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	c.logger.Debug("provider request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Float64("temperature", temperature))

	start := time.Now()
	temp := float32(temperature)

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   4096,
		System:      systemMessage,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: anthropic.MessagesContentTypeText, Text: &prompt},
			}},
		},
	})
	if err != nil {
		c.logger.Error("provider request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	var text string
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			text += *content.Text
		}
	}
	if text == "" {
		return "", NewError(ErrorTypeUnknown, "no text content in response", false, nil)
	}

	c.logger.Info("provider request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return text, nil
}

// CreateEmbedding delegates to the OpenAI-compatible embedder.
func (c *AnthropicClient) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	if c.embedder == nil {
		return nil, NewError(ErrorTypeModel, "no embedding endpoint configured for anthropic provider", false, nil)
	}
	return c.embedder.CreateEmbedding(ctx, input, model)
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the API endpoint identifier.
func (c *AnthropicClient) GetEndpoint() string {
	return "https://api.anthropic.com"
}

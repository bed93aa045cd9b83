package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClient creates a provider client for the configured provider.
// The anthropic provider still gets an OpenAI-compatible embedder because
// embeddings have no Anthropic equivalent.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, logger)
	case "anthropic":
		var embedder *OpenAIClient
		if cfg.EmbeddingEndpoint != "" {
			embedderCfg := &Config{
				Endpoint: cfg.EmbeddingEndpoint,
				Model:    cfg.Model,
				APIKey:   cfg.APIKey,
			}
			var err error
			embedder, err = NewOpenAIClient(embedderCfg, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create embedder: %w", err)
			}
		}
		return NewAnthropicClient(cfg, embedder, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

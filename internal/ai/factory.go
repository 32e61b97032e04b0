package ai

import (
	"context"
	"fmt"

	"github.com/revisify/backend/internal/config"
	"github.com/revisify/backend/internal/logger"
)

// NewTextClient builds the configured text generation client. The provider
// name and model come from config; API keys come from the environment.
func NewTextClient(ctx context.Context, cfg *config.Config, log *logger.Logger) (TextClient, error) {
	switch cfg.LLMProvider {
	case "openai":
		model := cfg.LLMModel
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAIClient(model, cfg.EmbedModel, cfg.EmbeddingDim, log)
	case "anthropic":
		model := cfg.LLMModel
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropicClient(model, log)
	case "gemini":
		model := cfg.LLMModel
		if model == "" {
			model = "gemini-2.0-flash"
		}
		return NewGeminiClient(ctx, model, log)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.LLMProvider)
	}
}

// NewEmbedder builds the embedding client. Embeddings are served by the
// OpenAI API regardless of which provider handles text generation; callers
// treat an error here as "run without embeddings" rather than fatal.
func NewEmbedder(cfg *config.Config, log *logger.Logger) (Embedder, error) {
	return NewOpenAIClient("", cfg.EmbedModel, cfg.EmbeddingDim, log)
}

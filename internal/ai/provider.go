package ai

import (
	"context"
)

// CompletionRequest is a single-turn text generation request. System sets the
// role and constraints, User carries the task and any inlined context.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// TextClient is the provider-neutral text generation surface. Implementations
// exist for OpenAI, Anthropic and Gemini; the factory picks one from config.
type TextClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	Dimension() int
}

package adapter

import (
	"context"
)

// LLM is a chat-completion backend. One call is one synchronous round trip with a single user message.
type LLM interface {
	// Generate sends prompt as a user message to model and returns the reply text
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Embedder turns texts into fixed-dimension vectors, one row per input text
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

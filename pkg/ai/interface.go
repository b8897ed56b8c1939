package ai

import "context"

// Embedder produces fixed-length vector representations of text for
// semantic retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Classifier assigns category labels from a fixed vocabulary to an email.
// Implementations return only labels from the allowed set; anything else is
// dropped by the caller.
type Classifier interface {
	ClassifyEmail(ctx context.Context, subject, body string, categories []string) ([]string, error)
}

// ProviderType selects the AI provider backing both contracts.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
)

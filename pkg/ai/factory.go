package ai

import "fmt"

// Config holds AI provider configuration.
type Config struct {
	Provider ProviderType

	GeminiAPIKey string

	OllamaBaseURL string
	OllamaModel   string
}

// Provider bundles the embedding and classification contracts of one
// backing service.
type Provider interface {
	Embedder
	Classifier
}

// NewProvider creates a Provider based on the config. A nil Provider (with
// nil error) means no provider is configured: callers degrade to
// heuristic-only classification and keyword-only search.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

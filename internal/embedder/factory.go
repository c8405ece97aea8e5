package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds provider selection configuration
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	Dimension         int // local provider only
	RequestsPerSecond float64
}

// New creates a provider with explicit configuration
func New(cfg Config) (Provider, error) {
	opts := Options{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv(EnvJinaAPIKey)
		}
		return NewJinaProvider(opts)
	case ProviderOpenAI:
		if opts.APIKey == "" {
			opts.APIKey = os.Getenv(EnvOpenAIAPIKey)
		}
		return NewOpenAIProvider(opts)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates a provider based on environment variables.
// Priority:
//  1. DOCDEX_EMBEDDING_PROVIDER (jina, openai, local)
//  2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
//  3. Default to local if no API keys found
func NewFromEnv() (Provider, error) {
	provider := DetectProvider()
	return New(Config{Provider: provider})
}

// DetectProvider returns the provider that would be used based on the
// current environment.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}

package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/task-hierarchy-api/internal/config"
)

// ErrMissingAPIKey means the selected provider has no credentials configured.
var ErrMissingAPIKey = errors.New("LLM API key is not configured")

// NewBackend builds the backend selected by LLM_PROVIDER.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	apiKey := cfg.LLMAPIKey()
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewOpenAIBackend(apiKey, cfg.LLMModel), nil
	case config.LLMProviderMistral:
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewMistralBackend(apiKey, cfg.LLMModel), nil
	case config.LLMProviderAnthropic, config.LLMProviderAnthropicBedrock:
		return NewAnthropicBackend(ctx, AnthropicConfig{
			APIKey:     apiKey,
			Model:      cfg.LLMModel,
			UseBedrock: cfg.LLMProvider == config.LLMProviderAnthropicBedrock,
			AWSRegion:  cfg.AWSRegion,
			AWSProfile: cfg.AWSProfile,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}

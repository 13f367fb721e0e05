package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	// MistralBaseURL is Mistral's OpenAI-compatible endpoint
	MistralBaseURL      = "https://api.mistral.ai/v1"
	DefaultMistralModel = "mistral-large-latest"
)

// OpenAIBackend talks to any OpenAI-compatible chat completion API.
type OpenAIBackend struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a backend for the OpenAI API
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4o
	}
	return NewOpenAICompatibleBackend("openai", openai.DefaultConfig(apiKey), model)
}

// NewMistralBackend creates a backend for Mistral through its OpenAI-compatible API
func NewMistralBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = DefaultMistralModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = MistralBaseURL
	return NewOpenAICompatibleBackend("mistral", cfg, model)
}

// NewOpenAICompatibleBackend creates a backend from an explicit client configuration
func NewOpenAICompatibleBackend(name string, cfg openai.ClientConfig, model string) *OpenAIBackend {
	return &OpenAIBackend{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (b *OpenAIBackend) Name() string {
	return b.name
}

// Complete sends the prompt as a single user message
func (b *OpenAIBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: b.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from %s", b.name)
	}

	return resp.Choices[0].Message.Content, nil
}

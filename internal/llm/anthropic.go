package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

const (
	defaultAnthropicMaxTokens = 4096
	defaultBedrockModel       = "us.anthropic.claude-sonnet-4-20250514-v1:0"
)

// AnthropicConfig contains configuration for creating an AnthropicBackend.
type AnthropicConfig struct {
	// APIKey is required unless UseBedrock is set.
	APIKey string
	// Model defaults to Claude Sonnet 4.
	Model string
	// UseBedrock routes requests through AWS Bedrock with the default AWS credential chain.
	UseBedrock bool
	AWSRegion  string
	AWSProfile string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// AnthropicBackend sends prompts to the Anthropic Messages API.
type AnthropicBackend struct {
	name   string
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicBackend creates a backend. SDK retries are disabled: retry
// policy belongs to the caller.
func NewAnthropicBackend(ctx context.Context, cfg AnthropicConfig) (*AnthropicBackend, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	name := "anthropic"
	model := anthropic.Model(cfg.Model)

	if cfg.UseBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
		name = "anthropic-bedrock"
		if model == "" {
			model = defaultBedrockModel
		}
	} else {
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}

	return &AnthropicBackend{
		name:   name,
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (b *AnthropicBackend) Name() string {
	return b.name
}

// Complete returns the concatenated text blocks of the reply
func (b *AnthropicBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: defaultAnthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages API: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	return text.String(), nil
}

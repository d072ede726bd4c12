// Package llm provides a thin provider-agnostic completion client used by
// the plan generator. Providers are backed by langchaingo.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/planloom/loom/internal/types"
)

// Client is the completion surface the plan generator depends on.
type Client interface {
	// Complete sends a system prompt and a user prompt and returns the
	// model's text response. Blocking; honors ctx cancellation.
	Complete(ctx context.Context, system, user string) (string, error)
}

// ProviderType identifies a supported LLM provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// langchainClient adapts a langchaingo model to the Client interface.
type langchainClient struct {
	model llms.Model
}

// NewClient constructs a Client for the named provider. The API key is read
// from apiKeyEnv when set, otherwise from the provider's conventional
// environment variable (langchaingo's default behavior).
func NewClient(provider ProviderType, model string, apiKeyEnv string) (Client, error) {
	apiKey := ""
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	var (
		m   llms.Model
		err error
	)

	switch provider {
	case ProviderAnthropic:
		opts := []anthropic.Option{}
		if apiKey != "" {
			opts = append(opts, anthropic.WithToken(apiKey))
		}
		if model != "" {
			opts = append(opts, anthropic.WithModel(model))
		}
		m, err = anthropic.New(opts...)

	case ProviderOpenAI:
		opts := []openai.Option{}
		if apiKey != "" {
			opts = append(opts, openai.WithToken(apiKey))
		}
		if model != "" {
			opts = append(opts, openai.WithModel(model))
		}
		m, err = openai.New(opts...)

	case ProviderOllama:
		opts := []ollama.Option{}
		if model != "" {
			opts = append(opts, ollama.WithModel(model))
		}
		m, err = ollama.New(opts...)

	default:
		return nil, types.NewError(types.LLM_PROVIDER_UNSUPPORTED,
			fmt.Sprintf("unsupported LLM provider %q", provider))
	}

	if err != nil {
		return nil, types.WrapError(types.LLM_COMPLETION_FAILED,
			fmt.Sprintf("failed to initialize %s client", provider), err)
	}

	return &langchainClient{model: m}, nil
}

// Complete implements Client via langchaingo's GenerateContent.
func (c *langchainClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}

	resp, err := c.model.GenerateContent(ctx, messages)
	if err != nil {
		return "", types.WrapError(types.LLM_COMPLETION_FAILED, "completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", types.NewError(types.LLM_COMPLETION_FAILED, "completion returned no choices")
	}

	return resp.Choices[0].Content, nil
}

// Package openai provides an OpenAI-compatible chat-completion provider.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := provider.Complete(ctx, "Pick one of the two items...")
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/entrhq/rankforge/pkg/llm"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// Sampling parameters are fixed for the whole run; memory updates and
	// ranking calls share them.
	temperature = 0.7
	maxTokens   = 800
)

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	client  oai.Client
	model   string
	baseURL string
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		p.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY
// environment variable. If baseURL is not provided via WithBaseURL, the
// OPENAI_BASE_URL environment variable is consulted before falling back to
// the public endpoint.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:   "gpt-4o-mini",
		baseURL: DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	p.client = oai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(p.baseURL),
	)
	return p, nil
}

// Complete sends the prompt as a single user-role message and returns the
// full response text. A successful call with no usable choices returns
// llm.ErrEmptyResponse so the retry wrapper treats it as a failure.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
		Temperature: oai.Float(temperature),
		MaxTokens:   oai.Int(maxTokens),
		N:           oai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("openai: completion request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// Model returns the model name being used.
func (p *Provider) Model() string {
	return p.model
}

// BaseURL returns the base URL being used for API requests.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
)

var ErrUnknownProvider = errors.New("unknown LLM provider")

// ImageData is an inline image attached to a completion request,
// base64-encoded.
type ImageData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// CompletionRequest is the normalized request shape.
type CompletionRequest struct {
	Prompt      string      `json:"prompt"`
	Model       string      `json:"model,omitempty"`
	Images      []ImageData `json:"images,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature float32     `json:"temperature,omitempty"`
}

// CompletionResponse is the normalized response shape.
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Provider is implemented by each LLM backend.
type Provider interface {
	// Initialize the provider with its configuration map.
	Initialize(config map[string]string) error

	// GetName returns the provider's display name.
	GetName() string

	// GetSupportedModels lists the models this provider accepts.
	GetSupportedModels() []string

	// CompleteText generates a completion for one prompt.
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderFactory constructs an uninitialized provider.
type ProviderFactory func() Provider

var providers = make(map[string]ProviderFactory)

// Register adds a provider factory to the registry. Providers register
// themselves from their package init.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// GetProvider creates and initializes the named provider.
func GetProvider(name string, config map[string]string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

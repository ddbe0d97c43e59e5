package ai

import (
	"context"
)

// ChatMessage represents one turn handed to the completion provider
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionProvider is the interface for text-completion providers. The
// provider is treated as untrusted (its output must pass the post-filter)
// and unreliable (timeouts and rate limits are expected).
type CompletionProvider interface {
	// Complete sends the system prompt and conversation turns and returns
	// the generated reply text.
	Complete(ctx context.Context, systemPrompt string, turns []ChatMessage, maxTokens int) (string, error)
}

// ProviderFactory creates a completion provider from a config map
type ProviderFactory func(config map[string]string) (CompletionProvider, error)

// ProviderRegistry stores available completion providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (CompletionProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "completion provider not found: " + e.Name
}

// RegisterOpenAI registers the OpenAI-compatible provider with a registry.
func RegisterOpenAI(r *ProviderRegistry) {
	r.Register("openai", func(config map[string]string) (CompletionProvider, error) {
		return NewOpenAIProvider(config["api_key"], config["base_url"], config["model"]), nil
	})
}

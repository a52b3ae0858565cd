package llms

import (
	"github.com/scholarag/scholarag/pkg/config"
)

// NewZAIProviderFromConfig builds a provider for the Z.AI paas endpoint.
// The API is OpenAI chat-completions compatible, so the provider reuses the
// OpenAI wire adapter with the zai label.
func NewZAIProviderFromConfig(cfg *config.LLMProviderConfig) (*OpenAIProvider, error) {
	provider, err := NewOpenAIProviderFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	provider.providerName = "zai"
	return provider, nil
}

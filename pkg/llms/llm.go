package llms

import (
	"context"
	"fmt"

	"github.com/scholarag/scholarag/pkg/config"
)

// LLM is the chat completion contract the agent engine depends on.
// Generate and GenerateStructured return the response text and total token
// count. GenerateStreaming returns a buffered channel that is closed after
// the final chunk; a failed stream delivers an error chunk before closing.
type LLM interface {
	Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, int, error)
	GenerateStructured(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig, opts *GenerateOptions) (string, int, error)
	GenerateStreaming(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error)

	// WithModel returns a copy of the provider targeting a different model.
	WithModel(model string) LLM

	ModelName() string
	ProviderName() string
	Close() error
}

// NewProviderFromConfig builds a provider for the given config.
func NewProviderFromConfig(cfg *config.LLMProviderConfig) (LLM, error) {
	switch cfg.Type {
	case config.LLMProviderOpenAI:
		return NewOpenAIProviderFromConfig(cfg)
	case config.LLMProviderZAI:
		return NewZAIProviderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider type: %s", cfg.Type)
	}
}

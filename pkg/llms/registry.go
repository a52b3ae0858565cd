package llms

import (
	"fmt"

	"github.com/scholarag/scholarag/pkg/config"
	"github.com/scholarag/scholarag/pkg/registry"
)

// LLMRegistry holds the configured providers keyed by name.
type LLMRegistry struct {
	*registry.BaseRegistry[LLM]
	defaultName string
}

func NewLLMRegistry() *LLMRegistry {
	return &LLMRegistry{
		BaseRegistry: registry.NewBaseRegistry[LLM](),
	}
}

// NewRegistryFromConfig builds providers for every configured entry.
func NewRegistryFromConfig(cfg *config.LLMConfig) (*LLMRegistry, error) {
	r := NewLLMRegistry()

	for name, pc := range cfg.Providers {
		provider, err := NewProviderFromConfig(pc)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm provider %q: %w", name, err)
		}
		if err := r.Register(name, provider); err != nil {
			return nil, err
		}
	}

	r.defaultName = string(cfg.DefaultProvider)
	return r, nil
}

// Resolve returns the named provider, or the default when name is empty.
func (r *LLMRegistry) Resolve(name string) (LLM, error) {
	if name == "" {
		name = r.defaultName
	}
	llm, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", name)
	}
	return llm, nil
}

// Close closes every registered provider.
func (r *LLMRegistry) Close() error {
	var firstErr error
	for _, name := range r.Names() {
		if llm, ok := r.Get(name); ok {
			if err := llm.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

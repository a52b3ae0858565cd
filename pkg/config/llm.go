package config

import (
	"fmt"
	"os"
)

// LLMProvider identifies the LLM provider type.
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderZAI    LLMProvider = "zai"
)

// LLMConfig configures the chat completion providers. The default provider
// answers requests that carry no provider override.
type LLMConfig struct {
	// DefaultProvider is used when a request does not name one.
	DefaultProvider LLMProvider `yaml:"default_provider,omitempty" json:"default_provider,omitempty" jsonschema:"enum=openai,enum=zai,default=openai"`

	// Providers holds per-provider settings keyed by provider name.
	Providers map[string]*LLMProviderConfig `yaml:"providers,omitempty" json:"providers,omitempty"`
}

// LLMProviderConfig configures one provider endpoint.
type LLMProviderConfig struct {
	// Type selects the wire adapter (openai, zai).
	Type LLMProvider `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"enum=openai,enum=zai"`

	// Model is the default model for this provider.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// APIKey authenticates requests. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"minimum=1,default=1000"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"minimum=1,default=60"`

	// MaxRetries bounds HTTP retries on retryable statuses.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"minimum=0,default=3"`

	// RetryDelay is the base retry delay in seconds.
	RetryDelay int `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty" jsonschema:"minimum=0,default=2"`
}

func (c *LLMConfig) SetDefaults() {
	if c.Providers == nil {
		c.Providers = make(map[string]*LLMProviderConfig)
	}
	if _, ok := c.Providers["openai"]; !ok {
		c.Providers["openai"] = &LLMProviderConfig{}
	}
	if _, ok := c.Providers["zai"]; !ok && os.Getenv("ZAI_API_KEY") != "" {
		c.Providers["zai"] = &LLMProviderConfig{}
	}

	for name, pc := range c.Providers {
		if pc == nil {
			pc = &LLMProviderConfig{}
			c.Providers[name] = pc
		}
		if pc.Type == "" {
			pc.Type = LLMProvider(name)
		}
		pc.SetDefaults()
	}

	if c.DefaultProvider == "" {
		c.DefaultProvider = LLMProviderOpenAI
		if _, ok := c.Providers["openai"]; !ok {
			for name := range c.Providers {
				c.DefaultProvider = LLMProvider(name)
				break
			}
		}
	}
}

func (c *LLMProviderConfig) SetDefaults() {
	switch c.Type {
	case LLMProviderOpenAI:
		if c.Model == "" {
			c.Model = "gpt-4o-mini"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case LLMProviderZAI:
		if c.Model == "" {
			c.Model = "glm-4.6"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.z.ai/api/paas/v4"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("ZAI_API_KEY")
		}
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 2
	}
}

func (c *LLMConfig) Validate() error {
	validProviders := map[LLMProvider]bool{
		LLMProviderOpenAI: true,
		LLMProviderZAI:    true,
	}

	if !validProviders[c.DefaultProvider] {
		return fmt.Errorf("invalid default_provider %q (valid: openai, zai)", c.DefaultProvider)
	}
	if _, ok := c.Providers[string(c.DefaultProvider)]; !ok {
		return fmt.Errorf("default_provider %q has no provider config", c.DefaultProvider)
	}

	for name, pc := range c.Providers {
		if !validProviders[pc.Type] {
			return fmt.Errorf("provider %q: invalid type %q (valid: openai, zai)", name, pc.Type)
		}
	}
	return nil
}

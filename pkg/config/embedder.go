package config

import (
	"fmt"
	"os"
)

// EmbedderConfig configures the embedding provider. The dimension is
// authoritative: chunk embeddings in the store must match it.
type EmbedderConfig struct {
	// Provider selects the embedder (openai, jina).
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" jsonschema:"enum=openai,enum=jina,default=jina"`

	// Model is the embedding model identifier.
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// Dimension is the embedding vector dimension.
	Dimension int `yaml:"dimension,omitempty" json:"dimension,omitempty" jsonschema:"minimum=1,default=1024"`

	// APIKey authenticates requests. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"minimum=1,default=30"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "jina"
	}

	switch c.Provider {
	case "jina":
		if c.Model == "" {
			c.Model = "jina-embeddings-v3"
		}
		if c.Dimension == 0 {
			c.Dimension = 1024
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.jina.ai/v1"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("JINA_API_KEY")
		}
	case "openai":
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
		if c.Dimension == 0 {
			c.Dimension = 1536
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

func (c *EmbedderConfig) Validate() error {
	switch c.Provider {
	case "jina", "openai":
	default:
		return fmt.Errorf("invalid provider %q (valid: jina, openai)", c.Provider)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the process-level configuration for the scholarag service.
type Config struct {
	// LLM configures the chat completion providers.
	LLM LLMConfig `yaml:"llm" json:"llm"`

	// Embedder configures the embedding provider.
	Embedder EmbedderConfig `yaml:"embedder" json:"embedder"`

	// Database configures the Postgres knowledge base and conversation store.
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Server configures the HTTP surface.
	Server ServerConfig `yaml:"server" json:"server"`

	// Agent configures default engine parameters. Per-request overrides in
	// the stream request body take precedence.
	Agent AgentConfig `yaml:"agent" json:"agent"`

	// Search configures hybrid retrieval.
	Search SearchConfig `yaml:"search" json:"search"`

	// Ingest configures the chunking pipeline behind the ingest_papers tool.
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`

	// Observability configures tracing and metrics.
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format,omitempty" json:"log_format,omitempty" jsonschema:"enum=text,enum=json,default=text"`
}

// Load reads a YAML config file, expands ${VAR} references from the
// environment, applies defaults, and validates. An empty path yields a
// default config built from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		expanded := ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} references with environment
// values. Unset variables without a default expand to the empty string.
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[3]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return def
	})
}

func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.Database.SetDefaults()
	c.Server.SetDefaults()
	c.Agent.SetDefaults()
	c.Search.SetDefaults()
	c.Ingest.SetDefaults()
	c.Observability.SetDefaults()

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Embedder.Validate(); err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool { return &b }

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(f float64) *float64 { return &f }

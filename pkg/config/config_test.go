package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("SCHOLARAG_TEST_VAR", "hello")

	assert.Equal(t, "hello", ExpandEnv("${SCHOLARAG_TEST_VAR}"))
	assert.Equal(t, "prefix-hello", ExpandEnv("prefix-${SCHOLARAG_TEST_VAR}"))
	assert.Equal(t, "fallback", ExpandEnv("${SCHOLARAG_UNSET_VAR:-fallback}"))
	assert.Equal(t, "", ExpandEnv("${SCHOLARAG_UNSET_VAR}"))
	assert.Equal(t, "hello", ExpandEnv("${SCHOLARAG_TEST_VAR:-fallback}"))
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Providers["openai"].Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.Providers["openai"].BaseURL)

	assert.Equal(t, 3, cfg.Agent.TopK)
	assert.Equal(t, 75, cfg.Agent.GuardrailThreshold)
	assert.Equal(t, 3, cfg.Agent.MaxRetrievalAttempts)
	assert.Equal(t, 5, cfg.Agent.ConversationWindow)
	require.NotNil(t, cfg.Agent.Temperature)
	assert.Equal(t, 0.3, *cfg.Agent.Temperature)

	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, 600, cfg.Ingest.ChunkSizeWords)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("SCHOLARAG_TEST_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  providers:
    openai:
      api_key: ${SCHOLARAG_TEST_KEY}
      model: gpt-4o
agent:
  top_k: 5
server:
  port: ${SCHOLARAG_TEST_PORT:-9000}
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.Providers["openai"].APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Providers["openai"].Model)
	assert.Equal(t, 5, cfg.Agent.TopK)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestAgentConfigValidation(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*AgentConfig)
	}{
		{"top_k too high", func(c *AgentConfig) { c.TopK = 11 }},
		{"threshold too high", func(c *AgentConfig) { c.GuardrailThreshold = 101 }},
		{"attempts too high", func(c *AgentConfig) { c.MaxRetrievalAttempts = 6 }},
		{"window too high", func(c *AgentConfig) { c.ConversationWindow = 11 }},
		{"temperature too high", func(c *AgentConfig) { c.Temperature = Float64Ptr(1.5) }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &AgentConfig{}
			cfg.SetDefaults()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestIngestConfigRejectsOverlapAboveSize(t *testing.T) {
	cfg := &IngestConfig{ChunkSizeWords: 100, ChunkOverlapWords: 100, MinChunkWords: 10}
	assert.Error(t, cfg.Validate())
}

func TestLLMConfigZaiRequiresEnv(t *testing.T) {
	t.Setenv("ZAI_API_KEY", "zai-secret")

	cfg := &LLMConfig{}
	cfg.SetDefaults()

	zai, ok := cfg.Providers["zai"]
	require.True(t, ok)
	assert.Equal(t, LLMProviderZAI, zai.Type)
	assert.Equal(t, "glm-4.6", zai.Model)
	assert.Equal(t, "zai-secret", zai.APIKey)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  top_k: 99\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

package config

import "fmt"

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	// RRFK is the Reciprocal Rank Fusion constant.
	RRFK int `yaml:"rrf_k,omitempty" json:"rrf_k,omitempty" jsonschema:"minimum=1,default=60"`

	// MinScore filters vector matches below this cosine similarity.
	MinScore float64 `yaml:"min_score,omitempty" json:"min_score,omitempty" jsonschema:"minimum=0,maximum=1,default=0"`
}

func (c *SearchConfig) SetDefaults() {
	if c.RRFK == 0 {
		c.RRFK = 60
	}
}

func (c *SearchConfig) Validate() error {
	if c.RRFK < 1 {
		return fmt.Errorf("rrf_k must be positive")
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1")
	}
	return nil
}

// IngestConfig configures the chunking pipeline.
type IngestConfig struct {
	// ChunkSizeWords is the chunk window in words.
	ChunkSizeWords int `yaml:"chunk_size_words,omitempty" json:"chunk_size_words,omitempty" jsonschema:"minimum=1,default=600"`

	// ChunkOverlapWords is the overlap between consecutive chunks.
	ChunkOverlapWords int `yaml:"chunk_overlap_words,omitempty" json:"chunk_overlap_words,omitempty" jsonschema:"minimum=0,default=100"`

	// MinChunkWords drops trailing fragments below this size.
	MinChunkWords int `yaml:"min_chunk_words,omitempty" json:"min_chunk_words,omitempty" jsonschema:"minimum=1,default=100"`
}

func (c *IngestConfig) SetDefaults() {
	if c.ChunkSizeWords == 0 {
		c.ChunkSizeWords = 600
	}
	if c.ChunkOverlapWords == 0 {
		c.ChunkOverlapWords = 100
	}
	if c.MinChunkWords == 0 {
		c.MinChunkWords = 100
	}
}

func (c *IngestConfig) Validate() error {
	if c.ChunkOverlapWords >= c.ChunkSizeWords {
		return fmt.Errorf("chunk_overlap_words must be less than chunk_size_words")
	}
	return nil
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	// MetricsEnabled exposes prometheus metrics on /metrics.
	MetricsEnabled bool `yaml:"metrics_enabled,omitempty" json:"metrics_enabled,omitempty" jsonschema:"default=true"`

	// TracingEnabled records spans for engine runs, LLM calls, and search.
	TracingEnabled bool `yaml:"tracing_enabled,omitempty" json:"tracing_enabled,omitempty" jsonschema:"default=false"`

	// ServiceName reported on spans and metrics.
	ServiceName string `yaml:"service_name,omitempty" json:"service_name,omitempty" jsonschema:"default=scholarag"`
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "scholarag"
	}
}

package embedders

import (
	"context"
	"fmt"

	"github.com/scholarag/scholarag/pkg/config"
)

// Embedder turns text into dense vectors for the chunk store. Queries and
// documents embed through separate methods because some providers apply
// task-specific projections to each side.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// NewEmbedderFromConfig builds the configured embedding provider.
func NewEmbedderFromConfig(cfg *config.EmbedderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "jina":
		return NewJinaEmbedder(cfg), nil
	case "openai":
		return NewOpenAIEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}

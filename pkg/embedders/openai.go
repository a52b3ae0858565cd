package embedders

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scholarag/scholarag/pkg/config"
	"github.com/scholarag/scholarag/pkg/httpclient"
	"github.com/scholarag/scholarag/pkg/observability"
)

// OpenAIEmbedder calls the OpenAI embeddings API. The dimensions parameter
// is sent explicitly so stored vectors match the configured column width.
type OpenAIEmbedder struct {
	config     *config.EmbedderConfig
	httpClient *httpclient.Client
}

type openAIEmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

func NewOpenAIEmbedder(cfg *config.EmbedderConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
		),
	}
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts)
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.config.Dimension
}

func (e *OpenAIEmbedder) embed(ctx context.Context, input []string) ([][]float32, error) {
	tracer := observability.GetTracer("scholarag.embedders")
	ctx, span := tracer.Start(ctx, observability.SpanEmbedding,
		trace.WithAttributes(
			attribute.String("embedder.provider", "openai"),
			attribute.Int("embedder.inputs", len(input)),
		),
	)
	defer span.End()

	vectors, err := postEmbeddings(ctx, e.httpClient, e.config.BaseURL+"/embeddings", e.config.APIKey, openAIEmbeddingRequest{
		Model:      e.config.Model,
		Input:      input,
		Dimensions: e.config.Dimension,
	}, len(input))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "success")
	return vectors, nil
}

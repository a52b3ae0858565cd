package embedders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scholarag/scholarag/pkg/config"
	"github.com/scholarag/scholarag/pkg/httpclient"
	"github.com/scholarag/scholarag/pkg/observability"
)

// Jina batches up to 100 inputs per request.
const jinaBatchSize = 100

// JinaEmbedder calls the Jina AI embeddings API. Jina v3 applies
// task-specific projections, so queries embed with "retrieval.query" and
// documents with "retrieval.passage".
type JinaEmbedder struct {
	config     *config.EmbedderConfig
	httpClient *httpclient.Client
}

type jinaRequest struct {
	Model string   `json:"model"`
	Task  string   `json:"task,omitempty"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewJinaEmbedder(cfg *config.EmbedderConfig) *JinaEmbedder {
	return &JinaEmbedder{
		config: cfg,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			}),
		),
	}
}

func (e *JinaEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.embed(ctx, "retrieval.query", []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *JinaEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += jinaBatchSize {
		end := start + jinaBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embed(ctx, "retrieval.passage", texts[start:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}

	return all, nil
}

func (e *JinaEmbedder) Dimension() int {
	return e.config.Dimension
}

func (e *JinaEmbedder) embed(ctx context.Context, task string, input []string) ([][]float32, error) {
	tracer := observability.GetTracer("scholarag.embedders")
	ctx, span := tracer.Start(ctx, observability.SpanEmbedding,
		trace.WithAttributes(
			attribute.String("embedder.provider", "jina"),
			attribute.String("embedder.task", task),
			attribute.Int("embedder.inputs", len(input)),
		),
	)
	defer span.End()

	vectors, err := postEmbeddings(ctx, e.httpClient, e.config.BaseURL+"/embeddings", e.config.APIKey, jinaRequest{
		Model: e.config.Model,
		Task:  task,
		Input: input,
	}, len(input))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "success")
	return vectors, nil
}

// postEmbeddings posts a request body to an embeddings endpoint and decodes
// the shared response shape. Jina and OpenAI use the same layout.
func postEmbeddings(ctx context.Context, client *httpclient.Client, url, apiKey string, payload interface{}, want int) ([][]float32, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response embeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(response.Data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(response.Data))
	}

	vectors := make([][]float32, len(response.Data))
	for i, item := range response.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

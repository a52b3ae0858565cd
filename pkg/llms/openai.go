package llms

import (
	"bufio"
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

const defaultTemperature = 0.7

// OpenAIProvider speaks the OpenAI chat completions wire format. It also
// backs providers whose APIs are OpenAI-compatible; providerName labels the
// actual backend in spans and metrics.
type OpenAIProvider struct {
	config       *config.LLMProviderConfig
	httpClient   *httpclient.Client
	providerName string
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []Message             `json:"messages"`
	MaxTokens      *int                  `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	Stream         bool                  `json:"stream"`
	StreamOptions  *streamOptions        `json:"stream_options,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string      `json:"name"`
	Schema interface{} `json:"schema"`
	Strict bool        `json:"strict,omitempty"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type openAIStreamResponse struct {
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *openAIUsage         `json:"usage,omitempty"`
	Error   *openAIError         `json:"error,omitempty"`
}

type openAIStreamChoice struct {
	Delta        openAIDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type openAIDelta struct {
	Content string `json:"content,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func NewOpenAIProviderFromConfig(cfg *config.LLMProviderConfig) (*OpenAIProvider, error) {
	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithBaseDelay(time.Duration(cfg.RetryDelay)*time.Second),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIRateLimitHeaders),
	)

	return &OpenAIProvider{
		config:       cfg,
		httpClient:   httpClient,
		providerName: "openai",
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, int, error) {
	return p.complete(ctx, p.buildRequest(messages, false, opts), false)
}

func (p *OpenAIProvider) GenerateStructured(ctx context.Context, messages []Message, structConfig *StructuredOutputConfig, opts *GenerateOptions) (string, int, error) {
	req := p.buildRequest(messages, false, opts)

	if structConfig != nil {
		if structConfig.Schema != nil {
			name := structConfig.Name
			if name == "" {
				name = "response"
			}
			req.ResponseFormat = &openAIResponseFormat{
				Type: "json_schema",
				JSONSchema: &openAIJSONSchema{
					Name:   name,
					Schema: structConfig.Schema,
					Strict: true,
				},
			}
		} else {
			req.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
		}
	}

	return p.complete(ctx, req, true)
}

func (p *OpenAIProvider) complete(ctx context.Context, req openAIRequest, structured bool) (string, int, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("scholarag.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, p.config.Model),
			attribute.String(observability.AttrLLMProvider, p.providerName),
			attribute.Bool("streaming", false),
			attribute.Bool("structured", structured),
		),
	)
	defer span.End()

	fail := func(err error) (string, int, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if metrics := observability.GetGlobalMetrics(); metrics != nil {
			metrics.RecordLLMCall(ctx, p.config.Model, time.Since(startTime), 0, 0, err)
		}
		return "", 0, err
	}

	response, err := p.makeRequest(ctx, req)
	if err != nil {
		return fail(err)
	}
	if response.Error != nil {
		return fail(fmt.Errorf("%s API error: %s", p.providerName, response.Error.Message))
	}
	if len(response.Choices) == 0 {
		return fail(fmt.Errorf("no response choices returned"))
	}

	text := response.Choices[0].Message.Content
	usage := response.Usage

	span.SetAttributes(
		attribute.Int("llm.tokens.input", usage.PromptTokens),
		attribute.Int("llm.tokens.output", usage.CompletionTokens),
	)
	span.SetStatus(codes.Ok, "success")

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordLLMCall(ctx, p.config.Model, time.Since(startTime), usage.PromptTokens, usage.CompletionTokens, nil)
	}

	return text, usage.TotalTokens, nil
}

func (p *OpenAIProvider) GenerateStreaming(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error) {
	req := p.buildRequest(messages, true, opts)

	outputCh := make(chan StreamChunk, 100)

	go func() {
		defer close(outputCh)

		if err := p.makeStreamingRequest(ctx, req, outputCh); err != nil {
			outputCh <- StreamChunk{
				Type:  ChunkTypeError,
				Error: err,
			}
		}
	}()

	return outputCh, nil
}

func (p *OpenAIProvider) WithModel(model string) LLM {
	if model == "" || model == p.config.Model {
		return p
	}
	cfg := *p.config
	cfg.Model = model
	clone := *p
	clone.config = &cfg
	return &clone
}

func (p *OpenAIProvider) ModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) ProviderName() string {
	return p.providerName
}

func (p *OpenAIProvider) Close() error {
	return nil
}

func (p *OpenAIProvider) buildRequest(messages []Message, stream bool, opts *GenerateOptions) openAIRequest {
	temperature := defaultTemperature
	maxTokens := p.config.MaxTokens
	if opts != nil {
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	req := openAIRequest{
		Model:       p.config.Model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      stream,
	}

	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	if stream {
		req.StreamOptions = &streamOptions{IncludeUsage: true}
	}

	return req
}

// parseErrorResponse extracts error details from API error bodies.
func parseErrorResponse(body []byte) *openAIError {
	if len(body) == 0 {
		return nil
	}
	var errorResp struct {
		Error openAIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return &errorResp.Error
	}
	return nil
}

func (p *OpenAIProvider) newHTTPRequest(ctx context.Context, requestBody []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.config.BaseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	return req, nil
}

// checkResponse handles the non-2xx and transport error cases.
// The HTTP client may return both a response and an error after exhausting
// retries, so the body is inspected either way.
func (p *OpenAIProvider) checkResponse(resp *http.Response, err error) error {
	if resp != nil && resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		errorBody := string(body)
		if readErr != nil {
			errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
		}
		if apiErr := parseErrorResponse(body); apiErr != nil {
			return fmt.Errorf("API request failed with status %d: %s (type: %s, code: %s)",
				resp.StatusCode, apiErr.Message, apiErr.Type, apiErr.Code)
		}
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, errorBody)
	}

	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("HTTP request failed: no response received")
	}
	return nil
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := p.newHTTPRequest(ctx, requestBody)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if checkErr := p.checkResponse(resp, err); checkErr != nil {
		return nil, checkErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}

func (p *OpenAIProvider) makeStreamingRequest(ctx context.Context, request openAIRequest, outputCh chan<- StreamChunk) error {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := p.newHTTPRequest(ctx, requestBody)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if checkErr := p.checkResponse(resp, err); checkErr != nil {
		return checkErr
	}

	reader := bufio.NewReader(resp.Body)
	totalTokens := 0

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if !bytes.HasPrefix(line, []byte("data: ")) {
			continue
		}
		line = line[6:]

		if bytes.Equal(line, []byte("[DONE]")) {
			break
		}

		var streamResp openAIStreamResponse
		if err := json.Unmarshal(line, &streamResp); err != nil {
			continue
		}

		if streamResp.Error != nil {
			return fmt.Errorf("API error: %s", streamResp.Error.Message)
		}

		if streamResp.Usage != nil {
			totalTokens = streamResp.Usage.TotalTokens
		}

		if len(streamResp.Choices) == 0 {
			continue
		}

		if content := streamResp.Choices[0].Delta.Content; content != "" {
			select {
			case outputCh <- StreamChunk{Type: ChunkTypeText, Text: content}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	select {
	case outputCh <- StreamChunk{Type: ChunkTypeDone, Tokens: totalTokens}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

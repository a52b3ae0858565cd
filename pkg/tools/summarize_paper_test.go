package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/store"
)

type fakePaperGetter struct {
	paper *store.Paper
	err   error
}

func (f *fakePaperGetter) GetPaperByArxivID(ctx context.Context, arxivID string) (*store.Paper, error) {
	return f.paper, f.err
}

type cannedLLM struct {
	response string
	err      error

	lastPrompt string
}

func (c *cannedLLM) Generate(ctx context.Context, messages []llms.Message, opts *llms.GenerateOptions) (string, int, error) {
	c.lastPrompt = messages[len(messages)-1].Content
	return c.response, 10, c.err
}

func (c *cannedLLM) GenerateStructured(ctx context.Context, messages []llms.Message, structConfig *llms.StructuredOutputConfig, opts *llms.GenerateOptions) (string, int, error) {
	return c.response, 10, c.err
}

func (c *cannedLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, opts *llms.GenerateOptions) (<-chan llms.StreamChunk, error) {
	ch := make(chan llms.StreamChunk)
	close(ch)
	return ch, nil
}

func (c *cannedLLM) WithModel(model string) llms.LLM { return c }
func (c *cannedLLM) ModelName() string               { return "canned" }
func (c *cannedLLM) ProviderName() string            { return "fake" }
func (c *cannedLLM) Close() error                    { return nil }

func TestSummarizePaper(t *testing.T) {
	getter := &fakePaperGetter{paper: &store.Paper{
		ArxivID:  "1706.03762",
		Title:    "Attention Is All You Need",
		Abstract: "We propose the Transformer.",
	}}
	llm := &cannedLLM{response: "  A new architecture based on attention.  "}
	tool := NewSummarizePaperTool(getter, llm)

	result := tool.Execute(context.Background(), map[string]interface{}{"arxiv_id": "1706.03762"})
	require.True(t, result.Success)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, "1706.03762", data["arxiv_id"])
	assert.Equal(t, "Attention Is All You Need", data["title"])
	assert.Equal(t, "A new architecture based on attention.", data["summary"])

	assert.Contains(t, llm.lastPrompt, "Title: Attention Is All You Need")
	assert.Contains(t, llm.lastPrompt, "Abstract: We propose the Transformer.")
}

func TestSummarizePaperNotFound(t *testing.T) {
	tool := NewSummarizePaperTool(&fakePaperGetter{err: store.ErrNotFound}, &cannedLLM{})

	result := tool.Execute(context.Background(), map[string]interface{}{"arxiv_id": "9999.99999"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found in knowledge base")
}

func TestSummarizePaperLLMFailure(t *testing.T) {
	getter := &fakePaperGetter{paper: &store.Paper{ArxivID: "1706.03762", Title: "T", Abstract: "A"}}
	tool := NewSummarizePaperTool(getter, &cannedLLM{err: errors.New("llm down")})

	result := tool.Execute(context.Background(), map[string]interface{}{"arxiv_id": "1706.03762"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "summary generation failed")
}

func TestSummarizePaperRequiresID(t *testing.T) {
	tool := NewSummarizePaperTool(&fakePaperGetter{}, &cannedLLM{})
	result := tool.Execute(context.Background(), map[string]interface{}{})
	assert.False(t, result.Success)
}

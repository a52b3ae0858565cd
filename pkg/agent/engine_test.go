package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/store"
	"github.com/scholarag/scholarag/pkg/tools"
)

// fakeLLM dispatches on prompt content so node ordering does not matter.
type fakeLLM struct {
	mu sync.Mutex

	guardrailJSON string
	guardrailErr  error

	routerJSONs []string
	routerErr   error

	gradingJSON string
	gradingErr  error

	rewriteJSON string
	rewriteErr  error

	streamTokens     []string
	streamErr        error
	streamedUser     string
	blockAfterTokens bool
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llms.Message, opts *llms.GenerateOptions) (string, int, error) {
	return "", 0, errors.New("unexpected generate call")
}

func (f *fakeLLM) GenerateStructured(ctx context.Context, messages []llms.Message, structConfig *llms.StructuredOutputConfig, opts *llms.GenerateOptions) (string, int, error) {
	joined := ""
	for _, m := range messages {
		joined += m.Content + "\n"
	}

	switch {
	case strings.Contains(joined, "relevance validator"):
		return f.guardrailJSON, 10, f.guardrailErr
	case strings.Contains(joined, "routing step"):
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.routerErr != nil {
			return "", 0, f.routerErr
		}
		if len(f.routerJSONs) == 0 {
			return `{"rationale":"done","should_generate":true}`, 10, nil
		}
		next := f.routerJSONs[0]
		f.routerJSONs = f.routerJSONs[1:]
		return next, 10, nil
	case strings.Contains(joined, "Is this chunk relevant"):
		return f.gradingJSON, 10, f.gradingErr
	case strings.Contains(joined, "did not retrieve enough"):
		return f.rewriteJSON, 10, f.rewriteErr
	}
	return "", 0, errors.New("unexpected structured call")
}

func (f *fakeLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, opts *llms.GenerateOptions) (<-chan llms.StreamChunk, error) {
	f.mu.Lock()
	f.streamedUser = messages[len(messages)-1].Content
	f.mu.Unlock()

	ch := make(chan llms.StreamChunk, len(f.streamTokens)+1)
	go func() {
		defer close(ch)
		for _, token := range f.streamTokens {
			ch <- llms.StreamChunk{Type: llms.ChunkTypeText, Text: token}
		}
		if f.blockAfterTokens {
			<-ctx.Done()
			return
		}
		if f.streamErr != nil {
			ch <- llms.StreamChunk{Type: llms.ChunkTypeError, Error: f.streamErr}
			return
		}
		ch <- llms.StreamChunk{Type: llms.ChunkTypeDone}
	}()
	return ch, nil
}

func (f *fakeLLM) WithModel(model string) llms.LLM { return f }
func (f *fakeLLM) ModelName() string               { return "fake-model" }
func (f *fakeLLM) ProviderName() string            { return "fake" }
func (f *fakeLLM) Close() error                    { return nil }

// fakeRetriever stands in for the retrieve_chunks tool.
type fakeRetriever struct {
	chunks []store.SearchResult
	err    string
	calls  int
}

func (f *fakeRetriever) GetInfo() tools.ToolInfo {
	return tools.ToolInfo{
		Name:        "retrieve_chunks",
		Description: "search papers",
		Parameters: []tools.ToolParameter{
			{Name: "query", Type: "string", Required: true},
		},
	}
}

func (f *fakeRetriever) Execute(ctx context.Context, args map[string]interface{}) tools.ToolResult {
	f.calls++
	if f.err != "" {
		return tools.ToolResult{Success: false, Error: f.err, ToolName: "retrieve_chunks"}
	}
	return tools.ToolResult{Success: true, Data: f.chunks, Summary: "Retrieved chunks", ToolName: "retrieve_chunks"}
}

func chunk(arxivID string, index int, score float64) store.SearchResult {
	return store.SearchResult{
		ChunkID:    arxivID + "-" + string(rune('0'+index)),
		ArxivID:    arxivID,
		ChunkIndex: index,
		Title:      "Paper " + arxivID,
		ChunkText:  "some text",
		Score:      score,
	}
}

func testOptions() Options {
	return Options{
		TopK:                 2,
		GuardrailThreshold:   75,
		MaxRetrievalAttempts: 2,
		MaxIterations:        10,
		ConversationWindow:   5,
	}
}

func runEngine(t *testing.T, llm *fakeLLM, retriever *fakeRetriever, opts Options) (*State, []Event) {
	t.Helper()

	registry := tools.NewToolRegistry()
	if retriever != nil {
		require.NoError(t, registry.RegisterTool(retriever))
	}

	emitter := NewEmitter(256)
	engine := NewEngine(llm, registry, emitter, opts)
	state := NewState("what is attention?", "", nil)

	done := make(chan struct{})
	go func() {
		engine.Run(context.Background(), state)
		emitter.Close()
		close(done)
	}()

	var events []Event
	for event := range emitter.Events() {
		events = append(events, event)
	}
	<-done
	return state, events
}

func eventTypes(events []Event) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestEngineHappyPath(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "about ML"}`,
		routerJSONs:   []string{`{"next_tool": "retrieve_chunks", "tool_args": {"query": "attention"}, "rationale": "need context", "should_generate": false}`},
		gradingJSON:   `{"relevant": true, "reasoning": "on topic"}`,
		streamTokens:  []string{"Attention ", "is ", "key."},
	}
	retriever := &fakeRetriever{chunks: []store.SearchResult{
		chunk("1706.03762", 0, 0.9),
		chunk("1706.03762", 1, 0.8),
	}}

	state, events := runEngine(t, llm, retriever, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, "Attention is key.", state.FinalAnswer)
	assert.Equal(t, 1, state.RetrievalAttempts)
	require.Len(t, state.Sources, 1)
	assert.Equal(t, "1706.03762", state.Sources[0].ArxivID)
	require.NotNil(t, state.Sources[0].WasGradedRelevant)
	assert.True(t, *state.Sources[0].WasGradedRelevant)

	// Sources must precede the first content token.
	types := eventTypes(events)
	sourcesIdx := -1
	firstContentIdx := -1
	for i, typ := range types {
		if typ == EventSources && sourcesIdx < 0 {
			sourcesIdx = i
		}
		if typ == EventContent && firstContentIdx < 0 {
			firstContentIdx = i
		}
	}
	require.GreaterOrEqual(t, sourcesIdx, 0)
	require.GreaterOrEqual(t, firstContentIdx, 0)
	assert.Less(t, sourcesIdx, firstContentIdx)

	steps := strings.Join(state.ReasoningSteps, "\n")
	assert.Contains(t, steps, "Validated query scope (score: 90/100)")
	assert.Contains(t, steps, "Graded documents (2/2 relevant)")
	assert.Contains(t, steps, "Generated answer with conversation context")
}

func TestEngineOutOfScope(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 10, "reasoning": "cooking question"}`,
		streamTokens:  []string{"I focus on AI/ML papers."},
	}

	state, events := runEngine(t, llm, nil, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, "I focus on AI/ML papers.", state.FinalAnswer)
	assert.Empty(t, state.Sources)

	var sawOutOfScope bool
	for _, e := range events {
		if e.Type == EventStatus {
			if payload, ok := e.Data.(StatusPayload); ok && payload.Step == StepOutOfScope {
				sawOutOfScope = true
			}
		}
		assert.NotEqual(t, EventSources, e.Type)
	}
	assert.True(t, sawOutOfScope)
}

func TestEngineGuardrailFailureAllowsQuery(t *testing.T) {
	llm := &fakeLLM{
		guardrailErr: errors.New("llm down"),
		streamTokens: []string{"answer"},
	}

	state, _ := runEngine(t, llm, nil, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	require.NotNil(t, state.Guardrail)
	assert.True(t, state.Guardrail.InScope)
	assert.Equal(t, 0, state.Guardrail.Score)
}

func TestEngineRouterFailureFallsThroughToGeneration(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "ok"}`,
		routerErr:     errors.New("llm down"),
		streamTokens:  []string{"best effort answer"},
	}

	state, _ := runEngine(t, llm, nil, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, "best effort answer", state.FinalAnswer)
	require.NotNil(t, state.Router)
	assert.True(t, state.Router.ShouldGenerate)
}

func TestEngineToolFailureReturnsToRouter(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "ok"}`,
		routerJSONs: []string{
			`{"next_tool": "retrieve_chunks", "rationale": "try", "should_generate": false}`,
			`{"rationale": "tool failed, answer anyway", "should_generate": true}`,
		},
		streamTokens: []string{"answer without context"},
	}
	retriever := &fakeRetriever{err: "database unreachable"}

	state, _ := runEngine(t, llm, retriever, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	require.Len(t, state.ToolHistory, 1)
	assert.False(t, state.ToolHistory[0].Success)
	assert.Equal(t, 0, state.RetrievalAttempts)
}

func TestEngineRewriteLoopRespectsAttemptCap(t *testing.T) {
	// Grader rejects everything; one chunk comes back each attempt.
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "ok"}`,
		routerJSONs: []string{
			`{"next_tool": "retrieve_chunks", "rationale": "first", "should_generate": false}`,
			`{"next_tool": "retrieve_chunks", "rationale": "again", "should_generate": false}`,
		},
		gradingJSON:  `{"relevant": false, "reasoning": "off topic"}`,
		rewriteJSON:  `{"rewritten_query": "transformer self-attention mechanism", "reason": "add terminology"}`,
		streamTokens: []string{"limited answer"},
	}
	retriever := &fakeRetriever{chunks: []store.SearchResult{chunk("2301.00001", 0, 0.5)}}

	state, _ := runEngine(t, llm, retriever, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, 2, state.RetrievalAttempts)
	assert.Equal(t, "transformer self-attention mechanism", state.CurrentQuery)
	assert.Contains(t, strings.Join(state.ReasoningSteps, "\n"),
		"Max attempts reached, proceeding with available documents")
}

func TestEngineGeneratorContextLimitedToTopK(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "ok"}`,
		routerJSONs:   []string{`{"next_tool": "retrieve_chunks", "rationale": "go", "should_generate": false}`},
		gradingJSON:   `{"relevant": true, "reasoning": "on topic"}`,
		streamTokens:  []string{"answer"},
	}
	retriever := &fakeRetriever{chunks: []store.SearchResult{
		chunk("1111.00001", 0, 0.9),
		chunk("1111.00002", 0, 0.8),
		chunk("1111.00003", 0, 0.7),
		chunk("1111.00004", 0, 0.6),
	}}

	state, _ := runEngine(t, llm, retriever, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Len(t, state.RelevantChunks, 4)
	assert.Len(t, state.Sources, 4)

	// Only the top_k highest-scored chunks may appear in the answer prompt.
	assert.Equal(t, testOptions().TopK, strings.Count(llm.streamedUser, "[1111."))
	assert.Contains(t, llm.streamedUser, "[1111.00001]")
	assert.Contains(t, llm.streamedUser, "[1111.00002]")
	assert.NotContains(t, llm.streamedUser, "[1111.00003]")
}

func TestEngineGraderFailureKeepsChunks(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "ok"}`,
		routerJSONs:   []string{`{"next_tool": "retrieve_chunks", "rationale": "go", "should_generate": false}`},
		gradingErr:    errors.New("llm down"),
		streamTokens:  []string{"answer"},
	}
	retriever := &fakeRetriever{chunks: []store.SearchResult{
		chunk("2301.00001", 0, 0.9),
		chunk("2301.00002", 0, 0.7),
	}}

	state, _ := runEngine(t, llm, retriever, testOptions())

	assert.Equal(t, StatusCompleted, state.Status)
	assert.Len(t, state.RelevantChunks, 2)
}

func TestEngineGenerationFailure(t *testing.T) {
	llm := &fakeLLM{
		guardrailJSON: `{"score": 90, "reasoning": "ok"}`,
		streamErr:     errors.New("stream broke"),
	}

	state, events := runEngine(t, llm, nil, testOptions())

	assert.Equal(t, StatusFailed, state.Status)
	assert.Empty(t, state.FinalAnswer)

	types := eventTypes(events)
	assert.Contains(t, types, EventError)
}

func TestMergeChunksDeduplicates(t *testing.T) {
	state := NewState("q", "", nil)
	state.MergeChunks([]store.SearchResult{
		chunk("2301.00001", 0, 0.5),
		chunk("2301.00002", 0, 0.9),
	})
	state.MergeChunks([]store.SearchResult{
		chunk("2301.00001", 0, 0.8), // same key, higher score
		chunk("2301.00001", 1, 0.4),
	})

	require.Len(t, state.RelevantChunks, 3)
	assert.Equal(t, "2301.00002", state.RelevantChunks[0].ArxivID)
	assert.Equal(t, 0.9, state.RelevantChunks[0].Score)
	assert.Equal(t, 0.8, state.RelevantChunks[1].Score)
}

func TestBuildSourcesCollapsesPerPaper(t *testing.T) {
	state := NewState("q", "", nil)
	state.MergeChunks([]store.SearchResult{
		chunk("2301.00001", 0, 0.5),
		chunk("2301.00001", 1, 0.9),
		chunk("2301.00002", 0, 0.7),
	})

	sources := state.BuildSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "2301.00001", sources[0].ArxivID)
	assert.Equal(t, 0.9, sources[0].RelevanceScore)
	assert.Equal(t, "2301.00002", sources[1].ArxivID)
}

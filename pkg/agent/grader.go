package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
	"github.com/scholarag/scholarag/pkg/store"
)

var gradingSchema = &llms.StructuredOutputConfig{
	Name: "grading_result",
	Schema: &llms.JSONSchema{
		Type: "object",
		Properties: map[string]llms.JSONSchema{
			"relevant":  {Type: "boolean"},
			"reasoning": {Type: "string"},
		},
		Required:             []string{"relevant", "reasoning"},
		AdditionalProperties: llms.BoolPtr(false),
	},
}

type gradingReply struct {
	Relevant  bool   `json:"relevant"`
	Reasoning string `json:"reasoning"`
}

const maxGradingFeedback = 3

// runGrader judges each retrieved chunk against the query, in parallel.
// Chunks whose grading call fails are kept; dropping context on an LLM
// hiccup is worse than passing an irrelevant chunk to generation.
func (e *Engine) runGrader(ctx context.Context, state *State) string {
	e.emitter.EmitStatus(ctx, StepGrading, "Grading retrieved documents", nil)

	total := len(state.RelevantChunks)
	verdicts := make([]gradingReply, total)

	var wg sync.WaitGroup
	for i := range state.RelevantChunks {
		wg.Add(1)
		go func(i int, chunk store.SearchResult) {
			defer wg.Done()

			prompt := prompts.GradingPrompt(state.CurrentQuery, chunk.ChunkText)
			var reply gradingReply
			_, err := llms.GenerateInto(ctx,
				e.llm,
				[]llms.Message{llms.UserMessage(prompt)},
				gradingSchema,
				&llms.GenerateOptions{Temperature: float64Ptr(0)},
				&reply,
			)
			if err != nil {
				e.logger.Warn("chunk grading failed, keeping chunk",
					"arxiv_id", chunk.ArxivID, "error", err)
				reply = gradingReply{Relevant: true, Reasoning: "Grading unavailable"}
			}
			verdicts[i] = reply
		}(i, state.RelevantChunks[i])
	}
	wg.Wait()

	var kept []store.SearchResult
	var feedback []string
	for i, chunk := range state.RelevantChunks {
		verdict := verdicts[i]
		if verdict.Relevant {
			kept = append(kept, chunk)
		}
		if len(feedback) < maxGradingFeedback {
			label := "NOT RELEVANT"
			if verdict.Relevant {
				label = "RELEVANT"
			}
			feedback = append(feedback, fmt.Sprintf(
				"- Chunk from %s: %s - %s", chunk.ArxivID, label, verdict.Reasoning))
		}
	}

	state.RelevantChunks = kept
	state.graded = true
	state.gradingFeedback = feedback
	state.AddReasoningStep(fmt.Sprintf("Graded documents (%d/%d relevant)", len(kept), total))

	switch {
	case len(kept) >= e.opts.TopK:
		state.sufficientContext = true
		state.sufficientReason = "Sufficient relevant documents gathered"
		return NodeRouter
	case state.RetrievalAttempts >= e.opts.MaxRetrievalAttempts:
		state.sufficientContext = true
		state.sufficientReason = "Max attempts reached, proceeding with available documents"
		state.AddReasoningStep("Max attempts reached, proceeding with available documents")
		return NodeRouter
	default:
		return NodeRewriter
	}
}

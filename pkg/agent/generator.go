package agent

import (
	"context"
	"strings"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
)

const limitedSourcesNote = "Limited sources found. Acknowledge gaps if needed."

// runGenerator streams the final answer grounded in the gathered chunks.
// Sources go out before the first token so clients can render citations as
// the answer arrives.
func (e *Engine) runGenerator(ctx context.Context, state *State) string {
	e.emitter.EmitStatus(ctx, StepGeneration, "Generating answer", nil)

	state.Sources = state.BuildSources()
	e.emitter.EmitSources(ctx, state.Sources)

	// Only the top_k best chunks reach the prompt; the rest stay in state
	// for source attribution.
	contextChunks := state.RelevantChunks
	if len(contextChunks) > e.opts.TopK {
		contextChunks = contextChunks[:e.opts.TopK]
	}

	builder := prompts.NewBuilder(prompts.AnswerSystemPrompt).
		WithConversation(e.formatter, state.ConversationHistory).
		WithRetrievalContext(contextChunks).
		WithQuery(state.CurrentQuery).
		WithInstruction("Provide a detailed answer based on the context above. Cite sources.")

	if state.RetrievalAttempts >= e.opts.MaxRetrievalAttempts && len(contextChunks) < e.opts.TopK {
		builder.WithNote(limitedSourcesNote)
	}

	system, user := builder.Build()
	answer, err := e.streamCompletion(ctx, system, user, &llms.GenerateOptions{
		Temperature: e.opts.Temperature,
	})
	if err != nil {
		e.logger.Error("answer generation failed", "error", err)
		e.emitter.EmitError(ctx, "Failed to generate answer", "generation_failed")
		state.Status = StatusFailed
		return NodeEnd
	}

	state.FinalAnswer = answer
	state.AddReasoningStep("Generated answer with conversation context")
	state.Status = StatusCompleted
	return NodeEnd
}

// streamCompletion runs a streaming completion, forwarding each token as a
// content event, and returns the full text.
func (e *Engine) streamCompletion(ctx context.Context, system, user string, opts *llms.GenerateOptions) (string, error) {
	stream, err := e.llm.GenerateStreaming(ctx, []llms.Message{
		llms.SystemMessage(system),
		llms.UserMessage(user),
	}, opts)
	if err != nil {
		return "", err
	}

	var answer strings.Builder
	for chunk := range stream {
		switch chunk.Type {
		case llms.ChunkTypeText:
			answer.WriteString(chunk.Text)
			if !e.emitter.EmitContent(ctx, chunk.Text) {
				return "", ctx.Err()
			}
		case llms.ChunkTypeError:
			return "", chunk.Error
		}
	}

	return answer.String(), nil
}

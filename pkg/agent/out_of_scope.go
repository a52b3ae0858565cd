package agent

import (
	"context"
	"fmt"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
)

const outOfScopeFallback = "I focus on AI/ML research papers, so I can't help with that directly. Feel free to ask about machine learning models, architectures, or specific papers."

const (
	outOfScopeTemperature = 0.7
	outOfScopeMaxTokens   = 300
)

// runOutOfScope generates a short redirect for queries the guardrail
// rejected. If generation fails, a canned redirect is sent instead; the run
// still completes.
func (e *Engine) runOutOfScope(ctx context.Context, state *State) string {
	e.emitter.EmitStatus(ctx, StepOutOfScope, "Query outside research paper scope", nil)

	builder := prompts.NewBuilder(prompts.OutOfScopeSystemPrompt).
		WithConversation(e.formatter, state.ConversationHistory).
		WithQuery(state.CurrentQuery).
		WithQueryLabel("User message")

	if state.Guardrail != nil {
		builder.WithNote(fmt.Sprintf("Relevance score: %d/100", state.Guardrail.Score))
		if state.Guardrail.Reasoning != "" {
			builder.WithNote(fmt.Sprintf("Reason: %s", state.Guardrail.Reasoning))
		}
	}

	system, user := builder.Build()
	answer, err := e.streamCompletion(ctx, system, user, &llms.GenerateOptions{
		Temperature: float64Ptr(outOfScopeTemperature),
		MaxTokens:   outOfScopeMaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			state.Status = StatusFailed
			return NodeEnd
		}
		e.logger.Warn("out-of-scope response failed, using fallback", "error", err)
		answer = outOfScopeFallback
		e.emitter.EmitContent(ctx, answer)
	}

	state.FinalAnswer = answer
	state.AddReasoningStep("Redirected out-of-scope query")
	state.Status = StatusCompleted
	return NodeEnd
}

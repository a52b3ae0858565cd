package agent

import (
	"context"
	"fmt"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
)

var guardrailSchema = &llms.StructuredOutputConfig{
	Name: "guardrail_result",
	Schema: &llms.JSONSchema{
		Type: "object",
		Properties: map[string]llms.JSONSchema{
			"score":     {Type: "integer"},
			"reasoning": {Type: "string"},
		},
		Required:             []string{"score", "reasoning"},
		AdditionalProperties: llms.BoolPtr(false),
	},
}

type guardrailReply struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// runGuardrail scores the query's relevance to the corpus. A failed check
// lets the query through rather than blocking the user on an LLM outage.
func (e *Engine) runGuardrail(ctx context.Context, state *State) string {
	e.emitter.EmitStatus(ctx, StepGuardrail, "Validating query scope", nil)

	topicContext := e.formatter.FormatAsTopicContext(state.ConversationHistory)
	prompt := prompts.GuardrailPrompt(state.CurrentQuery, e.opts.GuardrailThreshold, topicContext)

	var reply guardrailReply
	_, err := llms.GenerateInto(ctx,
		e.llm,
		[]llms.Message{llms.UserMessage(prompt)},
		guardrailSchema,
		&llms.GenerateOptions{Temperature: float64Ptr(0)},
		&reply,
	)
	if err != nil {
		e.logger.Warn("guardrail check failed, allowing query", "error", err)
		state.Guardrail = &GuardrailResult{
			Score:     0,
			Reasoning: "Guardrail unavailable, query allowed",
			InScope:   true,
		}
		state.AddReasoningStep("Validated query scope (score: 0/100)")
		return NodeRouter
	}

	if reply.Score < 0 {
		reply.Score = 0
	}
	if reply.Score > 100 {
		reply.Score = 100
	}

	state.Guardrail = &GuardrailResult{
		Score:     reply.Score,
		Reasoning: reply.Reasoning,
		InScope:   reply.Score >= e.opts.GuardrailThreshold,
	}
	state.AddReasoningStep(fmt.Sprintf("Validated query scope (score: %d/100)", reply.Score))

	if !state.Guardrail.InScope {
		return NodeOutOfScope
	}
	return NodeRouter
}

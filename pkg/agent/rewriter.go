package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
)

var rewriteSchema = &llms.StructuredOutputConfig{
	Name: "rewrite_result",
	Schema: &llms.JSONSchema{
		Type: "object",
		Properties: map[string]llms.JSONSchema{
			"rewritten_query": {Type: "string"},
			"reason":          {Type: "string"},
		},
		Required:             []string{"rewritten_query", "reason"},
		AdditionalProperties: llms.BoolPtr(false),
	},
}

type rewriteReply struct {
	RewrittenQuery string `json:"rewritten_query"`
	Reason         string `json:"reason"`
}

// runRewriter reformulates the query using the grader's feedback, then
// hands back to the router for another retrieval pass. A failed rewrite
// keeps the current query.
func (e *Engine) runRewriter(ctx context.Context, state *State) string {
	prompt := prompts.RewritePrompt(state.OriginalQuery, state.CurrentQuery, state.gradingFeedback)

	var reply rewriteReply
	_, err := llms.GenerateInto(ctx,
		e.llm,
		[]llms.Message{llms.UserMessage(prompt)},
		rewriteSchema,
		&llms.GenerateOptions{Temperature: float64Ptr(0.5)},
		&reply,
	)
	if err != nil {
		e.logger.Warn("query rewrite failed, keeping current query", "error", err)
		return NodeRouter
	}

	rewritten := strings.TrimSpace(reply.RewrittenQuery)
	if rewritten == "" || rewritten == state.CurrentQuery {
		return NodeRouter
	}

	state.CurrentQuery = rewritten
	state.AddReasoningStep(fmt.Sprintf("Rewrote query: '%s'", rewritten))
	return NodeRouter
}

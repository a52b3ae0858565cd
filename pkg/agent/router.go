package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
)

var routerSchema = &llms.StructuredOutputConfig{
	Name: "router_decision",
	Schema: &llms.JSONSchema{
		Type: "object",
		Properties: map[string]llms.JSONSchema{
			"next_tool":       {Type: "string"},
			"tool_args":       {Type: "object", AdditionalProperties: llms.BoolPtr(true)},
			"rationale":       {Type: "string"},
			"should_generate": {Type: "boolean"},
		},
		Required: []string{"rationale", "should_generate"},
	},
}

// runRouter decides the next action: one more tool call or answer now. A
// failed decision falls through to generation so the run always terminates.
func (e *Engine) runRouter(ctx context.Context, state *State) string {
	e.emitter.EmitStatus(ctx, StepRouting, "Deciding next action", nil)

	decision := e.routeOnce(ctx, state)
	state.Router = decision

	action := "generate"
	tool := ""
	if !decision.ShouldGenerate {
		action = "call"
		tool = decision.NextTool
	}
	state.AddReasoningStep(strings.TrimSpace(fmt.Sprintf(
		"Router decision (iteration %d): %s %s", state.Iteration, action, tool)))

	if decision.ShouldGenerate || state.Iteration >= e.opts.MaxIterations {
		return NodeGenerator
	}
	state.Iteration++
	return NodeExecutor
}

func (e *Engine) routeOnce(ctx context.Context, state *State) *RouterDecision {
	// The grader already judged retrieval complete; no LLM call needed.
	if state.sufficientContext {
		state.sufficientContext = false
		return &RouterDecision{
			Rationale:      state.sufficientReason,
			ShouldGenerate: true,
		}
	}

	if state.Iteration >= e.opts.MaxIterations {
		return &RouterDecision{
			Rationale:      "Iteration budget exhausted",
			ShouldGenerate: true,
		}
	}

	prompt := prompts.RouterPrompt(
		state.CurrentQuery,
		e.toolDescriptions(),
		toolHistoryLines(state.ToolHistory),
		e.formatter.FormatForPrompt(state.ConversationHistory),
		e.opts.MaxIterations-state.Iteration,
	)

	var decision RouterDecision
	_, err := llms.GenerateInto(ctx,
		e.llm,
		[]llms.Message{
			llms.SystemMessage(prompts.RouterSystemPrompt),
			llms.UserMessage(prompt),
		},
		routerSchema,
		&llms.GenerateOptions{Temperature: float64Ptr(0)},
		&decision,
	)
	if err != nil {
		e.logger.Warn("router decision failed, generating with current context", "error", err)
		return &RouterDecision{
			Rationale:      "Routing unavailable, answering with gathered context",
			ShouldGenerate: true,
		}
	}

	if !decision.ShouldGenerate && decision.NextTool == "" {
		decision.ShouldGenerate = true
		decision.Rationale = "No tool selected, answering with gathered context"
	}
	return &decision
}

func (e *Engine) toolDescriptions() []prompts.ToolDescription {
	infos := e.tools.Infos()
	described := make([]prompts.ToolDescription, len(infos))
	for i, info := range infos {
		desc := prompts.ToolDescription{
			Name:        info.Name,
			Description: info.Description,
		}
		for _, p := range info.Parameters {
			desc.Parameters = append(desc.Parameters, prompts.ToolParameterDescription{
				Name:        p.Name,
				Type:        p.Type,
				Description: p.Description,
			})
		}
		described[i] = desc
	}
	return described
}

func toolHistoryLines(history []ToolExecution) []string {
	lines := make([]string, len(history))
	for i, exec := range history {
		outcome := "failed"
		if exec.Success {
			outcome = "ok"
		}
		detail := exec.Summary
		if detail == "" {
			detail = "no summary"
		}
		lines[i] = fmt.Sprintf("- %s (%s): %s", exec.ToolName, outcome, detail)
	}
	return lines
}

package agent

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/scholarag/scholarag/pkg/store"
)

const retrieveToolName = "retrieve_chunks"

// runExecutor performs the routed tool call. Retrieval success moves on to
// grading; anything else returns to the router, which sees the outcome in
// the tool history.
func (e *Engine) runExecutor(ctx context.Context, state *State) string {
	decision := state.Router
	if decision == nil || decision.NextTool == "" {
		return NodeRouter
	}

	e.emitter.EmitStatus(ctx, StepExecuting, fmt.Sprintf("Running %s", decision.NextTool), nil)

	args := decision.ToolArgs
	if args == nil {
		args = map[string]interface{}{}
	}
	if decision.NextTool == retrieveToolName {
		if _, ok := args["query"]; !ok {
			args["query"] = state.CurrentQuery
		}
		if _, ok := args["top_k"]; !ok {
			args["top_k"] = e.opts.TopK * 2
		}
	}

	if isRepeatCall(state.ToolHistory, decision.NextTool, args) {
		state.AddReasoningStep(fmt.Sprintf("Repeated tool call: %s", decision.NextTool))
	}

	startedAt := time.Now().UTC()
	result := e.tools.ExecuteTool(ctx, decision.NextTool, args)

	state.ToolHistory = append(state.ToolHistory, ToolExecution{
		ToolName:  decision.NextTool,
		Args:      args,
		Success:   result.Success,
		Summary:   toolOutcomeSummary(result.Summary, result.Error),
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
	})

	if !result.Success {
		e.logger.Warn("tool execution failed",
			"tool", decision.NextTool, "error", result.Error)
		return NodeRouter
	}

	if decision.NextTool == retrieveToolName {
		if chunks, ok := result.Data.([]store.SearchResult); ok && len(chunks) > 0 {
			state.MergeChunks(chunks)
			state.RetrievalAttempts++
			return NodeGrader
		}
	}

	return NodeRouter
}

// isRepeatCall reports whether a successful call with the same tool and
// args already happened this run.
func isRepeatCall(history []ToolExecution, name string, args map[string]interface{}) bool {
	for _, exec := range history {
		if exec.ToolName == name && exec.Success && reflect.DeepEqual(exec.Args, args) {
			return true
		}
	}
	return false
}

func toolOutcomeSummary(summary, errMessage string) string {
	if summary != "" {
		return summary
	}
	return errMessage
}

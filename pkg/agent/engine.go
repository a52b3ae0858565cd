package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scholarag/scholarag/pkg/config"
	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/observability"
	"github.com/scholarag/scholarag/pkg/prompts"
	"github.com/scholarag/scholarag/pkg/tools"
)

// Options are the per-run knobs, already validated by the caller.
type Options struct {
	TopK                 int
	GuardrailThreshold   int
	MaxRetrievalAttempts int
	MaxIterations        int
	ConversationWindow   int
	Temperature          *float64
}

func OptionsFromConfig(cfg *config.AgentConfig) Options {
	return Options{
		TopK:                 cfg.TopK,
		GuardrailThreshold:   cfg.GuardrailThreshold,
		MaxRetrievalAttempts: cfg.MaxRetrievalAttempts,
		MaxIterations:        cfg.MaxIterations,
		ConversationWindow:   cfg.ConversationWindow,
		Temperature:          cfg.Temperature,
	}
}

// Engine drives one query through the node graph:
//
//	START -> GUARDRAIL -> ROUTER <-> EXECUTOR -> GRADER -> REWRITER
//	                        |                                  |
//	                        v                                  v
//	                    GENERATOR                           ROUTER
//
// Out-of-scope queries branch from GUARDRAIL to OUT_OF_SCOPE. The engine
// owns transitions; nodes only mutate state and report where to go next.
type Engine struct {
	llm       llms.LLM
	tools     *tools.ToolRegistry
	formatter *prompts.ConversationFormatter
	emitter   *Emitter
	opts      Options
	logger    *slog.Logger
}

func NewEngine(llm llms.LLM, registry *tools.ToolRegistry, emitter *Emitter, opts Options) *Engine {
	return &Engine{
		llm:       llm,
		tools:     registry,
		formatter: prompts.NewConversationFormatter(opts.ConversationWindow),
		emitter:   emitter,
		opts:      opts,
		logger:    slog.Default().With("component", "agent"),
	}
}

// Run executes the state machine to completion. It returns the final state;
// a cancelled context stops the run with no terminal events.
func (e *Engine) Run(ctx context.Context, state *State) *State {
	startTime := time.Now()

	tracer := observability.GetTracer("scholarag.agent")
	ctx, span := tracer.Start(ctx, observability.SpanEngineRun,
		trace.WithAttributes(attribute.String(observability.AttrConversationID, state.SessionID)),
	)
	defer span.End()

	node := NodeGuardrail
	for node != NodeEnd {
		if ctx.Err() != nil {
			state.Status = StatusFailed
			break
		}
		node = e.step(ctx, node, state)
	}

	var runErr error
	if state.Status == StatusFailed {
		runErr = fmt.Errorf("agent run failed")
		span.SetStatus(codes.Error, "failed")
	} else {
		span.SetStatus(codes.Ok, "completed")
	}
	span.SetAttributes(
		attribute.String(observability.AttrEngineStatus, state.Status),
		attribute.Int("agent.iterations", state.Iteration),
	)
	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordEngineRun(ctx, state.Status, time.Since(startTime), state.Iteration, runErr)
	}

	return state
}

func (e *Engine) step(ctx context.Context, node string, state *State) string {
	tracer := observability.GetTracer("scholarag.agent")
	ctx, span := tracer.Start(ctx, observability.SpanEngineNode,
		trace.WithAttributes(attribute.String(observability.AttrNodeName, node)),
	)
	defer span.End()

	var next string
	switch node {
	case NodeGuardrail:
		next = e.runGuardrail(ctx, state)
	case NodeRouter:
		next = e.runRouter(ctx, state)
	case NodeExecutor:
		next = e.runExecutor(ctx, state)
	case NodeGrader:
		next = e.runGrader(ctx, state)
	case NodeRewriter:
		next = e.runRewriter(ctx, state)
	case NodeGenerator:
		next = e.runGenerator(ctx, state)
	case NodeOutOfScope:
		next = e.runOutOfScope(ctx, state)
	default:
		e.logger.Error("unknown node", "node", node)
		state.Status = StatusFailed
		next = NodeEnd
	}

	span.SetStatus(codes.Ok, "")
	return next
}

func float64Ptr(v float64) *float64 { return &v }

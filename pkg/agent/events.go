package agent

import "context"

// Event types streamed to the client.
const (
	EventStatus   = "status"
	EventContent  = "content"
	EventSources  = "sources"
	EventMetadata = "metadata"
	EventError    = "error"
	EventDone     = "done"
)

// Status steps reported during a run.
const (
	StepGuardrail  = "guardrail"
	StepRouting    = "routing"
	StepExecuting  = "executing"
	StepGrading    = "grading"
	StepGeneration = "generation"
	StepOutOfScope = "out_of_scope"
)

// Event is one streamed unit. Data is the event-type-specific payload.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StatusPayload announces a pipeline step.
type StatusPayload struct {
	Step    string                 `json:"step"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ContentPayload carries one answer token.
type ContentPayload struct {
	Token string `json:"token"`
}

// SourcesPayload lists the papers backing the answer. Sent before the first
// content token.
type SourcesPayload struct {
	Sources []Source `json:"sources"`
}

// MetadataPayload summarizes the run. Sent after content, before done.
type MetadataPayload struct {
	Query             string   `json:"query"`
	ExecutionTimeMs   int64    `json:"execution_time_ms"`
	RetrievalAttempts int      `json:"retrieval_attempts"`
	RewrittenQuery    string   `json:"rewritten_query,omitempty"`
	GuardrailScore    *int     `json:"guardrail_score,omitempty"`
	Provider          string   `json:"provider"`
	Model             string   `json:"model"`
	SessionID         string   `json:"session_id,omitempty"`
	TurnNumber        int      `json:"turn_number"`
	ReasoningSteps    []string `json:"reasoning_steps"`
}

// ErrorPayload reports a failure.
type ErrorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// DonePayload terminates the stream.
type DonePayload struct{}

// Emitter delivers events to the streaming consumer. Sends respect context
// cancellation so a disconnected client cannot block the engine.
type Emitter struct {
	ch chan Event
}

func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &Emitter{ch: make(chan Event, buffer)}
}

// Events is the consumer side of the stream.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Emit sends an event, returning false if ctx was cancelled first.
func (e *Emitter) Emit(ctx context.Context, event Event) bool {
	select {
	case e.ch <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Emitter) EmitStatus(ctx context.Context, step, message string, details map[string]interface{}) bool {
	return e.Emit(ctx, Event{Type: EventStatus, Data: StatusPayload{Step: step, Message: message, Details: details}})
}

func (e *Emitter) EmitContent(ctx context.Context, token string) bool {
	return e.Emit(ctx, Event{Type: EventContent, Data: ContentPayload{Token: token}})
}

func (e *Emitter) EmitSources(ctx context.Context, sources []Source) bool {
	if sources == nil {
		sources = []Source{}
	}
	return e.Emit(ctx, Event{Type: EventSources, Data: SourcesPayload{Sources: sources}})
}

func (e *Emitter) EmitError(ctx context.Context, message, code string) bool {
	return e.Emit(ctx, Event{Type: EventError, Data: ErrorPayload{Error: message, Code: code}})
}

// Close ends the stream. The engine closes the channel exactly once, after
// the final event.
func (e *Emitter) Close() {
	close(e.ch)
}

package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/store"
	"github.com/scholarag/scholarag/pkg/tools"
)

// ConversationStore is the persistence surface the service needs.
type ConversationStore interface {
	History(ctx context.Context, sessionID string, limit int) ([]store.ConversationTurn, error)
	SaveTurn(ctx context.Context, sessionID string, data *TurnData) (*store.ConversationTurn, error)
}

// TurnData aliases the store payload so callers only import this package.
type TurnData = store.TurnData

// Service runs queries end to end: resolve the provider, load history, run
// the engine, persist the turn, and emit the terminal events.
type Service struct {
	providers *llms.LLMRegistry
	tools     *tools.ToolRegistry
	store     ConversationStore
	defaults  Options
	logger    *slog.Logger
}

func NewService(providers *llms.LLMRegistry, registry *tools.ToolRegistry, conversations ConversationStore, defaults Options) *Service {
	return &Service{
		providers: providers,
		tools:     registry,
		store:     conversations,
		defaults:  defaults,
		logger:    slog.Default().With("component", "agent.service"),
	}
}

// Stream runs the request and returns the event stream. Errors returned
// here happened before any event was produced, so the caller can still send
// a plain HTTP error. The channel closes after the done event.
func (s *Service) Stream(ctx context.Context, req *StreamRequest) (<-chan Event, error) {
	req.ApplyDefaults(s.defaults)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	llm, err := s.providers.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}
	if req.Model != "" {
		llm = llm.WithModel(req.Model)
	}

	history, err := s.loadHistory(ctx, req.SessionID, req.ConversationWindow)
	if err != nil {
		return nil, err
	}

	emitter := NewEmitter(64)
	opts := req.Options(s.defaults)
	engine := NewEngine(llm, s.tools, emitter, opts)
	state := NewState(req.Query, req.SessionID, history)

	go func() {
		defer emitter.Close()

		startTime := time.Now()
		engine.Run(ctx, state)

		if ctx.Err() != nil {
			return
		}
		if state.Status == StatusFailed {
			emitter.Emit(ctx, Event{Type: EventDone, Data: DonePayload{}})
			return
		}

		turnNumber := s.persistTurn(ctx, emitter, state, llm)
		emitter.Emit(ctx, Event{Type: EventMetadata, Data: s.buildMetadata(state, llm, startTime, turnNumber)})
		emitter.Emit(ctx, Event{Type: EventDone, Data: DonePayload{}})
	}()

	return emitter.Events(), nil
}

// loadHistory returns the session's recent turns as chat messages, oldest
// first. An unknown or empty session yields empty history.
func (s *Service) loadHistory(ctx context.Context, sessionID string, window int) ([]llms.Message, error) {
	if sessionID == "" {
		return nil, nil
	}

	turns, err := s.store.History(ctx, sessionID, window)
	if err != nil {
		return nil, err
	}

	messages := make([]llms.Message, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			llms.UserMessage(turn.UserQuery),
			llms.AssistantMessage(turn.AgentResponse),
		)
	}
	return messages, nil
}

// persistTurn saves the completed turn and returns its number. Runs without
// a session are not persisted and report turn 0. A save failure after the
// answer has already streamed reports turn -1 alongside an error event.
func (s *Service) persistTurn(ctx context.Context, emitter *Emitter, state *State, llm llms.LLM) int {
	if state.SessionID == "" {
		return 0
	}

	data := &TurnData{
		UserQuery:         state.OriginalQuery,
		AgentResponse:     state.FinalAnswer,
		RetrievalAttempts: state.RetrievalAttempts,
		ReasoningSteps:    state.ReasoningSteps,
		Provider:          llm.ProviderName(),
		Model:             llm.ModelName(),
	}
	if state.Guardrail != nil {
		score := state.Guardrail.Score
		data.GuardrailScore = &score
	}
	if state.CurrentQuery != state.OriginalQuery {
		data.RewrittenQuery = state.CurrentQuery
	}
	if len(state.Sources) > 0 {
		if encoded, err := json.Marshal(state.Sources); err == nil {
			data.Sources = encoded
		}
	}

	turn, err := s.store.SaveTurn(ctx, state.SessionID, data)
	if err != nil {
		s.logger.Error("failed to persist turn",
			"session_id", state.SessionID, "error", err)
		emitter.EmitError(ctx, "Answer delivered but could not be saved to the conversation", "persistence_failed")
		return -1
	}
	return turn.TurnNumber
}

func (s *Service) buildMetadata(state *State, llm llms.LLM, startTime time.Time, turnNumber int) MetadataPayload {
	metadata := MetadataPayload{
		Query:             state.OriginalQuery,
		ExecutionTimeMs:   time.Since(startTime).Milliseconds(),
		RetrievalAttempts: state.RetrievalAttempts,
		Provider:          llm.ProviderName(),
		Model:             llm.ModelName(),
		SessionID:         state.SessionID,
		TurnNumber:        turnNumber,
		ReasoningSteps:    state.ReasoningSteps,
	}
	if state.CurrentQuery != state.OriginalQuery {
		metadata.RewrittenQuery = state.CurrentQuery
	}
	if state.Guardrail != nil {
		score := state.Guardrail.Score
		metadata.GuardrailScore = &score
	}
	if metadata.ReasoningSteps == nil {
		metadata.ReasoningSteps = []string{}
	}
	return metadata
}

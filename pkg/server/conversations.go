package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scholarag/scholarag/pkg/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type conversationSummaryResponse struct {
	SessionID string    `json:"session_id"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastQuery string    `json:"last_query,omitempty"`
}

type conversationListResponse struct {
	Total         int                           `json:"total"`
	Offset        int                           `json:"offset"`
	Limit         int                           `json:"limit"`
	Conversations []conversationSummaryResponse `json:"conversations"`
}

type turnResponse struct {
	TurnNumber        int             `json:"turn_number"`
	UserQuery         string          `json:"user_query"`
	AgentResponse     string          `json:"agent_response"`
	GuardrailScore    *int            `json:"guardrail_score,omitempty"`
	RetrievalAttempts int             `json:"retrieval_attempts"`
	RewrittenQuery    string          `json:"rewritten_query,omitempty"`
	Sources           json.RawMessage `json:"sources,omitempty"`
	ReasoningSteps    []string        `json:"reasoning_steps"`
	Provider          string          `json:"provider"`
	Model             string          `json:"model"`
	CreatedAt         time.Time       `json:"created_at"`
}

type conversationDetailResponse struct {
	SessionID string         `json:"session_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Turns     []turnResponse `json:"turns"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}

	summaries, total, err := s.store.ListConversations(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	response := conversationListResponse{
		Total:         total,
		Offset:        offset,
		Limit:         limit,
		Conversations: make([]conversationSummaryResponse, len(summaries)),
	}
	for i, summary := range summaries {
		response.Conversations[i] = conversationSummaryResponse{
			SessionID: summary.SessionID,
			TurnCount: summary.TurnCount,
			CreatedAt: summary.CreatedAt,
			UpdatedAt: summary.UpdatedAt,
			LastQuery: summary.LastQuery,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conversation, turns, err := s.store.Turns(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("failed to load conversation", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	response := conversationDetailResponse{
		SessionID: conversation.SessionID,
		CreatedAt: conversation.CreatedAt,
		UpdatedAt: conversation.UpdatedAt,
		Turns:     make([]turnResponse, len(turns)),
	}
	for i, turn := range turns {
		steps := turn.ReasoningSteps
		if steps == nil {
			steps = []string{}
		}
		response.Turns[i] = turnResponse{
			TurnNumber:        turn.TurnNumber,
			UserQuery:         turn.UserQuery,
			AgentResponse:     turn.AgentResponse,
			GuardrailScore:    turn.GuardrailScore,
			RetrievalAttempts: turn.RetrievalAttempts,
			RewrittenQuery:    turn.RewrittenQuery,
			Sources:           turn.Sources,
			ReasoningSteps:    steps,
			Provider:          turn.Provider,
			Model:             turn.Model,
			CreatedAt:         turn.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	deleted, err := s.store.DeleteConversation(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("failed to delete conversation", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    sessionID,
		"turns_deleted": deleted,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

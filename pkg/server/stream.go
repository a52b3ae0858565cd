package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/scholarag/scholarag/pkg/agent"
)

// handleStream runs a query and streams the agent's events over SSE. A
// client disconnect cancels the run through the request context; nothing is
// persisted for abandoned runs.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req agent.StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events, err := s.agent.Stream(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := NewSSEEncoder(w, flusher)
	for event := range events {
		if err := encoder.Encode(event); err != nil {
			// Client went away; the context cancellation stops the engine.
			s.logger.Debug("stream write failed", "error", err)
			return
		}
	}
}

// SSEEncoder writes agent events as server-sent events, one frame per
// event, flushed immediately so tokens reach the client as they arrive.
type SSEEncoder struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func NewSSEEncoder(w http.ResponseWriter, flusher http.Flusher) *SSEEncoder {
	return &SSEEncoder{w: w, flusher: flusher}
}

func (e *SSEEncoder) Encode(event agent.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

package agent

import (
	"fmt"
	"strings"
)

// StreamRequest is the body of a stream call. Zero-valued knobs take the
// configured defaults before validation.
type StreamRequest struct {
	Query                string   `json:"query"`
	Provider             string   `json:"provider,omitempty"`
	Model                string   `json:"model,omitempty"`
	TopK                 int      `json:"top_k,omitempty"`
	GuardrailThreshold   *int     `json:"guardrail_threshold,omitempty"`
	MaxRetrievalAttempts int      `json:"max_retrieval_attempts,omitempty"`
	Temperature          *float64 `json:"temperature,omitempty"`
	SessionID            string   `json:"session_id,omitempty"`
	ConversationWindow   int      `json:"conversation_window,omitempty"`
}

// ApplyDefaults fills unset knobs from the configured options.
func (r *StreamRequest) ApplyDefaults(defaults Options) {
	if r.TopK == 0 {
		r.TopK = defaults.TopK
	}
	if r.GuardrailThreshold == nil {
		threshold := defaults.GuardrailThreshold
		r.GuardrailThreshold = &threshold
	}
	if r.MaxRetrievalAttempts == 0 {
		r.MaxRetrievalAttempts = defaults.MaxRetrievalAttempts
	}
	if r.Temperature == nil {
		r.Temperature = defaults.Temperature
	}
	if r.ConversationWindow == 0 {
		r.ConversationWindow = defaults.ConversationWindow
	}
}

// Validate checks ranges after defaults are applied.
func (r *StreamRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	if r.Provider != "" && r.Provider != "openai" && r.Provider != "zai" {
		return fmt.Errorf("provider must be one of: openai, zai")
	}
	if r.TopK < 1 || r.TopK > 10 {
		return fmt.Errorf("top_k must be between 1 and 10")
	}
	if *r.GuardrailThreshold < 0 || *r.GuardrailThreshold > 100 {
		return fmt.Errorf("guardrail_threshold must be between 0 and 100")
	}
	if r.MaxRetrievalAttempts < 1 || r.MaxRetrievalAttempts > 5 {
		return fmt.Errorf("max_retrieval_attempts must be between 1 and 5")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if r.ConversationWindow < 1 || r.ConversationWindow > 10 {
		return fmt.Errorf("conversation_window must be between 1 and 10")
	}
	return nil
}

// Options builds engine options from the validated request.
func (r *StreamRequest) Options(defaults Options) Options {
	return Options{
		TopK:                 r.TopK,
		GuardrailThreshold:   *r.GuardrailThreshold,
		MaxRetrievalAttempts: r.MaxRetrievalAttempts,
		MaxIterations:        defaults.MaxIterations,
		ConversationWindow:   r.ConversationWindow,
		Temperature:          r.Temperature,
	}
}

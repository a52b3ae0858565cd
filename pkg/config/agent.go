package config

import "fmt"

// AgentConfig holds engine defaults. The stream request body may override
// provider, model, top_k, guardrail_threshold, max_retrieval_attempts,
// temperature, and conversation_window within the ranges validated here.
type AgentConfig struct {
	// TopK is the number of chunks surfaced to the generator.
	TopK int `yaml:"top_k,omitempty" json:"top_k,omitempty" jsonschema:"minimum=1,maximum=10,default=3"`

	// GuardrailThreshold is the minimum in-scope score (0-100).
	GuardrailThreshold int `yaml:"guardrail_threshold,omitempty" json:"guardrail_threshold,omitempty" jsonschema:"minimum=0,maximum=100,default=75"`

	// MaxRetrievalAttempts bounds retrieve->grade->rewrite rounds.
	MaxRetrievalAttempts int `yaml:"max_retrieval_attempts,omitempty" json:"max_retrieval_attempts,omitempty" jsonschema:"minimum=1,maximum=5,default=3"`

	// MaxIterations is the safety cap on router cycles.
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty" jsonschema:"minimum=1,default=10"`

	// ConversationWindow is the number of prior turns loaded as history.
	ConversationWindow int `yaml:"conversation_window,omitempty" json:"conversation_window,omitempty" jsonschema:"minimum=1,maximum=10,default=5"`

	// Temperature for answer generation. Out-of-scope replies always use 0.7.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"minimum=0,maximum=1,default=0.3"`
}

func (c *AgentConfig) SetDefaults() {
	if c.TopK == 0 {
		c.TopK = 3
	}
	if c.GuardrailThreshold == 0 {
		c.GuardrailThreshold = 75
	}
	if c.MaxRetrievalAttempts == 0 {
		c.MaxRetrievalAttempts = 3
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
	if c.ConversationWindow == 0 {
		c.ConversationWindow = 5
	}
	if c.Temperature == nil {
		c.Temperature = Float64Ptr(0.3)
	}
}

func (c *AgentConfig) Validate() error {
	if c.TopK < 1 || c.TopK > 10 {
		return fmt.Errorf("top_k must be between 1 and 10")
	}
	if c.GuardrailThreshold < 0 || c.GuardrailThreshold > 100 {
		return fmt.Errorf("guardrail_threshold must be between 0 and 100")
	}
	if c.MaxRetrievalAttempts < 1 || c.MaxRetrievalAttempts > 5 {
		return fmt.Errorf("max_retrieval_attempts must be between 1 and 5")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.ConversationWindow < 1 || c.ConversationWindow > 10 {
		return fmt.Errorf("conversation_window must be between 1 and 10")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	return nil
}

package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const reprompt = "The previous reply was not valid JSON matching the required schema. Respond with only the JSON object, no prose and no code fences."

// DecodeStructured parses a structured LLM reply into out. Models sometimes
// wrap JSON in markdown fences or lead with prose, so the payload is located
// by the outermost braces before decoding.
func DecodeStructured(raw string, out interface{}) error {
	payload := extractJSON(raw)
	if payload == "" {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to decode structured response: %w", err)
	}
	return nil
}

// GenerateInto runs a structured completion and decodes the reply into out.
// A reply that fails to parse is retried once with a corrective reprompt;
// the second failure is returned to the caller.
func GenerateInto(ctx context.Context, llm LLM, messages []Message, structConfig *StructuredOutputConfig, opts *GenerateOptions, out interface{}) (int, error) {
	raw, tokens, err := llm.GenerateStructured(ctx, messages, structConfig, opts)
	if err != nil {
		return tokens, err
	}

	firstErr := DecodeStructured(raw, out)
	if firstErr == nil {
		return tokens, nil
	}

	retryMessages := append(append([]Message{}, messages...),
		AssistantMessage(raw),
		UserMessage(reprompt),
	)

	raw, retryTokens, err := llm.GenerateStructured(ctx, retryMessages, structConfig, opts)
	tokens += retryTokens
	if err != nil {
		return tokens, err
	}

	if err := DecodeStructured(raw, out); err != nil {
		return tokens, fmt.Errorf("structured output failed after retry: %w", err)
	}
	return tokens, nil
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}

	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

package llms

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one unit of streamed LLM output.
type StreamChunk struct {
	Type   string
	Text   string
	Tokens int
	Error  error
}

const (
	ChunkTypeText  = "text"
	ChunkTypeDone  = "done"
	ChunkTypeError = "error"
)

// GenerateOptions carries per-call overrides. Nil fields fall back to the
// provider config.
type GenerateOptions struct {
	Temperature *float64
	MaxTokens   int
}

// StructuredOutputConfig requests schema-constrained JSON output.
type StructuredOutputConfig struct {
	// Name labels the schema in the response_format payload.
	Name string `json:"name,omitempty"`

	// Schema is a JSON Schema object, typically a *JSONSchema.
	Schema interface{} `json:"schema,omitempty"`
}

// JSONSchema builds schema maps without raw map literals at call sites.
type JSONSchema struct {
	Type                 string                `json:"type"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	Description          string                `json:"description,omitempty"`
	AdditionalProperties *bool                 `json:"additionalProperties,omitempty"`
}

// BoolPtr returns a pointer for optional schema fields.
func BoolPtr(v bool) *bool {
	return &v
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

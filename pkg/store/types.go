package store

import (
	"encoding/json"
	"time"
)

// Paper is arXiv paper metadata and parsed content.
type Paper struct {
	ID            string
	ArxivID       string
	Title         string
	Authors       []string
	Abstract      string
	Categories    []string
	PublishedDate time.Time
	PDFURL        string
	RawText       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is one retrievable unit of paper text with its embedding.
type Chunk struct {
	ID          string
	PaperID     string
	ArxivID     string
	ChunkText   string
	ChunkIndex  int
	SectionName string
	PageNumber  int
	WordCount   int
	Embedding   []float32
	CreatedAt   time.Time
}

// SearchResult is a chunk joined with its paper metadata. Score carries the
// branch score during vector and lexical search, and the normalized fused
// score after fusion.
type SearchResult struct {
	ChunkID       string   `json:"chunk_id"`
	PaperID       string   `json:"paper_id"`
	ArxivID       string   `json:"arxiv_id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	ChunkText     string   `json:"chunk_text"`
	ChunkIndex    int      `json:"chunk_index"`
	SectionName   string   `json:"section_name,omitempty"`
	PageNumber    int      `json:"page_number,omitempty"`
	Score         float64  `json:"score"`
	VectorScore   *float64 `json:"vector_score,omitempty"`
	TextScore     *float64 `json:"text_score,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	PDFURL        string   `json:"pdf_url,omitempty"`
}

// Conversation is a chat session.
type Conversation struct {
	ID        string
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationTurn is one completed query/response exchange. Turn numbers
// are dense and 0-based within a conversation.
type ConversationTurn struct {
	ID                string
	ConversationID    string
	TurnNumber        int
	UserQuery         string
	AgentResponse     string
	GuardrailScore    *int
	RetrievalAttempts int
	RewrittenQuery    string
	Sources           json.RawMessage
	ReasoningSteps    []string
	Provider          string
	Model             string
	CreatedAt         time.Time
}

// TurnData is the payload for saving a new turn. The turn number is
// assigned by the store.
type TurnData struct {
	UserQuery         string
	AgentResponse     string
	GuardrailScore    *int
	RetrievalAttempts int
	RewrittenQuery    string
	Sources           json.RawMessage
	ReasoningSteps    []string
	Provider          string
	Model             string
}

// ConversationSummary is one row of the conversation listing. LastQuery is
// truncated to 100 characters.
type ConversationSummary struct {
	SessionID string
	TurnCount int
	CreatedAt time.Time
	UpdatedAt time.Time
	LastQuery string
}

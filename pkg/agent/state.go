package agent

import (
	"sort"
	"time"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/store"
)

// Node names of the agent state machine.
const (
	NodeStart      = "START"
	NodeGuardrail  = "GUARDRAIL"
	NodeRouter     = "ROUTER"
	NodeExecutor   = "EXECUTOR"
	NodeGrader     = "GRADER"
	NodeRewriter   = "REWRITER"
	NodeGenerator  = "GENERATOR"
	NodeOutOfScope = "OUT_OF_SCOPE"
	NodeEnd        = "END"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// GuardrailResult is the scope validation outcome.
type GuardrailResult struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
	InScope   bool   `json:"in_scope"`
}

// RouterDecision is the routing step outcome.
type RouterDecision struct {
	NextTool       string                 `json:"next_tool,omitempty"`
	ToolArgs       map[string]interface{} `json:"tool_args,omitempty"`
	Rationale      string                 `json:"rationale"`
	ShouldGenerate bool                   `json:"should_generate"`
}

// ToolExecution records one tool call in the run.
type ToolExecution struct {
	ToolName  string                 `json:"tool_name"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Success   bool                   `json:"success"`
	Summary   string                 `json:"summary,omitempty"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   time.Time              `json:"ended_at"`
}

// Source is one cited paper in the final answer.
type Source struct {
	ArxivID           string   `json:"arxiv_id"`
	Title             string   `json:"title"`
	Authors           []string `json:"authors"`
	PDFURL            string   `json:"pdf_url"`
	RelevanceScore    float64  `json:"relevance_score"`
	PublishedDate     string   `json:"published_date,omitempty"`
	WasGradedRelevant *bool    `json:"was_graded_relevant,omitempty"`
}

// State is the shared state threaded through the agent nodes. Nodes mutate
// it in place; the engine owns sequencing so no locking is needed.
type State struct {
	OriginalQuery       string
	CurrentQuery        string
	ConversationHistory []llms.Message
	SessionID           string

	Guardrail   *GuardrailResult
	Router      *RouterDecision
	ToolHistory []ToolExecution

	RelevantChunks []store.SearchResult
	graded         bool

	Iteration         int
	RetrievalAttempts int
	Status            string

	ReasoningSteps []string
	FinalAnswer    string
	Sources        []Source

	// sufficientContext short-circuits the next router pass straight to
	// generation once the grader judges retrieval complete.
	sufficientContext bool
	sufficientReason  string

	// gradingFeedback carries per-chunk grading outcomes to the rewriter.
	gradingFeedback []string
}

func NewState(query, sessionID string, history []llms.Message) *State {
	return &State{
		OriginalQuery:       query,
		CurrentQuery:        query,
		SessionID:           sessionID,
		ConversationHistory: history,
		Status:              StatusRunning,
	}
}

func (s *State) AddReasoningStep(step string) {
	s.ReasoningSteps = append(s.ReasoningSteps, step)
}

// MergeChunks unions new chunks into the relevant set. Chunks are keyed by
// (arxiv_id, chunk_index); a duplicate keeps the higher score. The merged
// set is ordered by score descending.
func (s *State) MergeChunks(chunks []store.SearchResult) {
	type key struct {
		arxivID    string
		chunkIndex int
	}

	merged := make(map[key]store.SearchResult, len(s.RelevantChunks)+len(chunks))
	for _, c := range s.RelevantChunks {
		merged[key{c.ArxivID, c.ChunkIndex}] = c
	}
	for _, c := range chunks {
		k := key{c.ArxivID, c.ChunkIndex}
		if existing, ok := merged[k]; !ok || c.Score > existing.Score {
			merged[k] = c
		}
	}

	s.RelevantChunks = make([]store.SearchResult, 0, len(merged))
	for _, c := range merged {
		s.RelevantChunks = append(s.RelevantChunks, c)
	}
	sort.Slice(s.RelevantChunks, func(i, j int) bool {
		a, b := s.RelevantChunks[i], s.RelevantChunks[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ArxivID != b.ArxivID {
			return a.ArxivID < b.ArxivID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}

// BuildSources collapses the relevant chunks into one source per paper,
// keeping the paper's best chunk score, ordered by score descending.
func (s *State) BuildSources() []Source {
	byPaper := make(map[string]*Source)
	for _, c := range s.RelevantChunks {
		if existing, ok := byPaper[c.ArxivID]; ok {
			if c.Score > existing.RelevanceScore {
				existing.RelevanceScore = c.Score
			}
			continue
		}
		src := &Source{
			ArxivID:        c.ArxivID,
			Title:          c.Title,
			Authors:        c.Authors,
			PDFURL:         c.PDFURL,
			RelevanceScore: c.Score,
			PublishedDate:  c.PublishedDate,
		}
		if s.graded {
			graded := true
			src.WasGradedRelevant = &graded
		}
		byPaper[c.ArxivID] = src
	}

	sources := make([]Source, 0, len(byPaper))
	for _, src := range byPaper {
		sources = append(sources, *src)
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].RelevanceScore != sources[j].RelevanceScore {
			return sources[i].RelevanceScore > sources[j].RelevanceScore
		}
		return sources[i].ArxivID < sources[j].ArxivID
	})
	return sources
}

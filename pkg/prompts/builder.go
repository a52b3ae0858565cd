package prompts

import (
	"strings"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/store"
)

// Builder assembles a (system, user) prompt pair from fixed blocks. The
// user text order is always conversation, retrieved context, query, notes.
// Identical inputs produce byte-identical output.
type Builder struct {
	system       string
	conversation string
	context      string
	query        string
	queryLabel   string
	instruction  string
	notes        []string
}

func NewBuilder(system string) *Builder {
	return &Builder{system: system, queryLabel: "Question"}
}

func (b *Builder) WithConversation(formatter *ConversationFormatter, history []llms.Message) *Builder {
	b.conversation = formatter.FormatForPrompt(history)
	return b
}

// WithRetrievalContext formats chunks as "[arxiv_id] title\nchunk_text"
// blocks joined by blank lines.
func (b *Builder) WithRetrievalContext(chunks []store.SearchResult) *Builder {
	if len(chunks) == 0 {
		return b
	}

	blocks := make([]string, len(chunks))
	for i, chunk := range chunks {
		blocks[i] = "[" + chunk.ArxivID + "] " + chunk.Title + "\n" + chunk.ChunkText
	}
	b.context = "Context from research papers:\n" + strings.Join(blocks, "\n\n")
	return b
}

func (b *Builder) WithQuery(query string) *Builder {
	b.query = query
	return b
}

// WithQueryLabel overrides the default "Question" label.
func (b *Builder) WithQueryLabel(label string) *Builder {
	b.queryLabel = label
	return b
}

func (b *Builder) WithNote(note string) *Builder {
	b.notes = append(b.notes, note)
	return b
}

// WithInstruction appends a closing instruction after the query and notes.
func (b *Builder) WithInstruction(instruction string) *Builder {
	b.instruction = instruction
	return b
}

func (b *Builder) Build() (string, string) {
	var sections []string

	if b.conversation != "" {
		sections = append(sections, b.conversation)
	}
	if b.context != "" {
		sections = append(sections, b.context)
	}
	if b.query != "" {
		sections = append(sections, b.queryLabel+": "+b.query)
	}
	for _, note := range b.notes {
		sections = append(sections, "Note: "+note)
	}
	if b.instruction != "" {
		sections = append(sections, b.instruction)
	}

	return b.system, strings.Join(sections, "\n\n")
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scholarag/scholarag/pkg/llms"
	"github.com/scholarag/scholarag/pkg/prompts"
	"github.com/scholarag/scholarag/pkg/store"
)

// PaperGetter is the paper lookup surface the summarize tool needs.
type PaperGetter interface {
	GetPaperByArxivID(ctx context.Context, arxivID string) (*store.Paper, error)
}

// SummarizePaperTool produces a short abstract summary for a paper already
// in the knowledge base.
type SummarizePaperTool struct {
	papers PaperGetter
	llm    llms.LLM
}

func NewSummarizePaperTool(papers PaperGetter, llm llms.LLM) *SummarizePaperTool {
	return &SummarizePaperTool{papers: papers, llm: llm}
}

func (t *SummarizePaperTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "summarize_paper",
		Description: "Generate a concise 2-3 sentence summary of a paper's abstract. Use when the user wants a quick overview of what a paper is about. Only works for papers in the knowledge base.",
		Parameters: []ToolParameter{
			{
				Name:        "arxiv_id",
				Type:        "string",
				Description: "arXiv ID of the paper to summarize (e.g., '2301.00001')",
				Required:    true,
			},
		},
	}
}

func (t *SummarizePaperTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	arxivID := argString(args, "arxiv_id", "")
	if arxivID == "" {
		return failure("summarize_paper", "arxiv_id must not be empty")
	}

	paper, err := t.papers.GetPaperByArxivID(ctx, arxivID)
	if errors.Is(err, store.ErrNotFound) {
		return failure("summarize_paper", fmt.Sprintf("Paper %s not found in knowledge base", arxivID))
	}
	if err != nil {
		return failure("summarize_paper", fmt.Sprintf("failed to load paper: %v", err))
	}

	temperature := 0.3
	summary, _, err := t.llm.Generate(ctx,
		[]llms.Message{llms.UserMessage(prompts.SummarizePrompt(paper.Title, paper.Abstract))},
		&llms.GenerateOptions{Temperature: &temperature, MaxTokens: 200},
	)
	if err != nil {
		return failure("summarize_paper", fmt.Sprintf("summary generation failed: %v", err))
	}

	return ToolResult{
		Success: true,
		Data: map[string]interface{}{
			"arxiv_id": paper.ArxivID,
			"title":    paper.Title,
			"summary":  strings.TrimSpace(summary),
		},
		Summary: fmt.Sprintf("Summarized %s", paper.ArxivID),
	}
}

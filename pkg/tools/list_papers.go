package tools

import (
	"context"
	"fmt"

	"github.com/scholarag/scholarag/pkg/store"
)

// ListPapersTool enumerates the ingested corpus so the agent can answer
// "what papers do you have" style questions.
type ListPapersTool struct {
	store *store.Store
}

func NewListPapersTool(s *store.Store) *ListPapersTool {
	return &ListPapersTool{store: s}
}

func (t *ListPapersTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "list_papers",
		Description: "List papers currently available in the database, newest first.",
		Parameters: []ToolParameter{
			{
				Name:        "limit",
				Type:        "integer",
				Description: "Maximum number of papers to return",
				Default:     20,
			},
			{
				Name:        "offset",
				Type:        "integer",
				Description: "Number of papers to skip",
				Default:     0,
			},
		},
	}
}

func (t *ListPapersTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	limit := argInt(args, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := argInt(args, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	papers, total, err := t.store.ListPapers(ctx, offset, limit)
	if err != nil {
		return failure("list_papers", fmt.Sprintf("failed to list papers: %v", err))
	}

	items := make([]map[string]interface{}, len(papers))
	for i, p := range papers {
		items[i] = map[string]interface{}{
			"arxiv_id":       p.ArxivID,
			"title":          p.Title,
			"authors":        p.Authors,
			"categories":     p.Categories,
			"published_date": p.PublishedDate.Format("2006-01-02"),
			"pdf_url":        p.PDFURL,
		}
	}

	return ToolResult{
		Success: true,
		Data: map[string]interface{}{
			"total":  total,
			"papers": items,
		},
		Summary: fmt.Sprintf("Listed %d of %d papers", len(items), total),
	}
}

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarag/scholarag/pkg/store"
)

const (
	defaultArxivResults = 5
	maxArxivResults     = 10
	abstractPreviewLen  = 500
)

// ArxivSearcher is the arXiv query surface the search tool needs.
type ArxivSearcher interface {
	Search(ctx context.Context, query string, maxResults int, categories []string) ([]store.Paper, error)
}

// ArxivSearchTool searches arXiv for paper metadata without ingesting
// anything, so the agent can explore what exists before deciding to ingest.
type ArxivSearchTool struct {
	client ArxivSearcher
}

func NewArxivSearchTool(client ArxivSearcher) *ArxivSearchTool {
	return &ArxivSearchTool{client: client}
}

func (t *ArxivSearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "arxiv_search",
		Description: "Search arXiv for papers matching a query. Returns metadata only without downloading or processing. Use when the user wants to find papers on arXiv or explore what is available before deciding to ingest.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Search query for arXiv (e.g., 'transformer attention mechanism')",
				Required:    true,
			},
			{
				Name:        "max_results",
				Type:        "number",
				Description: "Maximum papers to return (1-10)",
				Default:     defaultArxivResults,
			},
			{
				Name:        "categories",
				Type:        "array",
				Description: "Filter by arXiv categories (e.g., ['cs.LG', 'cs.AI'])",
			},
			{
				Name:        "start_date",
				Type:        "string",
				Description: "Papers published after (YYYY-MM-DD)",
			},
			{
				Name:        "end_date",
				Type:        "string",
				Description: "Papers published before (YYYY-MM-DD)",
			},
		},
	}
}

func (t *ArxivSearchTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	query := argString(args, "query", "")
	if query == "" {
		return failure("arxiv_search", "query must not be empty")
	}

	maxResults := argInt(args, "max_results", defaultArxivResults)
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > maxArxivResults {
		maxResults = maxArxivResults
	}

	startDate, err := parseDateArg(args, "start_date")
	if err != nil {
		return failure("arxiv_search", err.Error())
	}
	endDate, err := parseDateArg(args, "end_date")
	if err != nil {
		return failure("arxiv_search", err.Error())
	}

	papers, err := t.client.Search(ctx, query, maxResults, argStringSlice(args, "categories"))
	if err != nil {
		return failure("arxiv_search", fmt.Sprintf("arxiv search failed: %v", err))
	}

	items := make([]map[string]interface{}, 0, len(papers))
	for _, p := range papers {
		if !startDate.IsZero() && p.PublishedDate.Before(startDate) {
			continue
		}
		if !endDate.IsZero() && p.PublishedDate.After(endDate) {
			continue
		}

		abstract := p.Abstract
		if len(abstract) > abstractPreviewLen {
			abstract = abstract[:abstractPreviewLen] + "..."
		}
		items = append(items, map[string]interface{}{
			"arxiv_id":       p.ArxivID,
			"title":          p.Title,
			"authors":        p.Authors,
			"abstract":       abstract,
			"categories":     p.Categories,
			"published_date": p.PublishedDate.Format("2006-01-02"),
			"pdf_url":        p.PDFURL,
		})
	}

	return ToolResult{
		Success: true,
		Data: map[string]interface{}{
			"count":  len(items),
			"papers": items,
		},
		Summary: fmt.Sprintf("Found %d papers on arXiv", len(items)),
	}
}

func parseDateArg(args map[string]interface{}, name string) (time.Time, error) {
	raw := argString(args, name, "")
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD: %q", name, raw)
	}
	return parsed, nil
}

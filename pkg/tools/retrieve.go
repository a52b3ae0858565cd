package tools

import (
	"context"
	"fmt"

	"github.com/scholarag/scholarag/pkg/search"
	"github.com/scholarag/scholarag/pkg/store"
)

// RetrieveTool runs hybrid search over the paper corpus.
type RetrieveTool struct {
	service     *search.Service
	defaultTopK int
}

func NewRetrieveTool(service *search.Service, defaultTopK int) *RetrieveTool {
	if defaultTopK <= 0 {
		defaultTopK = 6
	}
	return &RetrieveTool{service: service, defaultTopK: defaultTopK}
}

func (t *RetrieveTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "retrieve_chunks",
		Description: "Search the research paper database for chunks relevant to a query. Combines semantic and keyword search.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "The search query",
				Required:    true,
			},
			{
				Name:        "top_k",
				Type:        "integer",
				Description: "Number of chunks to retrieve",
				Default:     t.defaultTopK,
			},
			{
				Name:        "categories",
				Type:        "array",
				Description: "Restrict to arXiv categories, e.g. cs.LG",
			},
		},
	}
}

func (t *RetrieveTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	query := argString(args, "query", "")
	if query == "" {
		return failure("retrieve_chunks", "query must not be empty")
	}
	topK := argInt(args, "top_k", t.defaultTopK)

	var filters *store.SearchFilters
	if categories := argStringSlice(args, "categories"); len(categories) > 0 {
		filters = &store.SearchFilters{Categories: categories}
	}

	results, err := t.service.Search(ctx, query, topK, search.ModeHybrid, filters)
	if err != nil {
		return failure("retrieve_chunks", fmt.Sprintf("search failed: %v", err))
	}
	if len(results) == 0 {
		return failure("retrieve_chunks", "no chunks found for query")
	}

	return ToolResult{
		Success: true,
		Data:    results,
		Summary: fmt.Sprintf("Retrieved %d chunks", len(results)),
	}
}

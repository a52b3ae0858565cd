package tools

import (
	"context"
	"fmt"
)

// Ingester pulls papers from arXiv into the local store. Implemented by the
// ingest service.
type Ingester interface {
	IngestByIDs(ctx context.Context, arxivIDs []string) (int, error)
}

// IngestTool lets the agent pull specific papers into the corpus on demand.
type IngestTool struct {
	ingester Ingester
}

func NewIngestTool(ingester Ingester) *IngestTool {
	return &IngestTool{ingester: ingester}
}

func (t *IngestTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "ingest_papers",
		Description: "Fetch papers from arXiv by ID and add them to the database so they become searchable.",
		Parameters: []ToolParameter{
			{
				Name:        "arxiv_ids",
				Type:        "array",
				Description: "arXiv identifiers to ingest, e.g. 1706.03762",
				Required:    true,
			},
		},
	}
}

func (t *IngestTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	ids := argStringSlice(args, "arxiv_ids")
	if len(ids) == 0 {
		return failure("ingest_papers", "arxiv_ids must not be empty")
	}
	if len(ids) > 10 {
		return failure("ingest_papers", "at most 10 papers per ingest call")
	}

	ingested, err := t.ingester.IngestByIDs(ctx, ids)
	if err != nil {
		return failure("ingest_papers", fmt.Sprintf("ingest failed: %v", err))
	}

	return ToolResult{
		Success: true,
		Data:    map[string]interface{}{"ingested": ingested},
		Summary: fmt.Sprintf("Ingested %d papers", ingested),
	}
}

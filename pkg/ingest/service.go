package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholarag/scholarag/pkg/embedders"
	"github.com/scholarag/scholarag/pkg/store"
)

// Service pulls papers from arXiv, chunks and embeds their text, and writes
// the result to the store.
type Service struct {
	arxiv    *ArxivClient
	chunker  *Chunker
	embedder embedders.Embedder
	store    *store.Store
	logger   *slog.Logger
}

func NewService(arxiv *ArxivClient, chunker *Chunker, embedder embedders.Embedder, st *store.Store) *Service {
	return &Service{
		arxiv:    arxiv,
		chunker:  chunker,
		embedder: embedder,
		store:    st,
		logger:   slog.Default().With("component", "ingest"),
	}
}

// IngestByIDs fetches and indexes the given papers, returning how many were
// ingested. Papers that fail individually are skipped; the call fails only
// when nothing could be ingested.
func (s *Service) IngestByIDs(ctx context.Context, arxivIDs []string) (int, error) {
	papers, err := s.arxiv.FetchByIDs(ctx, arxivIDs)
	if err != nil {
		return 0, err
	}
	if len(papers) == 0 {
		return 0, fmt.Errorf("no papers found for ids %v", arxivIDs)
	}

	ingested := 0
	var lastErr error
	for i := range papers {
		if err := s.ingestPaper(ctx, &papers[i]); err != nil {
			s.logger.Error("paper ingest failed",
				"arxiv_id", papers[i].ArxivID, "error", err)
			lastErr = err
			continue
		}
		ingested++
		s.logger.Info("paper ingested", "arxiv_id", papers[i].ArxivID)
	}

	if ingested == 0 {
		return 0, fmt.Errorf("all papers failed to ingest: %w", lastErr)
	}
	return ingested, nil
}

func (s *Service) ingestPaper(ctx context.Context, paper *store.Paper) error {
	// The indexed text is the title plus abstract; full PDF text lands in
	// RawText when a parse pipeline supplies it.
	text := paper.Title + ". " + paper.Abstract
	if paper.RawText != "" {
		text = paper.RawText
	}

	textChunks := s.chunker.Split(text)
	if len(textChunks) == 0 {
		return fmt.Errorf("paper has no text to index")
	}

	texts := make([]string, len(textChunks))
	for i, tc := range textChunks {
		texts[i] = tc.Text
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(textChunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(textChunks))
	}

	paperID, err := s.store.UpsertPaper(ctx, paper)
	if err != nil {
		return err
	}

	chunks := make([]store.Chunk, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = store.Chunk{
			PaperID:    paperID,
			ArxivID:    paper.ArxivID,
			ChunkText:  tc.Text,
			ChunkIndex: tc.Index,
			WordCount:  tc.WordCount,
			Embedding:  embeddings[i],
		}
	}
	return s.store.ReplaceChunks(ctx, paperID, chunks)
}

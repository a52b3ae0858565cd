package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarag/scholarag/pkg/store"
)

type fakeSearcher struct {
	vector     []store.SearchResult
	lexical    []store.SearchResult
	vectorErr  error
	lexicalErr error

	vectorDepth  int
	lexicalDepth int
}

func (f *fakeSearcher) VectorSearch(ctx context.Context, embedding []float32, topK int, minScore float64, filters *store.SearchFilters) ([]store.SearchResult, error) {
	f.vectorDepth = topK
	return f.vector, f.vectorErr
}

func (f *fakeSearcher) LexicalSearch(ctx context.Context, query string, topK int, filters *store.SearchFilters) ([]store.SearchResult, error) {
	f.lexicalDepth = topK
	return f.lexical, f.lexicalErr
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }

func result(chunkID, arxivID string, index int) store.SearchResult {
	return store.SearchResult{
		ChunkID:    chunkID,
		ArxivID:    arxivID,
		ChunkIndex: index,
		Title:      "paper " + arxivID,
	}
}

func TestHybridSearchFusesBothBranches(t *testing.T) {
	searcher := &fakeSearcher{
		vector: []store.SearchResult{
			result("c1", "2301.00001", 0),
			result("c2", "2301.00002", 0),
		},
		lexical: []store.SearchResult{
			result("c2", "2301.00002", 0),
			result("c3", "2301.00003", 0),
		},
	}
	svc := NewService(searcher, &fakeEmbedder{}, 60, 0)

	results, err := svc.Search(context.Background(), "attention", 3, ModeHybrid, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// c2 appears in both branches so it fuses highest.
	assert.Equal(t, "c2", results[0].ChunkID)
	assert.Equal(t, 1.0, results[0].Score)

	// Remaining scores are normalized against the top fused score.
	for _, r := range results[1:] {
		assert.Less(t, r.Score, 1.0)
		assert.Greater(t, r.Score, 0.0)
	}
}

func TestHybridSearchBranchDepth(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewService(searcher, &fakeEmbedder{}, 60, 0)

	_, err := svc.Search(context.Background(), "q", 3, ModeHybrid, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, searcher.vectorDepth)
	assert.Equal(t, 50, searcher.lexicalDepth)

	_, err = svc.Search(context.Background(), "q", 8, ModeHybrid, nil)
	require.NoError(t, err)
	assert.Equal(t, 80, searcher.vectorDepth)
}

func TestFuseTieBreaksByVectorRank(t *testing.T) {
	// a and b tie on fused score: a is vector rank 1, b is lexical rank 1.
	svc := NewService(nil, nil, 60, 0)
	fused := svc.fuse(
		[]store.SearchResult{result("a", "2301.00001", 0)},
		[]store.SearchResult{result("b", "2301.00002", 0)},
		2,
	)
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ChunkID)
	assert.Equal(t, "b", fused[1].ChunkID)
}

func TestFuseHigherRankScoresHigher(t *testing.T) {
	svc := NewService(nil, nil, 60, 0)
	fused := svc.fuse(
		[]store.SearchResult{
			result("a", "2301.00001", 0),
			result("b", "2301.00002", 0),
			result("c", "2301.00003", 0),
		},
		nil,
		3,
	)
	require.Len(t, fused, 3)
	assert.Equal(t, "a", fused[0].ChunkID)
	assert.True(t, fused[0].Score > fused[1].Score)
	assert.True(t, fused[1].Score > fused[2].Score)
}

func TestFuseEmptyBranchesYieldNoResults(t *testing.T) {
	svc := NewService(nil, nil, 60, 0)
	assert.Nil(t, svc.fuse(nil, nil, 5))
}

func TestFuseTruncatesToTopK(t *testing.T) {
	var vector []store.SearchResult
	for i := 0; i < 10; i++ {
		vector = append(vector, result(fmt.Sprintf("c%d", i), fmt.Sprintf("2301.%05d", i), 0))
	}
	svc := NewService(nil, nil, 60, 0)
	fused := svc.fuse(vector, nil, 3)
	assert.Len(t, fused, 3)
}

func TestVectorSearchWrapsEmbeddingFailure(t *testing.T) {
	svc := NewService(&fakeSearcher{}, &fakeEmbedder{err: errors.New("boom")}, 60, 0)

	_, err := svc.Search(context.Background(), "q", 3, ModeVector, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestSearchUnknownMode(t *testing.T) {
	svc := NewService(&fakeSearcher{}, &fakeEmbedder{}, 60, 0)
	_, err := svc.Search(context.Background(), "q", 3, "fuzzy", nil)
	assert.Error(t, err)
}

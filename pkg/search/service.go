package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scholarag/scholarag/pkg/embedders"
	"github.com/scholarag/scholarag/pkg/observability"
	"github.com/scholarag/scholarag/pkg/store"
)

// Search modes.
const (
	ModeVector  = "vector"
	ModeLexical = "lexical"
	ModeHybrid  = "hybrid"
)

const minBranchDepth = 50

// ErrEmbeddingUnavailable is returned when the query embedding cannot be
// computed.
var ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

// Searcher is the store surface the service needs.
type Searcher interface {
	VectorSearch(ctx context.Context, embedding []float32, topK int, minScore float64, filters *store.SearchFilters) ([]store.SearchResult, error)
	LexicalSearch(ctx context.Context, query string, topK int, filters *store.SearchFilters) ([]store.SearchResult, error)
}

// Service runs hybrid retrieval: a vector branch and a lexical branch fused
// with Reciprocal Rank Fusion.
type Service struct {
	searcher Searcher
	embedder embedders.Embedder
	rrfK     int
	minScore float64
}

func NewService(searcher Searcher, embedder embedders.Embedder, rrfK int, minScore float64) *Service {
	if rrfK <= 0 {
		rrfK = 60
	}
	return &Service{
		searcher: searcher,
		embedder: embedder,
		rrfK:     rrfK,
		minScore: minScore,
	}
}

// Search runs retrieval in the given mode and returns at most topK results.
// Hybrid fused scores are normalized into [0,1] by the top fused score.
func (s *Service) Search(ctx context.Context, query string, topK int, mode string, filters *store.SearchFilters) ([]store.SearchResult, error) {
	startTime := time.Now()

	tracer := observability.GetTracer("scholarag.search")
	ctx, span := tracer.Start(ctx, observability.SpanHybridSearch,
		trace.WithAttributes(
			attribute.String("search.mode", mode),
			attribute.Int("search.top_k", topK),
		),
	)
	defer span.End()

	var results []store.SearchResult
	var err error

	switch mode {
	case ModeVector:
		results, err = s.vectorSearch(ctx, query, topK, filters)
	case ModeLexical:
		results, err = s.searcher.LexicalSearch(ctx, query, topK, filters)
	case ModeHybrid, "":
		results, err = s.hybridSearch(ctx, query, topK, filters)
	default:
		err = fmt.Errorf("unknown search mode: %s", mode)
	}

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordSearch(ctx, time.Since(startTime), len(results), err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int(observability.AttrSearchResults, len(results)))
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

func (s *Service) vectorSearch(ctx context.Context, query string, topK int, filters *store.SearchFilters) ([]store.SearchResult, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	return s.searcher.VectorSearch(ctx, embedding, topK, s.minScore, filters)
}

func (s *Service) hybridSearch(ctx context.Context, query string, topK int, filters *store.SearchFilters) ([]store.SearchResult, error) {
	depth := topK * 10
	if depth < minBranchDepth {
		depth = minBranchDepth
	}

	vectorResults, err := s.vectorSearch(ctx, query, depth, filters)
	if err != nil {
		return nil, err
	}

	lexicalResults, err := s.searcher.LexicalSearch(ctx, query, depth, filters)
	if err != nil {
		return nil, err
	}

	return s.fuse(vectorResults, lexicalResults, topK), nil
}

type fusedResult struct {
	result      store.SearchResult
	score       float64
	vectorRank  int // 1-based, 0 = absent from branch
	lexicalRank int
}

// fuse combines the two branch rankings with Reciprocal Rank Fusion:
// each appearance at 1-based rank r contributes 1/(k + r). Ties break by
// lower vector rank, then lower lexical rank, then arxiv_id. The surviving
// scores are normalized by the top fused score.
func (s *Service) fuse(vectorResults, lexicalResults []store.SearchResult, topK int) []store.SearchResult {
	fused := make(map[string]*fusedResult)

	for i, r := range vectorResults {
		rank := i + 1
		fused[r.ChunkID] = &fusedResult{
			result:     r,
			score:      1.0 / float64(s.rrfK+rank),
			vectorRank: rank,
		}
	}

	for i, r := range lexicalResults {
		rank := i + 1
		if f, ok := fused[r.ChunkID]; ok {
			f.score += 1.0 / float64(s.rrfK+rank)
			f.lexicalRank = rank
			if f.result.TextScore == nil {
				f.result.TextScore = r.TextScore
			}
		} else {
			fused[r.ChunkID] = &fusedResult{
				result:      r,
				score:       1.0 / float64(s.rrfK+rank),
				lexicalRank: rank,
			}
		}
	}

	ranked := make([]*fusedResult, 0, len(fused))
	for _, f := range fused {
		ranked = append(ranked, f)
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if ar, br := branchRankKey(a.vectorRank), branchRankKey(b.vectorRank); ar != br {
			return ar < br
		}
		if ar, br := branchRankKey(a.lexicalRank), branchRankKey(b.lexicalRank); ar != br {
			return ar < br
		}
		return a.result.ArxivID < b.result.ArxivID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	if len(ranked) == 0 || ranked[0].score == 0 {
		return nil
	}

	top := ranked[0].score
	results := make([]store.SearchResult, len(ranked))
	for i, f := range ranked {
		f.result.Score = f.score / top
		results[i] = f.result
	}
	return results
}

// branchRankKey orders absent-from-branch (rank 0) after any real rank.
func branchRankKey(rank int) int {
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// SearchFilters restricts search branches to a subset of the corpus. Zero
// values mean no restriction.
type SearchFilters struct {
	Categories      []string
	ArxivIDs        []string
	PublishedAfter  *time.Time
	PublishedBefore *time.Time
}

func (f *SearchFilters) clauses(startIndex int) (string, []interface{}) {
	if f == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}
	next := startIndex

	if len(f.Categories) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.categories::jsonb ?| $%d", next))
		args = append(args, pq.Array(f.Categories))
		next++
	}
	if len(f.ArxivIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("c.arxiv_id = ANY($%d)", next))
		args = append(args, pq.Array(f.ArxivIDs))
		next++
	}
	if f.PublishedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("p.published_date >= $%d", next))
		args = append(args, *f.PublishedAfter)
		next++
	}
	if f.PublishedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("p.published_date <= $%d", next))
		args = append(args, *f.PublishedBefore)
		next++
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conditions, " AND "), args
}

// VectorSearch runs cosine similarity search over chunk embeddings and
// returns results ordered by similarity. Scores are 1 - cosine distance.
func (s *Store) VectorSearch(ctx context.Context, embedding []float32, topK int, minScore float64, filters *SearchFilters) ([]SearchResult, error) {
	if s.dialect != "postgres" {
		return nil, ErrIndexUnavailable
	}

	filterSQL, filterArgs := filters.clauses(4)
	query := fmt.Sprintf(`
SELECT c.id, c.paper_id, c.arxiv_id, p.title, p.authors, c.chunk_text,
       c.chunk_index, c.section_name, c.page_number,
       1 - (c.embedding <=> $1) AS score,
       p.published_date, p.pdf_url
FROM chunks c
JOIN papers p ON c.paper_id = p.id
WHERE 1 - (c.embedding <=> $1) >= $2%s
ORDER BY c.embedding <=> $1
LIMIT $3`, filterSQL)

	args := append([]interface{}{pgvector.NewVector(embedding), minScore, topK}, filterArgs...)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	results, err := scanSearchResults(rows)
	if err != nil {
		return nil, err
	}
	for i := range results {
		score := results[i].Score
		results[i].VectorScore = &score
	}
	return results, nil
}

// LexicalSearch runs full-text search over the chunk tsvector column and
// returns results ordered by ts_rank. Query terms are AND-joined.
func (s *Store) LexicalSearch(ctx context.Context, query string, topK int, filters *SearchFilters) ([]SearchResult, error) {
	if s.dialect != "postgres" {
		return nil, ErrIndexUnavailable
	}

	tsquery := prepareTsQuery(query)
	if tsquery == "" {
		return nil, nil
	}

	filterSQL, filterArgs := filters.clauses(3)
	searchQuery := fmt.Sprintf(`
SELECT c.id, c.paper_id, c.arxiv_id, p.title, p.authors, c.chunk_text,
       c.chunk_index, c.section_name, c.page_number,
       ts_rank(c.search_vector, to_tsquery('english', $1)) AS score,
       p.published_date, p.pdf_url
FROM chunks c
JOIN papers p ON c.paper_id = p.id
WHERE c.search_vector @@ to_tsquery('english', $1)%s
ORDER BY score DESC
LIMIT $2`, filterSQL)

	args := append([]interface{}{tsquery, topK}, filterArgs...)

	rows, err := s.db.QueryContext(ctx, searchQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	defer rows.Close()

	results, err := scanSearchResults(rows)
	if err != nil {
		return nil, err
	}
	for i := range results {
		score := results[i].Score
		results[i].TextScore = &score
	}
	return results, nil
}

// prepareTsQuery AND-joins whitespace-separated terms for to_tsquery.
func prepareTsQuery(query string) string {
	return strings.Join(strings.Fields(query), " & ")
}

func scanSearchResults(rows *sql.Rows) ([]SearchResult, error) {
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var authorsJSON string
		var sectionName sql.NullString
		var pageNumber sql.NullInt64
		var publishedDate sql.NullTime
		var pdfURL sql.NullString

		if err := rows.Scan(
			&r.ChunkID, &r.PaperID, &r.ArxivID, &r.Title, &authorsJSON, &r.ChunkText,
			&r.ChunkIndex, &sectionName, &pageNumber, &r.Score, &publishedDate, &pdfURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		if err := json.Unmarshal([]byte(authorsJSON), &r.Authors); err != nil {
			return nil, fmt.Errorf("failed to decode authors: %w", err)
		}
		if sectionName.Valid {
			r.SectionName = sectionName.String
		}
		if pageNumber.Valid {
			r.PageNumber = int(pageNumber.Int64)
		}
		if publishedDate.Valid {
			r.PublishedDate = publishedDate.Time.Format("2006-01-02")
		}
		if pdfURL.Valid {
			r.PDFURL = pdfURL.String
		}

		results = append(results, r)
	}
	return results, rows.Err()
}

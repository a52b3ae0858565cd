package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// UpsertPaper inserts a paper or refreshes its metadata by arxiv_id.
// The paper ID is returned.
func (s *Store) UpsertPaper(ctx context.Context, paper *Paper) (string, error) {
	authorsJSON, err := json.Marshal(paper.Authors)
	if err != nil {
		return "", fmt.Errorf("failed to encode authors: %w", err)
	}
	categoriesJSON, err := json.Marshal(paper.Categories)
	if err != nil {
		return "", fmt.Errorf("failed to encode categories: %w", err)
	}

	now := time.Now().UTC()

	// Existing papers keep their ID so chunks stay attached.
	existingQuery := `SELECT id FROM papers WHERE arxiv_id = ?`
	if s.dialect == "postgres" {
		existingQuery = `SELECT id FROM papers WHERE arxiv_id = $1`
	}

	var id string
	err = s.db.QueryRowContext(ctx, existingQuery, paper.ArxivID).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		insert := `
INSERT INTO papers (id, arxiv_id, title, authors, abstract, categories, published_date, pdf_url, raw_text, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if s.dialect == "postgres" {
			insert = `
INSERT INTO papers (id, arxiv_id, title, authors, abstract, categories, published_date, pdf_url, raw_text, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		}
		_, err = s.db.ExecContext(ctx, insert,
			id, paper.ArxivID, paper.Title, string(authorsJSON), paper.Abstract,
			string(categoriesJSON), paper.PublishedDate, paper.PDFURL,
			nullableString(paper.RawText), now, now,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert paper: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("failed to query paper: %w", err)
	default:
		update := `
UPDATE papers SET title = ?, authors = ?, abstract = ?, categories = ?, published_date = ?, pdf_url = ?, raw_text = ?, updated_at = ?
WHERE id = ?`
		if s.dialect == "postgres" {
			update = `
UPDATE papers SET title = $1, authors = $2, abstract = $3, categories = $4, published_date = $5, pdf_url = $6, raw_text = $7, updated_at = $8
WHERE id = $9`
		}
		_, err = s.db.ExecContext(ctx, update,
			paper.Title, string(authorsJSON), paper.Abstract, string(categoriesJSON),
			paper.PublishedDate, paper.PDFURL, nullableString(paper.RawText), now, id,
		)
		if err != nil {
			return "", fmt.Errorf("failed to update paper: %w", err)
		}
	}

	return id, nil
}

// ReplaceChunks deletes a paper's chunks and inserts the new set.
func (s *Store) ReplaceChunks(ctx context.Context, paperID string, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteQuery := `DELETE FROM chunks WHERE paper_id = ?`
	if s.dialect == "postgres" {
		deleteQuery = `DELETE FROM chunks WHERE paper_id = $1`
	}
	if _, err := tx.ExecContext(ctx, deleteQuery, paperID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	insert := `
INSERT INTO chunks (id, paper_id, arxiv_id, chunk_text, chunk_index, section_name, page_number, word_count, embedding, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if s.dialect == "postgres" {
		insert = `
INSERT INTO chunks (id, paper_id, arxiv_id, chunk_text, chunk_index, section_name, page_number, word_count, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	}

	now := time.Now().UTC()
	for i := range chunks {
		chunk := &chunks[i]
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}

		var embedding interface{}
		if s.dialect == "postgres" {
			embedding = pgvector.NewVector(chunk.Embedding)
		} else {
			encoded, err := json.Marshal(chunk.Embedding)
			if err != nil {
				return fmt.Errorf("failed to encode embedding: %w", err)
			}
			embedding = string(encoded)
		}

		_, err := tx.ExecContext(ctx, insert,
			chunk.ID, paperID, chunk.ArxivID, chunk.ChunkText, chunk.ChunkIndex,
			nullableString(chunk.SectionName), nullableIntValue(chunk.PageNumber),
			nullableIntValue(chunk.WordCount), embedding, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	return tx.Commit()
}

// GetPaperByArxivID returns the paper with the given arXiv identifier, or
// ErrNotFound.
func (s *Store) GetPaperByArxivID(ctx context.Context, arxivID string) (*Paper, error) {
	query := `
SELECT id, arxiv_id, title, authors, abstract, categories, published_date, pdf_url, created_at, updated_at
FROM papers
WHERE arxiv_id = ?`
	if s.dialect == "postgres" {
		query = strings.Replace(query, "?", "$1", 1)
	}

	var p Paper
	var authorsJSON, categoriesJSON string
	err := s.db.QueryRowContext(ctx, query, arxivID).Scan(
		&p.ID, &p.ArxivID, &p.Title, &authorsJSON, &p.Abstract, &categoriesJSON,
		&p.PublishedDate, &p.PDFURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query paper: %w", err)
	}
	if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
		return nil, fmt.Errorf("failed to decode authors: %w", err)
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &p.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return &p, nil
}

// ListPapers returns a page of papers ordered by publication date, newest
// first, plus the total count.
func (s *Store) ListPapers(ctx context.Context, offset, limit int) ([]Paper, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	query := `
SELECT id, arxiv_id, title, authors, abstract, categories, published_date, pdf_url, created_at, updated_at
FROM papers
ORDER BY published_date DESC
LIMIT ? OFFSET ?`
	if s.dialect == "postgres" {
		query = strings.NewReplacer("LIMIT ?", "LIMIT $1", "OFFSET ?", "OFFSET $2").Replace(query)
	}

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	var papers []Paper
	for rows.Next() {
		var p Paper
		var authorsJSON, categoriesJSON string
		if err := rows.Scan(
			&p.ID, &p.ArxivID, &p.Title, &authorsJSON, &p.Abstract, &categoriesJSON,
			&p.PublishedDate, &p.PDFURL, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan paper: %w", err)
		}
		if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
			return nil, 0, fmt.Errorf("failed to decode authors: %w", err)
		}
		if err := json.Unmarshal([]byte(categoriesJSON), &p.Categories); err != nil {
			return nil, 0, fmt.Errorf("failed to decode categories: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// CountChunks returns the total number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

func nullableIntValue(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const saveTurnMaxRetries = 3

// GetOrCreateConversation returns the conversation for a session, creating
// it if absent.
func (s *Store) GetOrCreateConversation(ctx context.Context, sessionID string) (*Conversation, error) {
	conv, err := s.getConversation(ctx, sessionID)
	if err == nil {
		slog.Debug("conversation found", "session_id", sessionID)
		return conv, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	conv = &Conversation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO conversations (id, session_id, created_at, updated_at) VALUES (?, ?, ?, ?)`
	if s.dialect == "postgres" {
		query = `INSERT INTO conversations (id, session_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	}

	if _, err := s.db.ExecContext(ctx, query, conv.ID, conv.SessionID, conv.CreatedAt, conv.UpdatedAt); err != nil {
		// A concurrent request may have created it first.
		if isUniqueViolation(err) {
			return s.getConversation(ctx, sessionID)
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	slog.Debug("conversation created", "session_id", sessionID)
	return conv, nil
}

func (s *Store) getConversation(ctx context.Context, sessionID string) (*Conversation, error) {
	query := `SELECT id, session_id, created_at, updated_at FROM conversations WHERE session_id = ?`
	if s.dialect == "postgres" {
		query = `SELECT id, session_id, created_at, updated_at FROM conversations WHERE session_id = $1`
	}

	var conv Conversation
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&conv.ID, &conv.SessionID, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return &conv, nil
}

// History returns the most recent turns of a session in chronological
// order. An unknown session yields an empty history.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]ConversationTurn, error) {
	conv, err := s.getConversation(ctx, sessionID)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	query := `
SELECT id, conversation_id, turn_number, user_query, agent_response,
       guardrail_score, retrieval_attempts, rewritten_query, sources,
       reasoning_steps, provider, model, created_at
FROM conversation_turns
WHERE conversation_id = ?
ORDER BY turn_number DESC
LIMIT ?`
	if s.dialect == "postgres" {
		query = strings.NewReplacer("= ?", "= $1", "LIMIT ?", "LIMIT $2").Replace(query)
	}

	rows, err := s.db.QueryContext(ctx, query, conv.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Newest-first from the query; reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	slog.Debug("history loaded", "session_id", sessionID, "turns", len(turns))
	return turns, nil
}

// Turns returns every turn of a session in chronological order.
// ErrNotFound is returned for unknown sessions.
func (s *Store) Turns(ctx context.Context, sessionID string) (*Conversation, []ConversationTurn, error) {
	conv, err := s.getConversation(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	query := `
SELECT id, conversation_id, turn_number, user_query, agent_response,
       guardrail_score, retrieval_attempts, rewritten_query, sources,
       reasoning_steps, provider, model, created_at
FROM conversation_turns
WHERE conversation_id = ?
ORDER BY turn_number`
	if s.dialect == "postgres" {
		query = strings.Replace(query, "= ?", "= $1", 1)
	}

	rows, err := s.db.QueryContext(ctx, query, conv.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, nil, err
	}
	return conv, turns, nil
}

// SaveTurn appends a turn with the next dense turn number. Concurrent
// writers are serialized with a row lock on postgres; the unique constraint
// on (conversation_id, turn_number) backstops both dialects, and a
// violation retries the whole transaction.
func (s *Store) SaveTurn(ctx context.Context, sessionID string, data *TurnData) (*ConversationTurn, error) {
	var lastErr error

	for attempt := 1; attempt <= saveTurnMaxRetries; attempt++ {
		turn, err := s.saveTurnOnce(ctx, sessionID, data)
		if err == nil {
			slog.Debug("turn saved", "session_id", sessionID, "turn_number", turn.TurnNumber)
			return turn, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
		slog.Warn("turn save retry", "session_id", sessionID, "attempt", attempt)
	}

	return nil, fmt.Errorf("failed to save turn after %d attempts: %w", saveTurnMaxRetries, lastErr)
}

func (s *Store) saveTurnOnce(ctx context.Context, sessionID string, data *TurnData) (*ConversationTurn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// Lock the conversation row so concurrent saves serialize.
	convQuery := `SELECT id FROM conversations WHERE session_id = ?`
	if s.dialect == "postgres" {
		convQuery = `SELECT id FROM conversations WHERE session_id = $1 FOR UPDATE`
	}

	var convID string
	err = tx.QueryRowContext(ctx, convQuery, sessionID).Scan(&convID)
	if err == sql.ErrNoRows {
		convID = uuid.NewString()
		insertConv := `INSERT INTO conversations (id, session_id, created_at, updated_at) VALUES (?, ?, ?, ?)`
		if s.dialect == "postgres" {
			insertConv = `INSERT INTO conversations (id, session_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`
		}
		if _, err := tx.ExecContext(ctx, insertConv, convID, sessionID, now, now); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to lock conversation: %w", err)
	}

	maxQuery := `SELECT MAX(turn_number) FROM conversation_turns WHERE conversation_id = ?`
	if s.dialect == "postgres" {
		maxQuery = `SELECT MAX(turn_number) FROM conversation_turns WHERE conversation_id = $1`
	}

	var maxTurn sql.NullInt64
	if err := tx.QueryRowContext(ctx, maxQuery, convID).Scan(&maxTurn); err != nil {
		return nil, fmt.Errorf("failed to query last turn: %w", err)
	}

	turnNumber := 0
	if maxTurn.Valid {
		turnNumber = int(maxTurn.Int64) + 1
	}

	turn := &ConversationTurn{
		ID:                uuid.NewString(),
		ConversationID:    convID,
		TurnNumber:        turnNumber,
		UserQuery:         data.UserQuery,
		AgentResponse:     data.AgentResponse,
		GuardrailScore:    data.GuardrailScore,
		RetrievalAttempts: data.RetrievalAttempts,
		RewrittenQuery:    data.RewrittenQuery,
		Sources:           data.Sources,
		ReasoningSteps:    data.ReasoningSteps,
		Provider:          data.Provider,
		Model:             data.Model,
		CreatedAt:         now,
	}

	var reasoningJSON sql.NullString
	if len(turn.ReasoningSteps) > 0 {
		encoded, err := json.Marshal(turn.ReasoningSteps)
		if err != nil {
			return nil, fmt.Errorf("failed to encode reasoning steps: %w", err)
		}
		reasoningJSON = sql.NullString{String: string(encoded), Valid: true}
	}

	var sourcesJSON sql.NullString
	if len(turn.Sources) > 0 {
		sourcesJSON = sql.NullString{String: string(turn.Sources), Valid: true}
	}

	insertTurn := `
INSERT INTO conversation_turns (id, conversation_id, turn_number, user_query, agent_response,
    guardrail_score, retrieval_attempts, rewritten_query, sources, reasoning_steps,
    provider, model, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if s.dialect == "postgres" {
		insertTurn = `
INSERT INTO conversation_turns (id, conversation_id, turn_number, user_query, agent_response,
    guardrail_score, retrieval_attempts, rewritten_query, sources, reasoning_steps,
    provider, model, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	}

	_, err = tx.ExecContext(ctx, insertTurn,
		turn.ID, turn.ConversationID, turn.TurnNumber, turn.UserQuery, turn.AgentResponse,
		nullableInt(turn.GuardrailScore), turn.RetrievalAttempts, nullableString(turn.RewrittenQuery),
		sourcesJSON, reasoningJSON, turn.Provider, turn.Model, turn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert turn: %w", err)
	}

	touchConv := `UPDATE conversations SET updated_at = ? WHERE id = ?`
	if s.dialect == "postgres" {
		touchConv = `UPDATE conversations SET updated_at = $1 WHERE id = $2`
	}
	if _, err := tx.ExecContext(ctx, touchConv, now, convID); err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit turn: %w", err)
	}
	return turn, nil
}

// ListConversations returns a page of conversation summaries ordered by
// most recently updated, plus the total count.
func (s *Store) ListConversations(ctx context.Context, offset, limit int) ([]ConversationSummary, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count conversations: %w", err)
	}

	query := `
SELECT c.session_id, c.created_at, c.updated_at,
       (SELECT COUNT(*) FROM conversation_turns t WHERE t.conversation_id = c.id) AS turn_count,
       (SELECT t.user_query FROM conversation_turns t WHERE t.conversation_id = c.id
        ORDER BY t.turn_number DESC LIMIT 1) AS last_query
FROM conversations c
ORDER BY c.updated_at DESC
LIMIT ? OFFSET ?`
	if s.dialect == "postgres" {
		query = strings.NewReplacer("LIMIT ?", "LIMIT $1", "OFFSET ?", "OFFSET $2").Replace(query)
	}

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var summary ConversationSummary
		var lastQuery sql.NullString
		if err := rows.Scan(&summary.SessionID, &summary.CreatedAt, &summary.UpdatedAt, &summary.TurnCount, &lastQuery); err != nil {
			return nil, 0, fmt.Errorf("failed to scan conversation summary: %w", err)
		}
		if lastQuery.Valid {
			summary.LastQuery = truncate(lastQuery.String, 100)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// DeleteConversation removes a session and all its turns. The deleted turn
// count is returned; ErrNotFound for unknown sessions.
func (s *Store) DeleteConversation(ctx context.Context, sessionID string) (int, error) {
	conv, err := s.getConversation(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	countQuery := `SELECT COUNT(*) FROM conversation_turns WHERE conversation_id = ?`
	if s.dialect == "postgres" {
		countQuery = `SELECT COUNT(*) FROM conversation_turns WHERE conversation_id = $1`
	}
	var turnCount int
	if err := s.db.QueryRowContext(ctx, countQuery, conv.ID).Scan(&turnCount); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}

	// Turns go with the conversation via ON DELETE CASCADE, but sqlite only
	// enforces that with foreign_keys=on, so delete them explicitly.
	deleteTurns := `DELETE FROM conversation_turns WHERE conversation_id = ?`
	deleteConv := `DELETE FROM conversations WHERE id = ?`
	if s.dialect == "postgres" {
		deleteTurns = `DELETE FROM conversation_turns WHERE conversation_id = $1`
		deleteConv = `DELETE FROM conversations WHERE id = $1`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteTurns, conv.ID); err != nil {
		return 0, fmt.Errorf("failed to delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, deleteConv, conv.ID); err != nil {
		return 0, fmt.Errorf("failed to delete conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}

	slog.Info("conversation deleted", "session_id", sessionID, "turns", turnCount)
	return turnCount, nil
}

func scanTurns(rows *sql.Rows) ([]ConversationTurn, error) {
	var turns []ConversationTurn
	for rows.Next() {
		var turn ConversationTurn
		var guardrailScore sql.NullInt64
		var rewrittenQuery, sources, reasoning sql.NullString

		if err := rows.Scan(
			&turn.ID, &turn.ConversationID, &turn.TurnNumber, &turn.UserQuery, &turn.AgentResponse,
			&guardrailScore, &turn.RetrievalAttempts, &rewrittenQuery, &sources,
			&reasoning, &turn.Provider, &turn.Model, &turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		if guardrailScore.Valid {
			score := int(guardrailScore.Int64)
			turn.GuardrailScore = &score
		}
		if rewrittenQuery.Valid {
			turn.RewrittenQuery = rewrittenQuery.String
		}
		if sources.Valid {
			turn.Sources = json.RawMessage(sources.String)
		}
		if reasoning.Valid {
			if err := json.Unmarshal([]byte(reasoning.String), &turn.ReasoningSteps); err != nil {
				return nil, fmt.Errorf("failed to decode reasoning steps: %w", err)
			}
		}

		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// :memory: databases are per-connection.
	db.SetMaxOpenConns(1)

	s, err := New(db, "sqlite", 4)
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func sampleTurn(query string) *TurnData {
	score := 90
	return &TurnData{
		UserQuery:         query,
		AgentResponse:     "an answer",
		GuardrailScore:    &score,
		RetrievalAttempts: 1,
		ReasoningSteps:    []string{"Validated query scope (score: 90/100)"},
		Sources:           json.RawMessage(`[{"arxiv_id":"1706.03762"}]`),
		Provider:          "openai",
		Model:             "gpt-4o-mini",
	}
}

func TestSaveTurnAssignsDenseNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		turn, err := s.SaveTurn(ctx, "sess-1", sampleTurn("q"))
		require.NoError(t, err)
		assert.Equal(t, i, turn.TurnNumber)
	}

	_, turns, err := s.Turns(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	for i, turn := range turns {
		assert.Equal(t, i, turn.TurnNumber)
	}
}

func TestSaveTurnRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.SaveTurn(ctx, "sess-1", sampleTurn("what is attention?"))
	require.NoError(t, err)

	_, turns, err := s.Turns(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 1)

	turn := turns[0]
	assert.Equal(t, saved.ID, turn.ID)
	assert.Equal(t, "what is attention?", turn.UserQuery)
	assert.Equal(t, "an answer", turn.AgentResponse)
	require.NotNil(t, turn.GuardrailScore)
	assert.Equal(t, 90, *turn.GuardrailScore)
	assert.Equal(t, 1, turn.RetrievalAttempts)
	assert.JSONEq(t, `[{"arxiv_id":"1706.03762"}]`, string(turn.Sources))
	assert.Equal(t, []string{"Validated query scope (score: 90/100)"}, turn.ReasoningSteps)
	assert.Equal(t, "openai", turn.Provider)
}

func TestSaveTurnCreatesConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTurn(ctx, "fresh-session", sampleTurn("q"))
	require.NoError(t, err)

	conv, err := s.GetOrCreateConversation(ctx, "fresh-session")
	require.NoError(t, err)
	assert.Equal(t, "fresh-session", conv.SessionID)
}

func TestHistoryWindowAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"first", "second", "third"} {
		_, err := s.SaveTurn(ctx, "sess-1", sampleTurn(q))
		require.NoError(t, err)
	}

	turns, err := s.History(ctx, "sess-1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].UserQuery)
	assert.Equal(t, "third", turns[1].UserQuery)
}

func TestHistoryUnknownSession(t *testing.T) {
	s := newTestStore(t)
	turns, err := s.History(context.Background(), "nope", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestTurnsUnknownSession(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Turns(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTurn(ctx, "sess-a", sampleTurn("alpha question"))
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = s.SaveTurn(ctx, "sess-b", sampleTurn("beta question"))
	require.NoError(t, err)
	_, err = s.SaveTurn(ctx, "sess-b", sampleTurn("beta followup"))
	require.NoError(t, err)

	summaries, total, err := s.ListConversations(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, summaries, 2)

	// Most recently updated first.
	assert.Equal(t, "sess-b", summaries[0].SessionID)
	assert.Equal(t, 2, summaries[0].TurnCount)
	assert.Equal(t, "beta followup", summaries[0].LastQuery)
	assert.Equal(t, "sess-a", summaries[1].SessionID)
}

func TestListConversationsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, sess := range []string{"s1", "s2", "s3"} {
		_, err := s.SaveTurn(ctx, sess, sampleTurn("q"))
		require.NoError(t, err)
	}

	summaries, total, err := s.ListConversations(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, summaries, 1)
}

func TestDeleteConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveTurn(ctx, "sess-1", sampleTurn("q1"))
	require.NoError(t, err)
	_, err = s.SaveTurn(ctx, "sess-1", sampleTurn("q2"))
	require.NoError(t, err)

	deleted, err := s.DeleteConversation(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, _, err = s.Turns(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownConversation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DeleteConversation(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVectorSearchUnavailableOnSqlite(t *testing.T) {
	s := newTestStore(t)
	_, err := s.VectorSearch(context.Background(), []float32{0.1}, 5, 0, nil)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

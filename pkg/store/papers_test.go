package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePaper(arxivID string) *Paper {
	return &Paper{
		ArxivID:       arxivID,
		Title:         "Paper " + arxivID,
		Authors:       []string{"A. Author", "B. Author"},
		Abstract:      "An abstract.",
		Categories:    []string{"cs.LG"},
		PublishedDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
		PDFURL:        "https://arxiv.org/pdf/" + arxivID,
	}
}

func TestGetPaperByArxivID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertPaper(ctx, samplePaper("2301.00001"))
	require.NoError(t, err)

	paper, err := s.GetPaperByArxivID(ctx, "2301.00001")
	require.NoError(t, err)
	assert.Equal(t, "Paper 2301.00001", paper.Title)
	assert.Equal(t, []string{"A. Author", "B. Author"}, paper.Authors)
	assert.Equal(t, []string{"cs.LG"}, paper.Categories)
}

func TestGetPaperByArxivIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPaperByArxivID(context.Background(), "9999.99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertPaperKeepsID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertPaper(ctx, samplePaper("2301.00001"))
	require.NoError(t, err)

	updated := samplePaper("2301.00001")
	updated.Title = "Revised title"
	second, err := s.UpsertPaper(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	paper, err := s.GetPaperByArxivID(ctx, "2301.00001")
	require.NoError(t, err)
	assert.Equal(t, "Revised title", paper.Title)
}

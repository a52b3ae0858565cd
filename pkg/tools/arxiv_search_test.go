package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarag/scholarag/pkg/store"
)

type fakeArxivSearcher struct {
	papers []store.Paper
	err    error

	gotQuery      string
	gotMaxResults int
	gotCategories []string
}

func (f *fakeArxivSearcher) Search(ctx context.Context, query string, maxResults int, categories []string) ([]store.Paper, error) {
	f.gotQuery = query
	f.gotMaxResults = maxResults
	f.gotCategories = categories
	return f.papers, f.err
}

func searchPaper(arxivID string, published string) store.Paper {
	date, _ := time.Parse("2006-01-02", published)
	return store.Paper{
		ArxivID:       arxivID,
		Title:         "Paper " + arxivID,
		Authors:       []string{"A. Author"},
		Abstract:      "An abstract.",
		Categories:    []string{"cs.LG"},
		PublishedDate: date,
		PDFURL:        "https://arxiv.org/pdf/" + arxivID,
	}
}

func TestArxivSearchPassesArguments(t *testing.T) {
	searcher := &fakeArxivSearcher{papers: []store.Paper{searchPaper("2301.00001", "2023-01-01")}}
	tool := NewArxivSearchTool(searcher)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"query":       "attention",
		"max_results": float64(3),
		"categories":  []interface{}{"cs.LG", "cs.AI"},
	})
	require.True(t, result.Success)

	assert.Equal(t, "attention", searcher.gotQuery)
	assert.Equal(t, 3, searcher.gotMaxResults)
	assert.Equal(t, []string{"cs.LG", "cs.AI"}, searcher.gotCategories)

	data := result.Data.(map[string]interface{})
	assert.Equal(t, 1, data["count"])
	papers := data["papers"].([]map[string]interface{})
	require.Len(t, papers, 1)
	assert.Equal(t, "2301.00001", papers[0]["arxiv_id"])
	assert.Equal(t, "2023-01-01", papers[0]["published_date"])
}

func TestArxivSearchClampsMaxResults(t *testing.T) {
	searcher := &fakeArxivSearcher{}
	tool := NewArxivSearchTool(searcher)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"query":       "q",
		"max_results": float64(50),
	})
	require.True(t, result.Success)
	assert.Equal(t, 10, searcher.gotMaxResults)
}

func TestArxivSearchFiltersByDateRange(t *testing.T) {
	searcher := &fakeArxivSearcher{papers: []store.Paper{
		searchPaper("2201.00001", "2022-01-15"),
		searchPaper("2301.00001", "2023-01-15"),
		searchPaper("2401.00001", "2024-01-15"),
	}}
	tool := NewArxivSearchTool(searcher)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"query":      "q",
		"start_date": "2022-06-01",
		"end_date":   "2023-06-01",
	})
	require.True(t, result.Success)

	papers := result.Data.(map[string]interface{})["papers"].([]map[string]interface{})
	require.Len(t, papers, 1)
	assert.Equal(t, "2301.00001", papers[0]["arxiv_id"])
}

func TestArxivSearchRejectsBadDate(t *testing.T) {
	tool := NewArxivSearchTool(&fakeArxivSearcher{})
	result := tool.Execute(context.Background(), map[string]interface{}{
		"query":      "q",
		"start_date": "January 2023",
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "YYYY-MM-DD")
}

func TestArxivSearchTruncatesLongAbstracts(t *testing.T) {
	paper := searchPaper("2301.00001", "2023-01-01")
	paper.Abstract = strings.Repeat("x", 600)
	tool := NewArxivSearchTool(&fakeArxivSearcher{papers: []store.Paper{paper}})

	result := tool.Execute(context.Background(), map[string]interface{}{"query": "q"})
	require.True(t, result.Success)

	papers := result.Data.(map[string]interface{})["papers"].([]map[string]interface{})
	abstract := papers[0]["abstract"].(string)
	assert.Len(t, abstract, 503)
	assert.True(t, strings.HasSuffix(abstract, "..."))
}

func TestArxivSearchRequiresQuery(t *testing.T) {
	tool := NewArxivSearchTool(&fakeArxivSearcher{})
	result := tool.Execute(context.Background(), map[string]interface{}{})
	assert.False(t, result.Success)
}

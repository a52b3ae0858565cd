package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchParsesInstantAnswer(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("no_redirect"))
		assert.Equal(t, "1", r.URL.Query().Get("no_html"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"Abstract":    "Transformers are a neural architecture.",
			"AbstractURL": "https://example.com/transformers",
			"Heading":     "Transformer",
			"RelatedTopics": []map[string]string{
				{"Text": "Attention mechanism", "FirstURL": "https://example.com/attention"},
				{"Text": ""},
			},
		})
	}))
	defer server.Close()

	tool := NewWebSearchTool()
	tool.SetBaseURL(server.URL)

	result := tool.Execute(context.Background(), map[string]interface{}{"query": "transformers"})
	require.True(t, result.Success)
	assert.Equal(t, "transformers", gotQuery)

	results := result.Data.([]map[string]string)
	require.Len(t, results, 2)
	assert.Equal(t, "Transformer", results[0]["title"])
	assert.Equal(t, "https://example.com/transformers", results[0]["url"])
	assert.Equal(t, "Attention mechanism", results[1]["title"])
}

func TestWebSearchCapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topics := make([]map[string]string, 10)
		for i := range topics {
			topics[i] = map[string]string{"Text": "topic", "FirstURL": "https://example.com"}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"RelatedTopics": topics})
	}))
	defer server.Close()

	tool := NewWebSearchTool()
	tool.SetBaseURL(server.URL)

	result := tool.Execute(context.Background(), map[string]interface{}{"query": "q"})
	require.True(t, result.Success)
	assert.Len(t, result.Data.([]map[string]string), 5)

	result = tool.Execute(context.Background(), map[string]interface{}{"query": "q", "max_results": float64(2)})
	require.True(t, result.Success)
	assert.Len(t, result.Data.([]map[string]string), 2)
}

func TestWebSearchEmptyAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	defer server.Close()

	tool := NewWebSearchTool()
	tool.SetBaseURL(server.URL)

	result := tool.Execute(context.Background(), map[string]interface{}{"query": "q"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no web results")
}

func TestWebSearchRequiresQuery(t *testing.T) {
	tool := NewWebSearchTool()
	result := tool.Execute(context.Background(), map[string]interface{}{})
	assert.False(t, result.Success)
}

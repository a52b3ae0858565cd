package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
  You Need</title>
    <summary>The dominant sequence transduction models.</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <link href="http://arxiv.org/pdf/1706.03762v7" title="pdf" type="application/pdf"/>
    <category term="cs.CL"/>
  </entry>
</feed>`

func TestSearchBuildsCategoryQuery(t *testing.T) {
	var gotQuery, gotSortBy, gotMax string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		gotSortBy = r.URL.Query().Get("sortBy")
		gotMax = r.URL.Query().Get("max_results")
		fmt.Fprint(w, sampleFeed)
	}))
	defer server.Close()

	client := NewArxivClient()
	client.SetBaseURL(server.URL)

	papers, err := client.Search(context.Background(), "attention", 5, []string{"cs.CL", "cs.LG"})
	require.NoError(t, err)

	assert.Equal(t, "(attention) AND (cat:cs.CL OR cat:cs.LG)", gotQuery)
	assert.Equal(t, "relevance", gotSortBy)
	assert.Equal(t, "5", gotMax)

	require.Len(t, papers, 1)
	assert.Equal(t, "1706.03762", papers[0].ArxivID)
	assert.Equal(t, "Attention Is All You Need", papers[0].Title)
	assert.Equal(t, []string{"Ashish Vaswani"}, papers[0].Authors)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", papers[0].PDFURL)
}

func TestSearchWithoutCategories(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		fmt.Fprint(w, sampleFeed)
	}))
	defer server.Close()

	client := NewArxivClient()
	client.SetBaseURL(server.URL)

	_, err := client.Search(context.Background(), "attention", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "attention", gotQuery)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client := NewArxivClient()
	_, err := client.Search(context.Background(), "   ", 3, nil)
	assert.Error(t, err)
}

func TestFetchByIDsUsesIDList(t *testing.T) {
	var gotIDList string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDList = r.URL.Query().Get("id_list")
		fmt.Fprint(w, sampleFeed)
	}))
	defer server.Close()

	client := NewArxivClient()
	client.SetBaseURL(server.URL)

	papers, err := client.FetchByIDs(context.Background(), []string{"1706.03762"})
	require.NoError(t, err)
	assert.Equal(t, "1706.03762", gotIDList)
	require.Len(t, papers, 1)
}

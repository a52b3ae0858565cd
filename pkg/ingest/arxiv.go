package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scholarag/scholarag/pkg/httpclient"
	"github.com/scholarag/scholarag/pkg/store"
)

const (
	arxivAPIURL  = "https://export.arxiv.org/api/query"
	arxivTimeout = 30 * time.Second
	maxBatchIDs  = 50
)

// ArxivClient fetches paper metadata from the arXiv Atom API.
type ArxivClient struct {
	client  *httpclient.Client
	baseURL string
}

func NewArxivClient() *ArxivClient {
	return &ArxivClient{
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: arxivTimeout}),
		),
		baseURL: arxivAPIURL,
	}
}

// SetBaseURL points the client at a different endpoint. Used in tests.
func (c *ArxivClient) SetBaseURL(u string) {
	c.baseURL = u
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Links      []atomLink     `xml:"link"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

// FetchByIDs resolves arXiv identifiers to paper metadata. Unknown IDs are
// silently absent from the result; the API simply omits them.
func (c *ArxivClient) FetchByIDs(ctx context.Context, arxivIDs []string) ([]store.Paper, error) {
	if len(arxivIDs) == 0 {
		return nil, nil
	}
	if len(arxivIDs) > maxBatchIDs {
		return nil, fmt.Errorf("at most %d ids per request", maxBatchIDs)
	}

	params := url.Values{}
	params.Set("id_list", strings.Join(arxivIDs, ","))
	params.Set("max_results", fmt.Sprintf("%d", len(arxivIDs)))
	return c.fetchFeed(ctx, params)
}

// Search queries arXiv by relevance, optionally narrowed to categories.
// Metadata only; nothing is downloaded or ingested.
func (c *ArxivClient) Search(ctx context.Context, query string, maxResults int, categories []string) ([]store.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	fullQuery := query
	if len(categories) > 0 {
		cats := make([]string, len(categories))
		for i, cat := range categories {
			cats[i] = "cat:" + cat
		}
		fullQuery = fmt.Sprintf("(%s) AND (%s)", query, strings.Join(cats, " OR "))
	}

	params := url.Values{}
	params.Set("search_query", fullQuery)
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")
	return c.fetchFeed(ctx, params)
}

func (c *ArxivClient) fetchFeed(ctx context.Context, params url.Values) ([]store.Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build arxiv request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arxiv response: %w", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	papers := make([]store.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper, err := entryToPaper(entry)
		if err != nil {
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

func entryToPaper(entry atomEntry) (store.Paper, error) {
	arxivID := parseArxivID(entry.ID)
	if arxivID == "" {
		return store.Paper{}, fmt.Errorf("entry has no arxiv id")
	}

	published, err := time.Parse(time.RFC3339, entry.Published)
	if err != nil {
		published = time.Time{}
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}

	pdfURL := ""
	for _, link := range entry.Links {
		if link.Title == "pdf" || link.Type == "application/pdf" {
			pdfURL = link.Href
			break
		}
	}
	if pdfURL == "" {
		pdfURL = "https://arxiv.org/pdf/" + arxivID
	}

	return store.Paper{
		ArxivID:       arxivID,
		Title:         collapseWhitespace(entry.Title),
		Authors:       authors,
		Abstract:      collapseWhitespace(entry.Summary),
		Categories:    categories,
		PublishedDate: published,
		PDFURL:        pdfURL,
	}, nil
}

// parseArxivID extracts the bare identifier from an Atom entry ID like
// http://arxiv.org/abs/1706.03762v7, dropping the version suffix.
func parseArxivID(entryID string) string {
	idx := strings.LastIndex(entryID, "/abs/")
	if idx < 0 {
		return ""
	}
	id := entryID[idx+len("/abs/"):]
	if v := strings.LastIndex(id, "v"); v > 0 {
		if _, rest := id[:v], id[v+1:]; isDigits(rest) {
			id = id[:v]
		}
	}
	return id
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// collapseWhitespace normalizes the newline-wrapped text arXiv returns.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

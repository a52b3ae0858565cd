package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scholarag/scholarag/pkg/httpclient"
)

const (
	duckDuckGoURL    = "https://api.duckduckgo.com/"
	webSearchTimeout = 10 * time.Second
	maxWebResults    = 5
)

// WebSearchTool queries the DuckDuckGo instant answer API. It is a fallback
// for queries about papers or topics not in the local corpus.
type WebSearchTool struct {
	client  *httpclient.Client
	baseURL string
}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: webSearchTimeout}),
			httpclient.WithMaxRetries(1),
		),
		baseURL: duckDuckGoURL,
	}
}

// SetBaseURL points the tool at a different endpoint. Used in tests.
func (t *WebSearchTool) SetBaseURL(u string) {
	t.baseURL = u
}

func (t *WebSearchTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        "web_search",
		Description: "Search the web for information not available in the paper database, such as recent announcements or papers not yet ingested.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "The web search query",
				Required:    true,
			},
			{
				Name:        "max_results",
				Type:        "number",
				Description: "Maximum number of results to return (1-10)",
				Default:     maxWebResults,
			},
		},
	}
}

type duckDuckGoResponse struct {
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) ToolResult {
	query := argString(args, "query", "")
	if query == "" {
		return failure("web_search", "query must not be empty")
	}

	maxResults := argInt(args, "max_results", maxWebResults)
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > 10 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_redirect", "1")
	params.Set("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return failure("web_search", fmt.Sprintf("failed to build request: %v", err))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return failure("web_search", fmt.Sprintf("web search request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure("web_search", fmt.Sprintf("web search returned HTTP %d", resp.StatusCode))
	}

	var payload duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure("web_search", fmt.Sprintf("failed to decode response: %v", err))
	}

	results := collectWebResults(&payload, maxResults)
	if len(results) == 0 {
		return failure("web_search", "no web results found")
	}

	return ToolResult{
		Success: true,
		Data:    results,
		Summary: fmt.Sprintf("Found %d web results", len(results)),
	}
}

func collectWebResults(payload *duckDuckGoResponse, limit int) []map[string]string {
	var results []map[string]string

	if strings.TrimSpace(payload.Abstract) != "" {
		results = append(results, map[string]string{
			"title":   payload.Heading,
			"snippet": payload.Abstract,
			"url":     payload.AbstractURL,
		})
	}

	for _, topic := range payload.RelatedTopics {
		if len(results) >= limit {
			break
		}
		if strings.TrimSpace(topic.Text) == "" {
			continue
		}
		results = append(results, map[string]string{
			"title":   topic.Text,
			"snippet": topic.Text,
			"url":     topic.FirstURL,
		})
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Package websearch provides a keyless instant-answer client used as
// the last-resort context source when retrieval finds nothing.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.duckduckgo.com/"

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns a small plain-text digest: the abstract, up to three
// related topics, and the direct answer when present. An empty string
// with nil error means the API had nothing useful.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("web search status: %s", resp.Status)
	}

	var payload struct {
		Abstract      string `json:"Abstract"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	var parts []string
	if payload.Abstract != "" {
		parts = append(parts, "Summary: "+payload.Abstract)
	}
	for i, topic := range payload.RelatedTopics {
		if i >= 3 {
			break
		}
		if topic.Text != "" {
			parts = append(parts, "Related: "+topic.Text)
		}
	}
	if payload.Answer != "" {
		parts = append(parts, "Answer: "+payload.Answer)
	}
	return strings.Join(parts, "\n"), nil
}

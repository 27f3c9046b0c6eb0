// Package websearch provides the web search adapter: a SearXNG metasearch
// client plus an optional page scraper that enriches the top result with
// readable article text.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

var (
	// ErrNoResults indicates the search ran but matched nothing.
	ErrNoResults = errors.New("no search results")
	// ErrUnavailable indicates the search backend could not be reached or
	// answered with an error.
	ErrUnavailable = errors.New("search unavailable")
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client queries a SearXNG instance over its JSON API.
type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
	scraper    *Scraper
	logger     log.Logger
}

// NewClient creates a search client. scraper may be nil to disable page
// enrichment.
func NewClient(cfg config.SearXNGConfig, scraper *Scraper, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		scraper:    scraper,
		logger:     logger,
	}
}

// searxngResponse is the JSON payload from SearXNG's /search endpoint.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs a query and returns at most the configured number of results.
// The top result is enriched with scraped article text when a scraper is
// configured and the page yields something readable.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("searxng: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	if len(sr.Results) == 0 {
		return nil, ErrNoResults
	}

	results := make([]Result, 0, c.maxResults)
	for i, r := range sr.Results {
		if i >= c.maxResults {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}

	if c.scraper != nil {
		if text, err := c.scraper.ReadableText(ctx, results[0].URL); err != nil {
			c.logger.Debug("page enrichment skipped", "url", results[0].URL, "error", err)
		} else if text != "" {
			results[0].Snippet = text
		}
	}

	c.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}

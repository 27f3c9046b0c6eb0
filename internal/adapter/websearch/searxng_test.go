package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

func newTestClient(t *testing.T, maxResults int, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.SearXNGConfig{BaseURL: srv.URL, MaxResults: maxResults}, nil, log.NewNop())
}

func TestSearch_Success(t *testing.T) {
	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "go generics", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"title": "First", "url": "https://a.example.com", "content": "snippet a"},
			{"title": "Second", "url": "https://b.example.com", "content": "snippet b"}
		]}`))
	})

	results, err := client.Search(context.Background(), "go generics")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "https://a.example.com", results[0].URL)
	assert.Equal(t, "snippet a", results[0].Snippet)
}

func TestSearch_CapsResults(t *testing.T) {
	client := newTestClient(t, 2, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"title": "1", "url": "https://1.example.com", "content": ""},
			{"title": "2", "url": "https://2.example.com", "content": ""},
			{"title": "3", "url": "https://3.example.com", "content": ""},
			{"title": "4", "url": "https://4.example.com", "content": ""}
		]}`))
	})

	results, err := client.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_NoResults(t *testing.T) {
	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	})

	_, err := client.Search(context.Background(), "gibberish")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearch_BackendError(t *testing.T) {
	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := client.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_MalformedResponse(t *testing.T) {
	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.Search(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSearch_EnrichmentFailureIsNonFatal(t *testing.T) {
	// Result URL points nowhere reachable: the scrape fails but the search
	// result keeps its original snippet.
	client := newTestClient(t, 3, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [
			{"title": "First", "url": "http://127.0.0.1:1/nothing", "content": "original snippet"}
		]}`))
	})
	client.scraper = NewScraper(config.WebScraperConfig{
		Enabled:   true,
		TimeoutMs: 200,
	}, log.NewNop())

	results, err := client.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "original snippet", results[0].Snippet)
}

func TestNewScraper_DisabledReturnsNil(t *testing.T) {
	assert.Nil(t, NewScraper(config.WebScraperConfig{Enabled: false}, log.NewNop()))
}

func TestReadableText_RejectsNonHTTPURLs(t *testing.T) {
	s := NewScraper(config.WebScraperConfig{Enabled: true}, log.NewNop())

	for _, u := range []string{"ftp://example.com/file", "javascript:alert(1)", "not a url at all"} {
		_, err := s.ReadableText(context.Background(), u)
		assert.Error(t, err, u)
	}
}

func TestBuildContext(t *testing.T) {
	got := BuildContext("go generics", []Result{
		{Title: "First", URL: "https://a.example.com", Snippet: "snippet a"},
		{Title: "Second", URL: "https://b.example.com", Snippet: ""},
	})

	assert.Contains(t, got, `Web search results for "go generics"`)
	assert.Contains(t, got, "1. First")
	assert.Contains(t, got, "https://a.example.com")
	assert.Contains(t, got, "snippet a")
	assert.Contains(t, got, "2. Second")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "abc…", truncateRunes("abcdef", 3))
	assert.Equal(t, strings.Repeat("貓", 3)+"…", truncateRunes(strings.Repeat("貓", 10), 3))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("  a\n\tb   c  "))
}

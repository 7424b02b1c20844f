package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

func newTestServer(t *testing.T, handler http.HandlerFunc, opts ...Option) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", append([]Option{WithBaseURL(srv.URL)}, opts...)...)
}

func TestCrawl_RequestShape(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/crawl", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com", body["url"])
		assert.EqualValues(t, 2, body["maxDepth"])
		assert.EqualValues(t, 8, body["maxPages"])
		assert.Equal(t, "markdown", body["returnFormat"])
		assert.EqualValues(t, 25000, body["timeout"])
		assert.Equal(t, []any{"/about"}, body["includePaths"])

		_, _ = w.Write([]byte(`{"pages":[{"url":"https://example.com","markdown":"# Home"}]}`)) //nolint:errcheck
	})

	resp, err := c.Crawl(context.Background(), CrawlRequest{
		URL:          "https://example.com",
		MaxDepth:     2,
		MaxPages:     8,
		IncludePaths: []string{"/about"},
		ReturnFormat: "markdown",
		Timeout:      25000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Pages, 1)
	assert.Equal(t, "https://example.com", resp.Pages[0].URL)
	assert.Equal(t, "# Home", resp.Pages[0].Content)
}

func TestCrawl_NoKeyNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "/custom/crawl", r.URL.Path)
		_, _ = w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	c := NewClient("", WithBaseURL(srv.URL+"/"), WithCrawlPath("custom/crawl"))
	resp, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.Pages)
}

func TestCrawlResponse_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantID   string
		wantURLs []string
		wantText []string
	}{
		{
			name:     "pages",
			body:     `{"pages":[{"url":"a","markdown":"A"}]}`,
			wantURLs: []string{"a"},
			wantText: []string{"A"},
		},
		{
			name:     "results with pageUrl and content",
			body:     `{"results":[{"pageUrl":"b","content":"B"}]}`,
			wantURLs: []string{"b"},
			wantText: []string{"B"},
		},
		{
			name:     "data with metadata source and text",
			body:     `{"status":"completed","data":[{"metadata":{"sourceURL":"c"},"text":"C"}]}`,
			wantURLs: []string{"c"},
			wantText: []string{"C"},
		},
		{
			name:     "bare array",
			body:     `[{"url":"d","markdown":"D"},{"markdown":"E"}]`,
			wantURLs: []string{"d", ""},
			wantText: []string{"D", "E"},
		},
		{
			name:   "async job",
			body:   `{"success":true,"id":"job-1"}`,
			wantID: "job-1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp CrawlResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.wantID, resp.ID)
			require.Len(t, resp.Pages, len(tt.wantURLs))
			for i := range resp.Pages {
				assert.Equal(t, tt.wantURLs[i], resp.Pages[i].URL)
				assert.Equal(t, tt.wantText[i], resp.Pages[i].Content)
			}
		})
	}
}

func TestCrawl_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"unauthorized", http.StatusUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`)) //nolint:errcheck
			})
			_, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com"})
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantTransient, resilience.IsTransient(err))
		})
	}
}

func TestCrawl_InvalidJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`)) //nolint:errcheck
	})
	_, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com"})
	assert.Error(t, err)
}

func TestCrawl_Timeout(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`)) //nolint:errcheck
	}, WithTimeout(20*time.Millisecond))
	_, err := c.Crawl(context.Background(), CrawlRequest{URL: "https://example.com"})
	assert.Error(t, err)
}

func TestGetCrawlStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/crawl/job-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"scraping","data":[]}`)) //nolint:errcheck
	})
	resp, err := c.GetCrawlStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "scraping", resp.Status)
	assert.Empty(t, resp.Pages)
}

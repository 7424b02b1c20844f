// Package firecrawl is a small client for the Firecrawl crawl endpoint and
// compatible self-hosted deployments.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

const (
	defaultBaseURL   = "https://api.firecrawl.dev"
	defaultCrawlPath = "/v1/crawl"
)

// Client defines the Firecrawl crawl operations.
type Client interface {
	Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error)
	GetCrawlStatus(ctx context.Context, id string) (*CrawlResponse, error)
}

// CrawlRequest is the body for POST {crawl_path}.
type CrawlRequest struct {
	URL          string   `json:"url"`
	MaxDepth     int      `json:"maxDepth"`
	MaxPages     int      `json:"maxPages"`
	IncludePaths []string `json:"includePaths"`
	ReturnFormat string   `json:"returnFormat"`
	Timeout      int      `json:"timeout"` // milliseconds
}

// CrawlResponse is the decoded crawl result. Synchronous deployments fill
// Pages directly; the hosted API answers with an ID to poll.
type CrawlResponse struct {
	ID     string
	Status string
	Pages  []PageData
}

// UnmarshalJSON accepts {pages:[...]}, {results:[...]}, {data:[...]} or a
// bare array of pages.
func (r *CrawlResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Pages)
	}

	var obj struct {
		ID      string     `json:"id"`
		Status  string     `json:"status"`
		Pages   []PageData `json:"pages"`
		Results []PageData `json:"results"`
		Data    []PageData `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	r.Status = obj.Status
	switch {
	case len(obj.Pages) > 0:
		r.Pages = obj.Pages
	case len(obj.Results) > 0:
		r.Pages = obj.Results
	default:
		r.Pages = obj.Data
	}
	return nil
}

// PageData is a single crawled page.
type PageData struct {
	URL     string
	Content string
}

// UnmarshalJSON accepts url|pageUrl (or metadata.sourceURL) and
// markdown|content|text.
func (p *PageData) UnmarshalJSON(data []byte) error {
	var raw struct {
		URL      string `json:"url"`
		PageURL  string `json:"pageUrl"`
		Markdown string `json:"markdown"`
		Content  string `json:"content"`
		Text     string `json:"text"`
		Metadata struct {
			SourceURL string `json:"sourceURL"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.URL = firstNonEmpty(raw.URL, raw.PageURL, raw.Metadata.SourceURL)
	p.Content = firstNonEmpty(raw.Markdown, raw.Content, raw.Text)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// APIError is returned when Firecrawl responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firecrawl: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithCrawlPath overrides the crawl endpoint path.
func WithCrawlPath(path string) Option {
	return func(c *httpClient) {
		if path == "" {
			return
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		c.crawlPath = path
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey    string
	baseURL   string
	crawlPath string
	http      *http.Client
}

// NewClient creates a new Firecrawl client. An empty apiKey sends no
// Authorization header.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:    apiKey,
		baseURL:   defaultBaseURL,
		crawlPath: defaultCrawlPath,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	var resp CrawlResponse
	if err := c.post(ctx, c.crawlPath, req, &resp); err != nil {
		return nil, eris.Wrap(err, "firecrawl: crawl")
	}
	return &resp, nil
}

func (c *httpClient) GetCrawlStatus(ctx context.Context, id string) (*CrawlResponse, error) {
	var resp CrawlResponse
	if err := c.get(ctx, fmt.Sprintf("%s/%s", c.crawlPath, id), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("firecrawl: get crawl status %s", id))
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	c.authorize(req)

	return c.do(req, out)
}

func (c *httpClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.Transient(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}

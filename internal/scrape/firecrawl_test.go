package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/firecrawl"
)

type mockFirecrawlClient struct {
	mock.Mock
}

func (m *mockFirecrawlClient) Crawl(ctx context.Context, req firecrawl.CrawlRequest) (*firecrawl.CrawlResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.CrawlResponse), args.Error(1)
}

func (m *mockFirecrawlClient) GetCrawlStatus(ctx context.Context, id string) (*firecrawl.CrawlResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.CrawlResponse), args.Error(1)
}

func TestFirecrawlCrawler_Pages(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.MatchedBy(func(req firecrawl.CrawlRequest) bool {
		return req.URL == "https://acme.com" &&
			req.MaxDepth == 2 &&
			req.MaxPages == 8 &&
			req.ReturnFormat == "markdown" &&
			req.Timeout == 25000 &&
			len(req.IncludePaths) == len(FollowPaths)
	})).Return(&firecrawl.CrawlResponse{Pages: []firecrawl.PageData{
		{URL: "https://acme.com", Content: "# Home"},
		{URL: "https://acme.com/about", Content: "About us"},
	}}, nil)

	pages := NewFirecrawlCrawler(fc, nil).Crawl(context.Background(), "https://acme.com", 0)

	assert.Equal(t, model.PageMap{
		"https://acme.com":       "# Home",
		"https://acme.com/about": "About us",
	}, pages)
	fc.AssertExpectations(t)
}

func TestFirecrawlCrawler_MissingURLKeyedByRoot(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.Anything).Return(&firecrawl.CrawlResponse{Pages: []firecrawl.PageData{
		{Content: "text"},
	}}, nil)

	pages := NewFirecrawlCrawler(fc, nil).Crawl(context.Background(), "https://acme.com", 8)
	assert.Equal(t, "text", pages["https://acme.com"])
}

func TestFirecrawlCrawler_Error(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.Anything).Return(nil, eris.New("connection refused")).Once()

	pages := NewFirecrawlCrawler(fc, nil).Crawl(context.Background(), "https://acme.com", 8)

	require.True(t, pages.Failed())
	assert.Contains(t, pages.Error(), "firecrawl_error: ")
	assert.Contains(t, pages.Error(), "connection refused")
	fc.AssertNumberOfCalls(t, "Crawl", 1)
}

func TestFirecrawlCrawler_NoPages(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.Anything).Return(&firecrawl.CrawlResponse{}, nil)

	pages := NewFirecrawlCrawler(fc, nil).Crawl(context.Background(), "https://acme.com", 8)
	assert.Equal(t, model.ErrorPageMap("firecrawl_no_pages_returned"), pages)
}

func TestFirecrawlCrawler_CapsPages(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.Anything).Return(&firecrawl.CrawlResponse{Pages: []firecrawl.PageData{
		{URL: "a", Content: "1"}, {URL: "b", Content: "2"}, {URL: "c", Content: "3"},
	}}, nil)

	pages := NewFirecrawlCrawler(fc, nil).Crawl(context.Background(), "https://acme.com", 2)
	assert.Len(t, pages, 2)
}

func TestFirecrawlCrawler_PollsAsyncJob(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.Anything).Return(&firecrawl.CrawlResponse{ID: "job-1"}, nil)
	fc.On("GetCrawlStatus", mock.Anything, "job-1").Return(&firecrawl.CrawlResponse{
		Status: firecrawl.StatusCompleted,
		Pages:  []firecrawl.PageData{{URL: "https://acme.com", Content: "home"}},
	}, nil)

	pages := NewFirecrawlCrawler(fc, nil,
		WithPoller(firecrawl.Poller{Interval: time.Millisecond}),
	).Crawl(context.Background(), "https://acme.com", 8)

	assert.Equal(t, "home", pages["https://acme.com"])
	fc.AssertExpectations(t)
}

func TestFirecrawlCrawler_BreakerOpens(t *testing.T) {
	fc := &mockFirecrawlClient{}
	fc.On("Crawl", mock.Anything, mock.Anything).
		Return(nil, resilience.Transient(eris.New("503"), 503))

	cb := resilience.NewBreaker(resilience.BreakerConfig{
		Name:      "firecrawl-test",
		Threshold: 2,
		Cooldown:  time.Hour,
	})
	crawler := NewFirecrawlCrawler(fc, nil, WithBreaker(cb), WithCrawlTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, crawler.Timeout())

	for range 4 {
		pages := crawler.Crawl(context.Background(), "https://acme.com", 8)
		assert.True(t, pages.Failed())
	}

	// Two failures open the circuit; the remaining calls never reach the client.
	fc.AssertNumberOfCalls(t, "Crawl", 2)
	assert.Equal(t, resilience.Open, cb.State())
}

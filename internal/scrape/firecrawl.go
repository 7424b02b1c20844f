package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/firecrawl"
)

const (
	defaultFirecrawlTimeout = 25 * time.Second
	firecrawlMaxDepth       = 2
)

// FirecrawlCrawler runs one Firecrawl crawl per root.
type FirecrawlCrawler struct {
	client  firecrawl.Client
	matcher *PathMatcher
	timeout time.Duration
	breaker *resilience.Breaker
	poller  firecrawl.Poller
}

// FirecrawlOption configures a FirecrawlCrawler.
type FirecrawlOption func(*FirecrawlCrawler)

// WithCrawlTimeout sets the service-side crawl timeout.
func WithCrawlTimeout(d time.Duration) FirecrawlOption {
	return func(f *FirecrawlCrawler) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBreaker guards crawl calls with a circuit breaker.
func WithBreaker(cb *resilience.Breaker) FirecrawlOption {
	return func(f *FirecrawlCrawler) {
		f.breaker = cb
	}
}

// WithPoller tunes polling for services that answer with a job id.
func WithPoller(p firecrawl.Poller) FirecrawlOption {
	return func(f *FirecrawlCrawler) {
		f.poller = p
	}
}

// NewFirecrawlCrawler wraps a Firecrawl client as a Crawler.
func NewFirecrawlCrawler(client firecrawl.Client, matcher *PathMatcher, opts ...FirecrawlOption) *FirecrawlCrawler {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	f := &FirecrawlCrawler{
		client:  client,
		matcher: matcher,
		timeout: defaultFirecrawlTimeout,
		poller:  firecrawl.DefaultPoller(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Crawler.
func (f *FirecrawlCrawler) Name() string { return "firecrawl" }

// Timeout returns the crawl timeout sent to the service.
func (f *FirecrawlCrawler) Timeout() time.Duration { return f.timeout }

// Crawl implements Crawler. It makes a single request and never retries.
func (f *FirecrawlCrawler) Crawl(ctx context.Context, root string, maxPages int) model.PageMap {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	log := zap.L().With(zap.String("crawler", f.Name()), zap.String("url", root))

	run := func(ctx context.Context) (*firecrawl.CrawlResponse, error) {
		resp, err := f.client.Crawl(ctx, firecrawl.CrawlRequest{
			URL:          root,
			MaxDepth:     firecrawlMaxDepth,
			MaxPages:     maxPages,
			IncludePaths: f.matcher.Patterns(),
			ReturnFormat: "markdown",
			Timeout:      int(f.timeout / time.Millisecond),
		})
		if err != nil {
			return nil, err
		}
		if resp.ID != "" && len(resp.Pages) == 0 {
			pollCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			return f.poller.Wait(pollCtx, f.client, resp.ID)
		}
		return resp, nil
	}

	resp, err := resilience.Guard(ctx, f.breaker, run)
	if err != nil {
		log.Warn("scrape: firecrawl crawl failed", zap.Error(err))
		return model.ErrorPageMap("firecrawl_error: " + err.Error())
	}

	out := make(model.PageMap)
	for _, p := range resp.Pages {
		if len(out) >= maxPages {
			break
		}
		u := p.URL
		if u == "" {
			u = root
		}
		out[u] = p.Content
	}
	if len(out) == 0 {
		return model.ErrorPageMap("firecrawl_no_pages_returned")
	}

	log.Debug("scrape: firecrawl crawl complete", zap.Int("pages", len(out)))
	return out
}

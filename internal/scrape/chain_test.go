package scrape

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/outreach-cli/internal/model"
)

// stubCrawler returns a canned PageMap and counts calls.
type stubCrawler struct {
	name  string
	pages model.PageMap
	calls int
}

func (s *stubCrawler) Name() string { return s.name }

func (s *stubCrawler) Crawl(_ context.Context, _ string, _ int) model.PageMap {
	s.calls++
	return s.pages
}

// richText is long and varied enough to pass the thin check.
func richText() string {
	return strings.Repeat("The quick brown fox jumps over the lazy dog 0123456789! ABCDEFGHIJKLMNOPQRSTUVWXYZ. ", 10)
}

func TestLooksThin(t *testing.T) {
	assert.True(t, LooksThin("", 500, 50))
	assert.True(t, LooksThin(strings.Repeat("a", 499), 500, 50))
	assert.True(t, LooksThin(strings.Repeat("ab", 1000), 500, 50))
	assert.False(t, LooksThin(richText(), 500, 50))
	assert.False(t, LooksThin("abc", 3, 3))
}

func TestChain_PrimaryGood(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.PageMap{"https://acme.com": richText()}}
	fallback := &stubCrawler{name: "browser"}

	pages, path := NewChain(primary, fallback).Crawl(context.Background(), "https://acme.com", 8)

	assert.Equal(t, model.PathFirecrawlOnly, path)
	assert.Equal(t, primary.pages, pages)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_FallbackOnError(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.ErrorPageMap("firecrawl_error: boom")}
	fallback := &stubCrawler{name: "browser", pages: model.PageMap{"https://acme.com": richText()}}

	pages, path := NewChain(primary, fallback).Crawl(context.Background(), "https://acme.com", 8)

	assert.Equal(t, model.PathFirecrawlFallback, path)
	assert.Equal(t, fallback.pages, pages)
	assert.Equal(t, 1, fallback.calls)
}

func TestChain_FallbackOnThin(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.PageMap{"https://acme.com": "Hello"}}
	fallback := &stubCrawler{name: "browser", pages: model.PageMap{"https://acme.com": model.PageError("timeout")}}

	pages, path := NewChain(primary, fallback).Crawl(context.Background(), "https://acme.com", 8)

	// The fallback result is returned even when it is unusable.
	assert.Equal(t, model.PathFirecrawlFallback, path)
	assert.Equal(t, fallback.pages, pages)
	assert.Equal(t, 1, fallback.calls)
}

func TestChain_ThresholdsConfigurable(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.PageMap{"https://acme.com": "Hello there"}}
	fallback := &stubCrawler{name: "browser"}

	c := NewChain(primary, fallback)
	c.MinChars = 5
	c.MinDistinct = 5

	_, path := c.Crawl(context.Background(), "https://acme.com", 8)
	assert.Equal(t, model.PathFirecrawlOnly, path)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_NoFallbackConfigured(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.ErrorPageMap("firecrawl_no_pages_returned")}

	pages, path := NewChain(primary, nil).Crawl(context.Background(), "https://acme.com", 8)
	assert.Equal(t, model.PathFirecrawlOnly, path)
	assert.True(t, pages.Failed())
}

func TestChain_KeepsThinPrimaryWhenFallbackUnusable(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.PageMap{"https://acme.com": "Acme. Est. 2009."}}
	fallback := &stubCrawler{name: "browser", pages: model.PageMap{"https://acme.com": model.PageError("timeout")}}

	pages, path := NewChain(primary, fallback).Crawl(context.Background(), "https://acme.com", 8)

	assert.Equal(t, model.PathFirecrawlFallback, path)
	assert.Equal(t, primary.pages, pages)
	assert.Equal(t, 1, fallback.calls)
}

func TestChain_BothUnusableReturnsFallback(t *testing.T) {
	primary := &stubCrawler{name: "firecrawl", pages: model.ErrorPageMap("firecrawl_error: 503")}
	fallback := &stubCrawler{name: "browser", pages: model.PageMap{"https://acme.com": model.PageError("timeout")}}

	pages, path := NewChain(primary, fallback).Crawl(context.Background(), "https://acme.com", 8)

	assert.Equal(t, model.PathFirecrawlFallback, path)
	assert.Equal(t, fallback.pages, pages)
}

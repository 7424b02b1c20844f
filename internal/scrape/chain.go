package scrape

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

const (
	DefaultThinMinChars    = 500
	DefaultThinMinDistinct = 50
)

// LooksThin reports whether text is too short or too repetitive to mine:
// fewer than minChars characters or fewer than minDistinct distinct ones.
func LooksThin(text string, minChars, minDistinct int) bool {
	if utf8.RuneCountInString(text) < minChars {
		return true
	}
	distinct := make(map[rune]struct{}, minDistinct)
	for _, r := range text {
		distinct[r] = struct{}{}
		if len(distinct) >= minDistinct {
			return false
		}
	}
	return len(distinct) < minDistinct
}

// Chain runs the primary crawler and falls back once when its result
// failed or looks thin.
type Chain struct {
	Primary     Crawler
	Fallback    Crawler // optional
	MinChars    int
	MinDistinct int
}

// NewChain creates a Chain with default thin thresholds.
func NewChain(primary, fallback Crawler) *Chain {
	return &Chain{
		Primary:     primary,
		Fallback:    fallback,
		MinChars:    DefaultThinMinChars,
		MinDistinct: DefaultThinMinDistinct,
	}
}

// NeedsFallback reports whether a primary result should trigger the
// fallback crawler.
func (c *Chain) NeedsFallback(pages model.PageMap) bool {
	if pages.Failed() {
		return true
	}
	return LooksThin(pages.Text(), c.minChars(), c.minDistinct())
}

// Crawl returns the pages to mine and which path produced them.
func (c *Chain) Crawl(ctx context.Context, root string, maxPages int) (model.PageMap, model.CrawlPath) {
	pages := c.Primary.Crawl(ctx, root, maxPages)
	if c.Fallback == nil || !c.NeedsFallback(pages) {
		return pages, model.PathFirecrawlOnly
	}

	zap.L().Warn("scrape: primary crawl unusable, running fallback",
		zap.String("url", root),
		zap.String("primary", c.Primary.Name()),
		zap.String("fallback", c.Fallback.Name()),
		zap.String("reason", fallbackReason(pages)),
	)
	fallback := c.Fallback.Crawl(ctx, root, maxPages)
	if !fallback.Usable() && pages.Usable() {
		zap.L().Warn("scrape: fallback crawl unusable, keeping thin primary pages",
			zap.String("url", root),
			zap.String("fallback", c.Fallback.Name()),
		)
		return pages, model.PathFirecrawlFallback
	}
	return fallback, model.PathFirecrawlFallback
}

func fallbackReason(pages model.PageMap) string {
	if pages.Failed() {
		if e := pages.Error(); e != "" {
			return e
		}
		return "no pages"
	}
	return "thin content"
}

func (c *Chain) minChars() int {
	if c.MinChars <= 0 {
		return DefaultThinMinChars
	}
	return c.MinChars
}

func (c *Chain) minDistinct() int {
	if c.MinDistinct <= 0 {
		return DefaultThinMinDistinct
	}
	return c.MinDistinct
}

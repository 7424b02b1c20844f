package scrape

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

const defaultNavTimeout = 15 * time.Second

// Rendered is one page as produced by a Renderer.
type Rendered struct {
	Text  string
	HTML  string
	Links []string // absolute URLs; may be empty when HTML is set
}

// Renderer loads a single URL and returns its visible content.
type Renderer interface {
	Render(ctx context.Context, url string) (*Rendered, error)
}

// BrowserCrawler renders the root, follows allow-listed same-origin links
// and renders each of them in turn.
type BrowserCrawler struct {
	renderer   Renderer
	matcher    *PathMatcher
	navTimeout time.Duration
}

// NewBrowserCrawler creates a BrowserCrawler. A non-positive navTimeout
// uses 15s.
func NewBrowserCrawler(r Renderer, matcher *PathMatcher, navTimeout time.Duration) *BrowserCrawler {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	if navTimeout <= 0 {
		navTimeout = defaultNavTimeout
	}
	return &BrowserCrawler{renderer: r, matcher: matcher, navTimeout: navTimeout}
}

// Name implements Crawler.
func (b *BrowserCrawler) Name() string { return "browser" }

// Crawl implements Crawler. A failed page is recorded under its URL with an
// error marker; a failed root ends the crawl.
func (b *BrowserCrawler) Crawl(ctx context.Context, root string, maxPages int) model.PageMap {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	log := zap.L().With(zap.String("crawler", b.Name()), zap.String("url", root))
	out := make(model.PageMap)

	home, err := b.render(ctx, root)
	if err != nil {
		log.Warn("scrape: root render failed", zap.Error(err))
		out[root] = model.PageError(err.Error())
		return out
	}
	out[root] = home.Text

	links := home.Links
	if len(links) == 0 && home.HTML != "" {
		if links, err = ExtractLinks(home.HTML, root); err != nil {
			log.Debug("scrape: link extraction failed", zap.Error(err))
		}
	}

	for _, link := range FollowLinks(links, root, b.matcher, maxPages-1) {
		if ctx.Err() != nil {
			break
		}
		page, err := b.render(ctx, link)
		if err != nil {
			log.Debug("scrape: page render failed", zap.String("page", link), zap.Error(err))
			out[link] = model.PageError(err.Error())
			continue
		}
		out[link] = page.Text
	}

	log.Debug("scrape: browser crawl complete", zap.Int("pages", len(out)))
	return out
}

func (b *BrowserCrawler) render(ctx context.Context, url string) (*Rendered, error) {
	navCtx, cancel := context.WithTimeout(ctx, b.navTimeout)
	defer cancel()

	page, err := b.renderer.Render(navCtx, url)
	if err != nil {
		return nil, err
	}
	if kind := DetectChallenge(page.Text); kind.Blocked() {
		return nil, &BlockedError{URL: url, Type: kind}
	}
	return page, nil
}

// BlockedError reports a page that rendered as an anti-bot challenge.
type BlockedError struct {
	URL  string
	Type BlockType
}

func (e *BlockedError) Error() string {
	return "blocked (" + string(e.Type) + "): " + e.URL
}

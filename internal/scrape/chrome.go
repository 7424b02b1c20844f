package scrape

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// visibleContentJS collects text from nodes that are not hidden by computed
// style, the h1-h3 headings, and every anchor's resolved href.
const visibleContentJS = `(() => {
  const hidden = (el) => {
    for (let e = el; e && e.nodeType === 1; e = e.parentElement) {
      const s = window.getComputedStyle(e);
      if (s.display === 'none' || s.visibility === 'hidden') return true;
    }
    return false;
  };
  const skip = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE']);
  const text = [];
  if (document.body) {
    const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
    let n;
    while ((n = walker.nextNode())) {
      const t = n.textContent.trim();
      const p = n.parentElement;
      if (!t || !p || skip.has(p.tagName) || hidden(p)) continue;
      text.push(t);
    }
  }
  const headings = Array.from(document.querySelectorAll('h1, h2, h3'))
    .map((h) => h.innerText.trim()).filter(Boolean);
  const links = Array.from(document.querySelectorAll('a[href]')).map((a) => a.href);
  return {text, headings, links};
})()`

type visibleContent struct {
	Text     []string `json:"text"`
	Headings []string `json:"headings"`
	Links    []string `json:"links"`
}

// ChromeOption configures a ChromeRenderer.
type ChromeOption func(*chromeConfig)

type chromeConfig struct {
	headless  bool
	userAgent string
}

// WithHeadless toggles headless mode (default true).
func WithHeadless(v bool) ChromeOption {
	return func(c *chromeConfig) { c.headless = v }
}

// WithUserAgent overrides the browser user agent.
func WithUserAgent(ua string) ChromeOption {
	return func(c *chromeConfig) { c.userAgent = ua }
}

// ChromeRenderer renders pages in a shared headless Chrome, one tab per
// page. Requires Chrome or Chromium on the host.
type ChromeRenderer struct {
	cfg chromeConfig

	once       sync.Once
	browserCtx context.Context
	cancel     []context.CancelFunc
	startErr   error
}

// NewChromeRenderer creates a renderer. The browser starts lazily on the
// first Render call.
func NewChromeRenderer(opts ...ChromeOption) *ChromeRenderer {
	cfg := chromeConfig{headless: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ChromeRenderer{cfg: cfg}
}

func (c *ChromeRenderer) start() error {
	c.once.Do(func() {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", c.cfg.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if c.cfg.userAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(c.cfg.userAgent))
		}

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)
		c.cancel = []context.CancelFunc{browserCancel, allocCancel}

		// Run with no actions launches the browser.
		if err := chromedp.Run(browserCtx); err != nil {
			c.startErr = eris.Wrap(err, "chrome: launch browser")
			return
		}
		c.browserCtx = browserCtx
	})
	return c.startErr
}

// Render implements Renderer.
func (c *ChromeRenderer) Render(ctx context.Context, url string) (*Rendered, error) {
	if err := c.start(); err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()

	// Tie the tab to the caller's deadline.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var (
		content visibleContent
		html    string
	)
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(visibleContentJS, &content),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "chrome: render %s", url)
		}
		return nil, eris.Wrapf(err, "chrome: render %s", url)
	}

	return &Rendered{
		Text:  joinContent(content.Headings, content.Text),
		HTML:  html,
		Links: content.Links,
	}, nil
}

// Close shuts down the browser.
func (c *ChromeRenderer) Close() {
	for _, cancel := range c.cancel {
		cancel()
	}
}

// joinContent renders headings as markdown headings ahead of the body text
// so downstream hero detection sees them.
func joinContent(headings, text []string) string {
	var b strings.Builder
	for _, h := range headings {
		b.WriteString("# ")
		b.WriteString(strings.Join(strings.Fields(h), " "))
		b.WriteString("\n")
	}
	for _, t := range text {
		b.WriteString(t)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

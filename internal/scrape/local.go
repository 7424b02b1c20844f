package scrape

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; OutreachBot/1.0)"

// HTTPRenderer fetches HTML over plain HTTP and extracts text with goquery.
// It runs no JavaScript, so it stands in for the browser on hosts without
// Chrome.
type HTTPRenderer struct {
	client    *http.Client
	userAgent string
}

// NewHTTPRenderer creates an HTTPRenderer with sensible defaults.
func NewHTTPRenderer(userAgent string) *HTTPRenderer {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPRenderer{
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Render implements Renderer.
func (h *HTTPRenderer) Render(ctx context.Context, targetURL string) (*Rendered, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	if kind := DetectBlock(resp, body); kind.Blocked() {
		return nil, &BlockedError{URL: targetURL, Type: kind}
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}

	// Resolve links against the final URL after redirects.
	base := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL.String()
	}
	links, _ := ExtractLinks(string(body), base)

	return &Rendered{
		Text:  visibleText(doc),
		HTML:  string(body),
		Links: links,
	}, nil
}

// visibleText drops non-content elements and inline-hidden nodes, then
// returns headings (as markdown) followed by block text.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, [hidden], [aria-hidden=true]").Remove()
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			s.Remove()
		}
	})

	var headings []string
	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			headings = append(headings, t)
		}
	})

	var text []string
	doc.Find("p, li, td, blockquote, figcaption, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			text = append(text, t)
		}
	})
	if len(text) == 0 {
		if t := strings.Join(strings.Fields(doc.Find("body").Text()), " "); t != "" {
			text = append(text, t)
		}
	}
	return joinContent(headings, text)
}

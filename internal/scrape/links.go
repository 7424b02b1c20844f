package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// ExtractLinks returns every a[href] in the document resolved against base.
func ExtractLinks(html, base string) ([]string, error) {
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, eris.Errorf("scrape: invalid base url %q", base)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, baseURL.ResolveReference(ref).String())
	})
	return links, nil
}

// FollowLinks keeps links on root's host whose path the matcher allows,
// dropping the root itself and case-insensitive duplicates. At most limit
// links are returned.
func FollowLinks(links []string, root string, matcher *PathMatcher, limit int) []string {
	rootURL, err := url.Parse(root)
	if err != nil || limit <= 0 {
		return nil
	}
	host := strings.ToLower(rootURL.Host)

	seen := map[string]bool{strings.ToLower(cleanLink(rootURL)): true}
	var out []string
	for _, l := range links {
		u, err := url.Parse(strings.TrimSpace(l))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if strings.ToLower(u.Host) != host {
			continue
		}
		clean := cleanLink(u)
		key := strings.ToLower(clean)
		if seen[key] || !matcher.Allows(clean) {
			continue
		}
		seen[key] = true
		out = append(out, clean)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// cleanLink drops the fragment and trailing slashes.
func cleanLink(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return strings.TrimRight(c.String(), "/")
}

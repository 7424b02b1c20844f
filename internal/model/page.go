package model

import (
	"sort"
	"strings"
)

// Category is the semantic bucket a page URL falls into.
type Category string

const (
	CategoryHome      Category = "home"
	CategoryAbout     Category = "about"
	CategoryServices  Category = "services"
	CategoryCases     Category = "cases"
	CategoryPortfolio Category = "portfolio"
	CategoryClients   Category = "clients"
	CategoryBlog      Category = "blog"
	CategoryNews      Category = "news"
	CategoryGeneric   Category = "generic"
)

// AllCategories returns every defined category.
func AllCategories() []Category {
	return []Category{
		CategoryHome,
		CategoryAbout,
		CategoryServices,
		CategoryCases,
		CategoryPortfolio,
		CategoryClients,
		CategoryBlog,
		CategoryNews,
		CategoryGeneric,
	}
}

// PriorityCategories returns the categories handed to the generator when the
// caller does not ask for specific ones, highest value first.
func PriorityCategories() []Category {
	return []Category{
		CategoryNews,
		CategoryBlog,
		CategoryCases,
		CategoryClients,
		CategoryServices,
		CategoryHome,
		CategoryAbout,
		CategoryGeneric,
	}
}

// IsValid reports whether c is one of the defined categories.
func (c Category) IsValid() bool {
	for _, v := range AllCategories() {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategories converts raw strings into categories, dropping unknown values.
func ParseCategories(raw []string) []Category {
	var out []Category
	for _, r := range raw {
		c := Category(strings.ToLower(strings.TrimSpace(r)))
		if c.IsValid() {
			out = append(out, c)
		}
	}
	return out
}

// ErrorKey is the reserved PageMap key marking a failed crawl.
const ErrorKey = "__error__"

// ErrorPrefix marks the text of a single page whose fetch failed.
const ErrorPrefix = "__error__:"

// PageMap maps fetched URL to page text. A crawl that failed as a whole
// contains only ErrorKey.
type PageMap map[string]string

// ErrorPageMap returns a PageMap carrying only the error sentinel.
func ErrorPageMap(reason string) PageMap {
	return PageMap{ErrorKey: reason}
}

// Failed reports whether the map carries the crawl-level error sentinel and
// nothing else usable.
func (m PageMap) Failed() bool {
	if len(m) == 0 {
		return true
	}
	_, hasErr := m[ErrorKey]
	return hasErr && len(m.Pages()) == 0
}

// Usable reports whether at least one page was fetched successfully. A map
// holding only per-page error markers is not usable.
func (m PageMap) Usable() bool {
	return len(m.Pages()) > 0
}

// Error returns the crawl-level error reason, if any.
func (m PageMap) Error() string {
	return m[ErrorKey]
}

// Pages returns the successfully fetched pages sorted by URL.
func (m PageMap) Pages() []Page {
	pages := make([]Page, 0, len(m))
	for u, text := range m {
		if u == ErrorKey || IsPageError(text) {
			continue
		}
		pages = append(pages, Page{URL: u, Text: text})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	return pages
}

// Text concatenates the text of every successful page.
func (m PageMap) Text() string {
	var b strings.Builder
	for _, p := range m.Pages() {
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// IsPageError reports whether page text is a per-page error marker.
func IsPageError(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

// PageError builds a per-page error marker.
func PageError(reason string) string {
	return ErrorPrefix + " " + reason
}

// Page is a single fetched page.
type Page struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// CrawlPath records which crawl strategy produced the pages.
type CrawlPath string

const (
	PathFirecrawlOnly     CrawlPath = "FIRECRAWL_ONLY"
	PathFirecrawlFallback CrawlPath = "FIRECRAWL_FALLBACK_PLAYWRIGHT"
	PathCache             CrawlPath = "CACHE"
	PathNone              CrawlPath = "N/A"
)

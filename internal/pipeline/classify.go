package pipeline

import (
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// categoryKeywords is checked in order; the first row with a keyword
// contained in the path wins.
var categoryKeywords = []struct {
	category model.Category
	keywords []string
}{
	{model.CategoryAbout, []string{"about", "team", "leadership"}},
	{model.CategoryServices, []string{"service", "capabilit", "what-we-do"}},
	{model.CategoryCases, []string{"case", "work", "success", "story"}},
	{model.CategoryPortfolio, []string{"portfolio"}},
	{model.CategoryClients, []string{"client", "logo", "partners"}},
	{model.CategoryBlog, []string{"blog", "insight", "article"}},
	{model.CategoryNews, []string{"news", "press", "media", "release"}},
}

// urlPath returns the lowercased text after the first "/" that follows the
// host, ignoring any scheme.
func urlPath(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	i := strings.Index(s, "/")
	if i < 0 {
		return ""
	}
	return strings.ToLower(s[i+1:])
}

// ClassifyURL maps a URL to a category from keywords in its path. It is
// total: anything unrecognized is generic.
func ClassifyURL(raw string) model.Category {
	p := strings.Trim(urlPath(raw), "/")
	if p == "" || p == "index.html" {
		return model.CategoryHome
	}
	for _, row := range categoryKeywords {
		for _, kw := range row.keywords {
			if strings.Contains(p, kw) {
				return row.category
			}
		}
	}
	return model.CategoryGeneric
}

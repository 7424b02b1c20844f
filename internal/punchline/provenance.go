// Package punchline generates, filters and ranks personalized cold-email
// opening lines from extracted website evidence.
package punchline

import (
	"slices"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultWhere is used in the prompt when no evidence category yields a phrase.
const DefaultWhere = "on your site"

const maxWhereLabels = 2

type provenanceEntry struct {
	category model.Category
	phrases  []string
}

// provenance lists the natural "where" phrases per category. Order matters:
// DetectCategory returns the first category whose phrase appears in a line.
var provenance = []provenanceEntry{
	{model.CategoryHome, []string{"on your homepage", "in your main pitch", "right up front"}},
	{model.CategoryAbout, []string{"on your About page", "in your story"}},
	{model.CategoryServices, []string{"across your services", "in how you position the offer"}},
	{model.CategoryCases, []string{"in your case work", "in your client stories", "across the case studies"}},
	{model.CategoryPortfolio, []string{"through the portfolio", "across your work"}},
	{model.CategoryClients, []string{"among your client logos", "in the clientele you show"}},
	{model.CategoryBlog, []string{"in a recent post", "on the blog", "in your writing"}},
	{model.CategoryNews, []string{"in your latest update", "in the recent press", "in news/press"}},
	{model.CategoryGeneric, []string{DefaultWhere}},
}

// Phrases returns the provenance phrases for a category.
func Phrases(c model.Category) []string {
	for _, e := range provenance {
		if e.category == c {
			return e.phrases
		}
	}
	return nil
}

// WhereLabels picks the first phrase of each evidence category, in the order
// categories first appear, deduplicated case-insensitively and capped at two.
func WhereLabels(evidence []model.Evidence) []string {
	var out []string
	seen := make(map[string]bool)
	for _, ev := range evidence {
		phrases := Phrases(ev.Category)
		if len(phrases) == 0 {
			continue
		}
		key := strings.ToLower(phrases[0])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, phrases[0])
		if len(out) == maxWhereLabels {
			break
		}
	}
	return out
}

// DetectCategory returns the category of the first provenance phrase found in
// line, or fallback when none appears. When allowed is given, phrases of other
// categories are ignored.
func DetectCategory(line string, fallback model.Category, allowed ...model.Category) model.Category {
	low := strings.ToLower(line)
	for _, e := range provenance {
		if len(allowed) > 0 && !slices.Contains(allowed, e.category) {
			continue
		}
		for _, p := range e.phrases {
			if strings.Contains(low, strings.ToLower(p)) {
				return e.category
			}
		}
	}
	return fallback
}

func hasProvenance(line string) bool {
	return DetectCategory(line, "") != ""
}

// evidenceCategories lists the distinct categories of evidence in order.
func evidenceCategories(evidence []model.Evidence) []model.Category {
	var out []model.Category
	for _, ev := range evidence {
		if !slices.Contains(out, ev.Category) {
			out = append(out, ev.Category)
		}
	}
	return out
}

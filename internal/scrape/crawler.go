// Package scrape crawls a target site through a managed crawl service with a
// headless-browser fallback.
package scrape

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// DefaultMaxPages is the per-root page budget.
const DefaultMaxPages = 8

// Crawler fetches up to maxPages pages starting at root. Failures are
// reported inside the returned PageMap, never as an error.
type Crawler interface {
	Crawl(ctx context.Context, root string, maxPages int) model.PageMap
	Name() string
}

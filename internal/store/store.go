// Package store persists crawl caches, pipeline runs and leads.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// DefaultSQLitePath is used when the sqlite driver has no DSN.
const DefaultSQLitePath = "outreach.db"

// ErrNoLeadKey is returned by UpsertLead when a lead has no email, website or
// LinkedIn URL to match on.
var ErrNoLeadKey = errors.New("store: lead has no email, website or linkedin url")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	URL    string `json:"url,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// CrawlCache caches crawl results per normalized root URL.
type CrawlCache interface {
	// GetCachedCrawl returns nil, nil on a miss or an expired entry.
	GetCachedCrawl(ctx context.Context, url string) (*model.CrawlCache, error)
	SetCachedCrawl(ctx context.Context, url string, pages model.PageMap, path model.CrawlPath, ttl time.Duration) error
	DeleteExpiredCrawls(ctx context.Context) (int, error)
}

// Store defines the persistence interface for the punchline pipeline.
type Store interface {
	CrawlCache

	// Runs
	SaveRun(ctx context.Context, res *model.Result) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Result, error)

	// Leads
	UpsertLead(ctx context.Context, lead model.Lead) (string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver, or nil when the driver is "none" or
// empty.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		st, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case DriverPostgres:
		if dsn == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		st, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// leadKey picks the column a lead is deduplicated on: email, else website,
// else LinkedIn URL.
func leadKey(l model.Lead) (column, value string, err error) {
	switch {
	case strings.TrimSpace(l.Email) != "":
		return "email", strings.ToLower(strings.TrimSpace(l.Email)), nil
	case strings.TrimSpace(l.WebsiteURL) != "":
		return "website_url", strings.TrimSpace(l.WebsiteURL), nil
	case strings.TrimSpace(l.LinkedInURL) != "":
		return "linkedin_url", strings.TrimSpace(l.LinkedInURL), nil
	}
	return "", "", ErrNoLeadKey
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. Connecting is
// retried with backoff.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	retry := resilience.DefaultPolicy("postgres.connect")
	retry.Retryable = func(err error) bool { return !errors.Is(err, context.DeadlineExceeded) }

	pool, err := resilience.Retry(ctx, retry, func(ctx context.Context) (*pgxpool.Pool, error) {
		p, err := pgxpool.NewWithConfig(ctx, pgxCfg)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: create pool")
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return nil, eris.Wrap(err, "postgres: ping")
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url        TEXT NOT NULL,
	company    TEXT NOT NULL,
	path       TEXT NOT NULL,
	result     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS crawl_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url        TEXT NOT NULL UNIQUE,
	pages      JSONB NOT NULL,
	path       TEXT NOT NULL,
	crawled_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	website_url  TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	punchline    TEXT NOT NULL DEFAULT '',
	scrape_path  TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_crawl_cache_expires_at ON crawl_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
CREATE INDEX IF NOT EXISTS idx_leads_website_url ON leads(website_url);
CREATE INDEX IF NOT EXISTS idx_leads_linkedin_url ON leads(linkedin_url);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, res *model.Result) error {
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, url, company, path, result, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		res.RunID, res.URL, res.Company, string(res.Path), resultJSON, res.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", res.RunID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Result, error) {
	query := `SELECT result FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, argIdx)
		args = append(args, filter.URL)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Result
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		var r model.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) GetCachedCrawl(ctx context.Context, url string) (*model.CrawlCache, error) {
	var cc model.CrawlCache
	var pagesJSON []byte
	var path string

	err := s.pool.QueryRow(ctx,
		`SELECT id, url, pages, path, crawled_at, expires_at FROM crawl_cache
		 WHERE url = $1 AND expires_at > now()`,
		url,
	).Scan(&cc.ID, &cc.URL, &pagesJSON, &path, &cc.CrawledAt, &cc.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached crawl")
	}
	cc.Path = model.CrawlPath(path)
	if err := json.Unmarshal(pagesJSON, &cc.Pages); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached pages")
	}
	return &cc, nil
}

func (s *PostgresStore) SetCachedCrawl(ctx context.Context, url string, pages model.PageMap, path model.CrawlPath, ttl time.Duration) error {
	now := time.Now().UTC()
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pages")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO crawl_cache (id, url, pages, path, crawled_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (url) DO UPDATE SET pages = $3, path = $4, crawled_at = $5, expires_at = $6`,
		uuid.New().String(), url, pagesJSON, string(path), now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached crawl")
}

func (s *PostgresStore) DeleteExpiredCrawls(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM crawl_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired crawls")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) (string, error) {
	col, val, err := leadKey(lead)
	if err != nil {
		return "", err
	}
	if lead.Email != "" {
		lead.Email = val
	}

	var id string
	// col comes from leadKey's fixed set.
	err = s.pool.QueryRow(ctx, `SELECT id FROM leads WHERE `+col+` = $1 LIMIT 1`, val).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		id = uuid.New().String()
		_, err = s.pool.Exec(ctx,
			`INSERT INTO leads (id, first_name, last_name, email, title, company, website_url,
			 linkedin_url, punchline, scrape_path, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`,
			id, lead.FirstName, lead.LastName, lead.Email, lead.Title, lead.Company, lead.WebsiteURL,
			lead.LinkedInURL, lead.Punchline, string(lead.ScrapePath),
		)
		return id, eris.Wrap(err, "postgres: insert lead")
	case err != nil:
		return "", eris.Wrap(err, "postgres: find lead")
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE leads SET
		 first_name   = COALESCE(NULLIF($1, ''), first_name),
		 last_name    = COALESCE(NULLIF($2, ''), last_name),
		 email        = COALESCE(NULLIF($3, ''), email),
		 title        = COALESCE(NULLIF($4, ''), title),
		 company      = COALESCE(NULLIF($5, ''), company),
		 website_url  = COALESCE(NULLIF($6, ''), website_url),
		 linkedin_url = COALESCE(NULLIF($7, ''), linkedin_url),
		 punchline    = COALESCE(NULLIF($8, ''), punchline),
		 scrape_path  = COALESCE(NULLIF($9, ''), scrape_path),
		 updated_at   = now()
		 WHERE id = $10`,
		lead.FirstName, lead.LastName, lead.Email, lead.Title, lead.Company, lead.WebsiteURL,
		lead.LinkedInURL, lead.Punchline, string(lead.ScrapePath), id,
	)
	return id, eris.Wrapf(err, "postgres: update lead %s", id)
}

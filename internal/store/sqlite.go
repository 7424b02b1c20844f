package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	company    TEXT NOT NULL,
	path       TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS crawl_cache (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL UNIQUE,
	pages      TEXT NOT NULL,
	path       TEXT NOT NULL,
	crawled_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	website_url  TEXT NOT NULL DEFAULT '',
	linkedin_url TEXT NOT NULL DEFAULT '',
	punchline    TEXT NOT NULL DEFAULT '',
	scrape_path  TEXT NOT NULL DEFAULT '',
	updated_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_url ON runs(url);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_crawl_cache_expires_at ON crawl_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_leads_email ON leads(email);
CREATE INDEX IF NOT EXISTS idx_leads_website_url ON leads(website_url);
CREATE INDEX IF NOT EXISTS idx_leads_linkedin_url ON leads(linkedin_url);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, res *model.Result) error {
	if res.RunID == "" {
		res.RunID = uuid.New().String()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = s.now()
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, url, company, path, result, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		res.RunID, res.URL, res.Company, string(res.Path), string(resultJSON), res.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", res.RunID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Result, error) {
	query := `SELECT result FROM runs WHERE 1=1`
	var args []any
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Result
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		var r model.Result
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetCachedCrawl(ctx context.Context, url string) (*model.CrawlCache, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, pages, path, crawled_at, expires_at FROM crawl_cache
		 WHERE url = ? AND expires_at > ?`,
		url, s.now(),
	)

	var cc model.CrawlCache
	var pagesJSON, path string
	err := row.Scan(&cc.ID, &cc.URL, &pagesJSON, &path, &cc.CrawledAt, &cc.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached crawl")
	}
	cc.Path = model.CrawlPath(path)
	if err := json.Unmarshal([]byte(pagesJSON), &cc.Pages); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached pages")
	}
	return &cc, nil
}

func (s *SQLiteStore) SetCachedCrawl(ctx context.Context, url string, pages model.PageMap, path model.CrawlPath, ttl time.Duration) error {
	now := s.now()
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pages")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crawl_cache (id, url, pages, path, crawled_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET pages = excluded.pages, path = excluded.path,
		 crawled_at = excluded.crawled_at, expires_at = excluded.expires_at`,
		uuid.New().String(), url, string(pagesJSON), string(path), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached crawl")
}

func (s *SQLiteStore) DeleteExpiredCrawls(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM crawl_cache WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired crawls")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) (string, error) {
	col, val, err := leadKey(lead)
	if err != nil {
		return "", err
	}
	if lead.Email != "" {
		lead.Email = val
	}

	var id string
	// col comes from leadKey's fixed set.
	err = s.db.QueryRowContext(ctx, `SELECT id FROM leads WHERE `+col+` = ? LIMIT 1`, val).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO leads (id, first_name, last_name, email, title, company, website_url,
			 linkedin_url, punchline, scrape_path, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, lead.FirstName, lead.LastName, lead.Email, lead.Title, lead.Company, lead.WebsiteURL,
			lead.LinkedInURL, lead.Punchline, string(lead.ScrapePath), s.now(),
		)
		return id, eris.Wrap(err, "sqlite: insert lead")
	case err != nil:
		return "", eris.Wrap(err, "sqlite: find lead")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE leads SET
		 first_name   = COALESCE(NULLIF(?, ''), first_name),
		 last_name    = COALESCE(NULLIF(?, ''), last_name),
		 email        = COALESCE(NULLIF(?, ''), email),
		 title        = COALESCE(NULLIF(?, ''), title),
		 company      = COALESCE(NULLIF(?, ''), company),
		 website_url  = COALESCE(NULLIF(?, ''), website_url),
		 linkedin_url = COALESCE(NULLIF(?, ''), linkedin_url),
		 punchline    = COALESCE(NULLIF(?, ''), punchline),
		 scrape_path  = COALESCE(NULLIF(?, ''), scrape_path),
		 updated_at   = ?
		 WHERE id = ?`,
		lead.FirstName, lead.LastName, lead.Email, lead.Title, lead.Company, lead.WebsiteURL,
		lead.LinkedInURL, lead.Punchline, string(lead.ScrapePath), s.now(), id,
	)
	return id, eris.Wrapf(err, "sqlite: update lead %s", id)
}

// GetLead returns a lead by id.
func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	var l model.Lead
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, title, company, website_url, linkedin_url,
		 punchline, scrape_path, updated_at FROM leads WHERE id = ?`, id,
	).Scan(&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Title, &l.Company, &l.WebsiteURL,
		&l.LinkedInURL, &l.Punchline, &path, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get lead")
	}
	l.ScrapePath = model.CrawlPath(path)
	return &l, nil
}

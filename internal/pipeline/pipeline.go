// Package pipeline turns a target website into ranked cold-email opening
// lines: crawl, classify, extract, select evidence, generate, rank.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/punchline"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/internal/store"
)

// ErrEmptyURL is returned by Run when no target URL is given.
var ErrEmptyURL = eris.New("pipeline: empty url")

// DefaultCacheTTL is how long crawl results stay cached.
const DefaultCacheTTL = 24 * time.Hour

// SiteCrawler fetches a site and reports which crawl path produced it.
// *scrape.Chain implements it.
type SiteCrawler interface {
	Crawl(ctx context.Context, root string, maxPages int) (model.PageMap, model.CrawlPath)
}

// Generator produces k candidate lines from evidence.
// *punchline.Generator implements it.
type Generator interface {
	Generate(ctx context.Context, company string, evidence []model.Evidence, k int, categories []model.Category) []model.Candidate
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, res *model.Result) error
}

// Pipeline wires the crawl chain, extractor and generator together.
type Pipeline struct {
	crawler     SiteCrawler
	extractor   *Extractor
	generator   Generator
	cache       store.CrawlCache
	runs        RunRecorder
	k           int
	maxPages    int
	maxEvidence int
	cacheTTL    time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache enables crawl caching. A non-positive ttl uses DefaultCacheTTL.
func WithCache(c store.CrawlCache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		if ttl > 0 {
			p.cacheTTL = ttl
		}
	}
}

// WithRunRecorder persists every result.
func WithRunRecorder(r RunRecorder) Option {
	return func(p *Pipeline) { p.runs = r }
}

// WithK sets the number of lines returned per run.
func WithK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.k = k
		}
	}
}

// WithMaxPages sets the per-site page budget.
func WithMaxPages(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// WithMaxEvidence sets how many evidence items reach the generator.
func WithMaxEvidence(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxEvidence = n
		}
	}
}

// New creates a Pipeline. A nil extractor uses the default rules.
func New(crawler SiteCrawler, extractor *Extractor, gen Generator, opts ...Option) *Pipeline {
	if extractor == nil {
		extractor = NewExtractor(nil)
	}
	p := &Pipeline{
		crawler:     crawler,
		extractor:   extractor,
		generator:   gen,
		k:           punchline.DefaultK,
		maxPages:    scrape.DefaultMaxPages,
		maxEvidence: DefaultMaxEvidence,
		cacheTTL:    DefaultCacheTTL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run produces ranked lines for one target. It only fails for an empty URL
// or a cancelled context; unusable sites yield fallback lines instead.
func (p *Pipeline) Run(ctx context.Context, rawURL, company string, kinds ...model.Category) (*model.Result, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, ErrEmptyURL
	}
	start := time.Now()
	root := NormalizeURL(rawURL)
	company = strings.TrimSpace(company)
	if company == "" {
		company = CompanyFromURL(root)
	}
	log := zap.L().With(zap.String("url", root), zap.String("company", company))

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled before crawl")
	}

	pages, path := p.crawl(ctx, root, log)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled during crawl")
	}

	signals := p.extractor.Extract(pages)
	evidence := SelectEvidence(signals, p.maxEvidence)
	log.Info("pipeline: evidence selected",
		zap.String("path", string(path)),
		zap.Int("pages", len(pages.Pages())),
		zap.Int("signals", signals.Count()),
		zap.Int("evidence", len(evidence)),
	)

	var lines []model.Candidate
	if len(evidence) == 0 || p.generator == nil {
		metrics.FallbackLines.Add(float64(p.k))
		lines = model.FallbackCandidates(p.k)
	} else {
		lines = p.generator.Generate(ctx, company, evidence, p.k, kinds)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: cancelled during generation")
	}

	res := &model.Result{
		URL:          root,
		Company:      company,
		Path:         path,
		Lines:        punchline.Rank(lines),
		Evidence:     evidence,
		PagesFetched: len(pages.Pages()),
		Duration:     time.Since(start),
		CreatedAt:    time.Now().UTC(),
	}

	metrics.CrawlPath.WithLabelValues(string(path)).Inc()
	metrics.PipelineDuration.Observe(res.Duration.Seconds())

	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, res); err != nil {
			log.Warn("pipeline: failed to save run", zap.Error(err))
		}
	}

	log.Info("pipeline: complete",
		zap.String("path", string(path)),
		zap.Float64("best_score", res.Lines[0].Score),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// crawl serves from cache when possible, otherwise runs the crawl chain and
// caches usable results.
func (p *Pipeline) crawl(ctx context.Context, root string, log *zap.Logger) (model.PageMap, model.CrawlPath) {
	if p.cache != nil {
		cc, err := p.cache.GetCachedCrawl(ctx, root)
		if err != nil {
			log.Warn("pipeline: crawl cache lookup failed", zap.Error(err))
		} else if cc != nil && cc.Pages.Usable() {
			log.Debug("pipeline: crawl cache hit", zap.Time("crawled_at", cc.CrawledAt))
			return cc.Pages, model.PathCache
		}
	}

	if p.crawler == nil {
		return model.ErrorPageMap("no crawler configured"), model.PathNone
	}
	pages, path := p.crawler.Crawl(ctx, root, p.maxPages)

	if p.cache != nil && pages.Usable() && ctx.Err() == nil {
		if err := p.cache.SetCachedCrawl(ctx, root, pages, path, p.cacheTTL); err != nil {
			log.Warn("pipeline: crawl cache store failed", zap.Error(err))
		}
	}
	return pages, path
}

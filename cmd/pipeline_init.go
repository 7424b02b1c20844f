package main

import (
	"context"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/pipeline"
	"github.com/sells-group/outreach-cli/internal/punchline"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/scrape"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/firecrawl"
)

// pipelineEnv holds the store, the pipeline and everything that must be
// released when a command finishes.
type pipelineEnv struct {
	Store    store.Store // may be nil
	Pipeline *pipeline.Pipeline
	closers  []func()
}

// Close releases resources in reverse order of acquisition.
func (pe *pipelineEnv) Close() {
	for i := len(pe.closers) - 1; i >= 0; i-- {
		pe.closers[i]()
	}
	pe.closers = nil
}

func (pe *pipelineEnv) onClose(fn func()) {
	pe.closers = append(pe.closers, fn)
}

// initPipeline validates config for mode, opens the store and builds the
// pipeline. lim, when non-nil, throttles model calls. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, mode string, lim *rate.Limiter) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}
	ok := false
	defer func() {
		if !ok {
			env.Close()
		}
	}()

	st, err := initStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if st != nil {
		env.Store = st
		env.onClose(func() { _ = st.Close() })
	}

	chain, closeChain := buildCrawler(cfg)
	env.onClose(closeChain)

	extractor, err := buildExtractor(cfg)
	if err != nil {
		return nil, err
	}

	gen, genCloser, err := buildGenerator(ctx, cfg, lim)
	if err != nil {
		return nil, err
	}
	env.onClose(func() { _ = genCloser.Close() })

	cache, cacheCloser, err := buildCache(ctx, cfg, st)
	if err != nil {
		return nil, err
	}
	if cacheCloser != nil {
		env.onClose(func() { _ = cacheCloser.Close() })
	}

	opts := []pipeline.Option{
		pipeline.WithK(cfg.Punchline.K),
		pipeline.WithMaxPages(cfg.Firecrawl.MaxPages),
		pipeline.WithMaxEvidence(cfg.Punchline.MaxEvidence),
	}
	if cache != nil {
		opts = append(opts, pipeline.WithCache(cache, time.Duration(cfg.Crawl.CacheTTLHours)*time.Hour))
	}
	if st != nil {
		opts = append(opts, pipeline.WithRunRecorder(st))
	}

	env.Pipeline = pipeline.New(chain, extractor, gen, opts...)
	zap.L().Info("pipeline ready",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Driver),
		zap.Bool("browser", cfg.Browser.Enabled),
	)

	ok = true
	return env, nil
}

// initStore opens and migrates the configured store. It returns nil when
// persistence is disabled.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		zap.L().Debug("store disabled, runs will not be recorded")
		return nil, nil
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// buildCrawler assembles Firecrawl primary and browser fallback. The returned
// func shuts down the browser, if one was started.
func buildCrawler(c *config.Config) (*scrape.Chain, func()) {
	follow := c.Crawl.FollowPaths
	if len(follow) == 0 {
		follow = scrape.FollowPaths
	}
	matcher := scrape.NewPathMatcher(follow)

	fcOpts := []firecrawl.Option{firecrawl.WithBaseURL(c.Firecrawl.BaseURL)}
	if c.Firecrawl.CrawlPath != "" {
		fcOpts = append(fcOpts, firecrawl.WithCrawlPath(c.Firecrawl.CrawlPath))
	}
	client := firecrawl.NewClient(c.Firecrawl.Key, fcOpts...)

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Name:      "firecrawl",
		Threshold: c.Firecrawl.BreakerThreshold,
		Cooldown:  time.Duration(c.Firecrawl.BreakerCooldownSecs) * time.Second,
	})
	primary := scrape.NewFirecrawlCrawler(client, matcher,
		scrape.WithCrawlTimeout(time.Duration(c.Firecrawl.TimeoutSecs)*time.Second),
		scrape.WithBreaker(breaker),
	)

	var renderer scrape.Renderer
	closeFn := func() {}
	if c.Browser.Enabled {
		chrome := scrape.NewChromeRenderer(
			scrape.WithHeadless(c.Browser.Headless),
			scrape.WithUserAgent(c.Browser.UserAgent),
		)
		renderer = chrome
		closeFn = chrome.Close
	} else {
		renderer = scrape.NewHTTPRenderer(c.Browser.UserAgent)
	}
	fallback := scrape.NewBrowserCrawler(renderer, matcher, time.Duration(c.Browser.TimeoutSecs)*time.Second)

	chain := scrape.NewChain(primary, fallback)
	chain.MinChars = c.Crawl.ThinMinChars
	chain.MinDistinct = c.Crawl.ThinMinDistinct
	return chain, closeFn
}

// buildExtractor loads custom rules when configured.
func buildExtractor(c *config.Config) (*pipeline.Extractor, error) {
	var rules []pipeline.Rule
	if c.Extract.RulesFile != "" {
		r, err := pipeline.LoadRules(c.Extract.RulesFile)
		if err != nil {
			return nil, eris.Wrap(err, "load extract rules")
		}
		rules = r
	}
	ex := pipeline.NewExtractor(rules)
	if c.Extract.SnippetContext > 0 {
		ex.Context = c.Extract.SnippetContext
	}
	if c.Extract.MaxPerBucket > 0 {
		ex.MaxPerBucket = c.Extract.MaxPerBucket
	}
	return ex, nil
}

// buildGenerator wires the configured model backend into a Generator.
func buildGenerator(ctx context.Context, c *config.Config, lim *rate.Limiter) (*punchline.Generator, io.Closer, error) {
	completer, closer, err := llm.New(ctx, llm.Options{
		Provider:      llm.Provider(strings.ToLower(c.LLM.Provider)),
		Model:         c.LLM.Model,
		MaxTokens:     c.LLM.MaxTokens,
		AnthropicKey:  c.Anthropic.Key,
		OpenAIKey:     c.OpenAI.Key,
		OpenAIBaseURL: c.OpenAI.BaseURL,
		GeminiKey:     c.Gemini.Key,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "init llm")
	}

	gen := punchline.NewGenerator(llm.Limited(completer, lim))
	gen.MaxTokens = c.LLM.MaxTokens
	if len(c.Punchline.Temperatures) > 0 {
		gen.Temperatures = c.Punchline.Temperatures
	}
	if c.Punchline.CallTimeoutSecs > 0 {
		gen.CallTimeout = time.Duration(c.Punchline.CallTimeoutSecs) * time.Second
	}
	if c.Punchline.MaxWords > 0 {
		gen.QC.MaxWords = c.Punchline.MaxWords
	}
	if c.Punchline.OverlapThreshold > 0 {
		gen.QC.OverlapThreshold = c.Punchline.OverlapThreshold
	}
	if c.Punchline.Seed != 0 {
		gen.Rand = rand.New(rand.NewPCG(c.Punchline.Seed, c.Punchline.Seed))
	}
	return gen, closer, nil
}

// buildCache picks the crawl cache backend. With driver "store" the open
// store doubles as the cache; the returned closer is nil in that case.
func buildCache(ctx context.Context, c *config.Config, st store.Store) (store.CrawlCache, io.Closer, error) {
	switch strings.ToLower(c.Cache.Driver) {
	case "", "store":
		if st == nil {
			return nil, nil, nil
		}
		return st, nil, nil
	case "redis":
		rc, err := store.NewRedisCache(ctx, store.RedisOptions{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		})
		if err != nil {
			return nil, nil, eris.Wrap(err, "connect redis cache")
		}
		return rc, rc, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, eris.Errorf("unsupported cache driver: %s", c.Cache.Driver)
	}
}

// newLimiter returns a limiter for perSec events per second, or nil for
// unlimited.
func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

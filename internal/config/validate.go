package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validation modes, one per command family.
const (
	ModeRun   = "run"
	ModeBatch = "batch"
	ModeServe = "serve"
	ModePrune = "prune"
)

// Validate checks that the keys required by mode are present and that
// numeric settings are in range. All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch mode {
	case ModeRun, ModeBatch, ModeServe:
		c.validatePipeline(add)
		if mode == ModeBatch {
			if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 100 {
				add("batch.concurrency must be between 1 and 100 (got %d)", c.Batch.Concurrency)
			}
			if c.Batch.RatePerSec < 0 {
				add("batch.rate_per_sec must be >= 0 (got %g)", c.Batch.RatePerSec)
			}
		}
		if mode == ModeServe && (c.Server.Port < 1 || c.Server.Port > 65535) {
			add("server.port must be between 1 and 65535 (got %d)", c.Server.Port)
		}
	case ModePrune:
		if strings.EqualFold(c.Store.Driver, "none") || c.Store.Driver == "" {
			add("store.driver is required to prune the crawl cache")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
	c.validateStore(add)

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePipeline(add func(string, ...any)) {
	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic":
		if c.Anthropic.Key == "" {
			add("anthropic.key is required for llm.provider=anthropic")
		}
	case "openai", "groq":
		if c.OpenAI.Key == "" {
			add("openai.key is required for llm.provider=%s", c.LLM.Provider)
		}
	case "gemini":
		if c.Gemini.Key == "" {
			add("gemini.key is required for llm.provider=gemini")
		}
	default:
		add("llm.provider must be one of anthropic, openai, groq, gemini (got %q)", c.LLM.Provider)
	}

	if c.Firecrawl.BaseURL == "" {
		add("firecrawl.base_url is required")
	}
	if c.Firecrawl.MaxPages < 1 {
		add("firecrawl.max_pages must be >= 1 (got %d)", c.Firecrawl.MaxPages)
	}
	if c.Crawl.ThinMinChars < 0 || c.Crawl.ThinMinDistinct < 0 {
		add("crawl thin thresholds must be >= 0")
	}
	if c.Punchline.K < 1 || c.Punchline.K > 10 {
		add("punchline.k must be between 1 and 10 (got %d)", c.Punchline.K)
	}
	if c.Punchline.MaxWords < 1 {
		add("punchline.max_words must be >= 1 (got %d)", c.Punchline.MaxWords)
	}
	if c.Punchline.OverlapThreshold <= 0 || c.Punchline.OverlapThreshold > 1 {
		add("punchline.overlap_threshold must be in (0, 1] (got %g)", c.Punchline.OverlapThreshold)
	}
	if len(c.Punchline.Temperatures) == 0 {
		add("punchline.temperatures must not be empty")
	}
	for _, t := range c.Punchline.Temperatures {
		if t < 0 || t > 2 {
			add("punchline.temperatures must be in [0, 2] (got %g)", t)
			break
		}
	}

	switch strings.ToLower(c.Cache.Driver) {
	case "", "none", "store":
	case "redis":
		if c.Cache.RedisAddr == "" {
			add("cache.redis_addr is required for cache.driver=redis")
		}
	default:
		add("cache.driver must be one of store, redis, none (got %q)", c.Cache.Driver)
	}
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch strings.ToLower(c.Store.Driver) {
	case "", "none", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for store.driver=postgres")
		}
	default:
		add("store.driver must be one of sqlite, postgres, none (got %q)", c.Store.Driver)
	}
}

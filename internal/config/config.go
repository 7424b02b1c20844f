package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Punchline PunchlineConfig `yaml:"punchline" mapstructure:"punchline"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FirecrawlConfig configures the primary crawler.
type FirecrawlConfig struct {
	Key                 string `yaml:"key" mapstructure:"key"`
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
	CrawlPath           string `yaml:"crawl_path" mapstructure:"crawl_path"`
	MaxPages            int    `yaml:"max_pages" mapstructure:"max_pages"`
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BreakerThreshold    int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int    `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// BrowserConfig configures the fallback browser crawler. With Enabled false
// the fallback renders pages over plain HTTP instead of headless Chrome.
type BrowserConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CrawlConfig configures link following, thin-content detection and caching.
type CrawlConfig struct {
	FollowPaths     []string `yaml:"follow_paths" mapstructure:"follow_paths"`
	ThinMinChars    int      `yaml:"thin_min_chars" mapstructure:"thin_min_chars"`
	ThinMinDistinct int      `yaml:"thin_min_distinct" mapstructure:"thin_min_distinct"`
	CacheTTLHours   int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// ExtractConfig configures signal extraction.
type ExtractConfig struct {
	MaxPerBucket   int    `yaml:"max_per_bucket" mapstructure:"max_per_bucket"`
	SnippetContext int    `yaml:"snippet_context" mapstructure:"snippet_context"`
	RulesFile      string `yaml:"rules_file" mapstructure:"rules_file"`
}

// PunchlineConfig configures generation, QC and ranking.
type PunchlineConfig struct {
	K                int       `yaml:"k" mapstructure:"k"`
	MaxWords         int       `yaml:"max_words" mapstructure:"max_words"`
	MaxEvidence      int       `yaml:"max_evidence" mapstructure:"max_evidence"`
	OverlapThreshold float64   `yaml:"overlap_threshold" mapstructure:"overlap_threshold"`
	Temperatures     []float64 `yaml:"temperatures" mapstructure:"temperatures"`
	CallTimeoutSecs  int       `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	Seed             uint64    `yaml:"seed" mapstructure:"seed"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// AnthropicConfig holds Anthropic API credentials.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// OpenAIConfig holds credentials for OpenAI-compatible endpoints (OpenAI, Groq).
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// GeminiConfig holds Google Gemini credentials.
type GeminiConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CacheConfig selects where crawl results are cached.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev")
	v.SetDefault("firecrawl.crawl_path", "/v1/crawl")
	v.SetDefault("firecrawl.max_pages", 8)
	v.SetDefault("firecrawl.timeout_secs", 25)
	v.SetDefault("firecrawl.breaker_threshold", 5)
	v.SetDefault("firecrawl.breaker_cooldown_secs", 60)
	v.SetDefault("browser.enabled", true)
	v.SetDefault("browser.timeout_secs", 15)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("crawl.thin_min_chars", 500)
	v.SetDefault("crawl.thin_min_distinct", 50)
	v.SetDefault("crawl.cache_ttl_hours", 24)
	v.SetDefault("extract.max_per_bucket", 5)
	v.SetDefault("extract.snippet_context", 60)
	v.SetDefault("extract.rules_file", "")
	v.SetDefault("punchline.k", 3)
	v.SetDefault("punchline.max_words", 35)
	v.SetDefault("punchline.max_evidence", 5)
	v.SetDefault("punchline.overlap_threshold", 0.30)
	v.SetDefault("punchline.temperatures", []float64{0.8, 0.6, 1.0, 0.7, 0.9})
	v.SetDefault("punchline.call_timeout_secs", 20)
	v.SetDefault("punchline.seed", 0)
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 120)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("cache.driver", "store")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.rate_per_sec", 2.0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

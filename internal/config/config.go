// Package config loads the engine's structured configuration via viper,
// with optional file-change hot-reload via fsnotify, grounded on the
// teacher's config.Load idiom (logger construction lives in
// internal/logging, mirroring the teacher's separate InitLogger step).
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds the engine's full configuration: the resilience/resource
// substrate knobs plus the collaborator credentials needed to construct
// the concrete clients behind each collaborator contract.
type Config struct {
	Runtime    RuntimeConfig    `yaml:"runtime" mapstructure:"runtime"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Governor   GovernorConfig   `yaml:"governor" mapstructure:"governor"`
	Politeness PolitenessConfig `yaml:"politeness" mapstructure:"politeness"`

	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`

	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// RuntimeConfig configures the concurrent runtime and batch orchestrator.
type RuntimeConfig struct {
	MaxConcurrentExtractions int `yaml:"max_concurrent_extractions" mapstructure:"max_concurrent_extractions"`
	MaxConcurrentBatches     int `yaml:"max_concurrent_batches" mapstructure:"max_concurrent_batches"`
}

// BucketSetting configures one token-bucket class.
type BucketSetting struct {
	Capacity       int64 `yaml:"capacity" mapstructure:"capacity"`
	RefillRate     int64 `yaml:"refill_rate" mapstructure:"refill_rate"`
	RefillInterval int   `yaml:"refill_interval_s" mapstructure:"refill_interval_s"`
}

// RateLimitConfig configures the three token-bucket classes (search,
// crawl, extraction).
type RateLimitConfig struct {
	Search     BucketSetting `yaml:"search" mapstructure:"search"`
	Crawl      BucketSetting `yaml:"crawl" mapstructure:"crawl"`
	Extraction BucketSetting `yaml:"extraction" mapstructure:"extraction"`
}

// RetryConfig configures the jittered exponential backoff collaborator.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMS  int     `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	ExpBase     float64 `yaml:"exp_base" mapstructure:"exp_base"`
	Multiplier  float64 `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter      bool    `yaml:"jitter" mapstructure:"jitter"`
}

// BreakerConfig configures the per-dependency circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	RecoveryTimeoutS int `yaml:"recovery_timeout_s" mapstructure:"recovery_timeout_s"`
	SuccessThreshold int `yaml:"success_threshold" mapstructure:"success_threshold"`
}

// CacheConfig configures the tiered TTL cache.
type CacheConfig struct {
	Enable      bool `yaml:"enable" mapstructure:"enable"`
	CompanyTTLH int  `yaml:"company_ttl_h" mapstructure:"company_ttl_h"`
	SERPTTLH    int  `yaml:"serp_ttl_h" mapstructure:"serp_ttl_h"`
	CrawlTTLH   int  `yaml:"crawl_ttl_h" mapstructure:"crawl_ttl_h"`
	BatchTTLH   int  `yaml:"batch_ttl_h" mapstructure:"batch_ttl_h"`
}

// GovernorConfig configures the resource governor's sampling and caps.
type GovernorConfig struct {
	MemCapMB        int `yaml:"mem_cap_mb" mapstructure:"mem_cap_mb"`
	CPUCapPercent   int `yaml:"cpu_cap_percent" mapstructure:"cpu_cap_percent"`
	ConnCap         int `yaml:"conn_cap" mapstructure:"conn_cap"`
	SampleIntervalS int `yaml:"sample_interval_s" mapstructure:"sample_interval_s"`
}

// PolitenessConfig configures crawl-stage host politeness.
type PolitenessConfig struct {
	MinHostDelayS   int  `yaml:"min_host_delay_s" mapstructure:"min_host_delay_s"`
	RateLimitBlockS int  `yaml:"rate_limit_block_s" mapstructure:"rate_limit_block_s"`
	AuthBlockS      int  `yaml:"auth_block_s" mapstructure:"auth_block_s"`
	EnableRobots    bool `yaml:"enable_robots" mapstructure:"enable_robots"`
}

// StoreConfig configures the task/batch persistence layer.
type StoreConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// RedisConfig configures the optional network-backed cache tier.
type RedisConfig struct {
	Addr   string `yaml:"addr" mapstructure:"addr"`
	Enable bool   `yaml:"enable" mapstructure:"enable"`
}

// GoogleConfig holds Google Custom Search JSON API credentials, the
// primary SearchProvider.
type GoogleConfig struct {
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	CX     string `yaml:"cx" mapstructure:"cx"`
}

// PerplexityConfig holds Perplexity API settings, the SearchProvider
// fallback.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI Reader/Search settings, used as both a
// PageFetcher and a secondary SearchProvider.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl settings, the PageFetcher fallback.
type FirecrawlConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages"`
}

// AnthropicConfig holds settings for the optional LLM-backed
// CompanyParser.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds settings for the optional batch export sink.
type NotionConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	DB    string `yaml:"db" mapstructure:"db"`
}

// LogConfig configures the logging collaborator.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the configuration invariants the core requires,
// independent of which collaborators end up wired.
func (c *Config) Validate() error {
	var errs []string

	if c.Runtime.MaxConcurrentExtractions < 1 {
		errs = append(errs, "runtime.max_concurrent_extractions must be >= 1")
	}
	if c.Runtime.MaxConcurrentBatches < 1 {
		errs = append(errs, "runtime.max_concurrent_batches must be >= 1")
	}
	if c.Breaker.FailureThreshold < 1 {
		errs = append(errs, "breaker.failure_threshold must be >= 1")
	}
	if c.Breaker.SuccessThreshold < 1 {
		errs = append(errs, "breaker.success_threshold must be >= 1")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry.max_attempts must be >= 1")
	}
	if c.Politeness.MinHostDelayS < 0 {
		errs = append(errs, "politeness.min_host_delay_s must be >= 0")
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: validation failed: %s", strings.Join(errs, "; ")))
	}
	return nil
}

// Load reads configuration from an optional config.yaml in the working
// directory and the environment (INTEL_ prefixed), applying defaults for
// every unset key.
func Load() (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

// WatchReload re-reads configuration on file change and invokes onChange
// with the reloaded Config, mirroring viper's fsnotify-backed
// WatchConfig. Callers that don't need hot-reload can skip calling it.
func WatchReload(onChange func(*Config)) {
	v := viper.New()
	applyDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("runtime.max_concurrent_extractions", 10)
	v.SetDefault("runtime.max_concurrent_batches", 3)

	v.SetDefault("rate_limit.search.capacity", 10)
	v.SetDefault("rate_limit.search.refill_rate", 10)
	v.SetDefault("rate_limit.search.refill_interval_s", 60)
	v.SetDefault("rate_limit.crawl.capacity", 20)
	v.SetDefault("rate_limit.crawl.refill_rate", 20)
	v.SetDefault("rate_limit.crawl.refill_interval_s", 60)
	v.SetDefault("rate_limit.extraction.capacity", 5)
	v.SetDefault("rate_limit.extraction.refill_rate", 5)
	v.SetDefault("rate_limit.extraction.refill_interval_s", 60)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 30000)
	v.SetDefault("retry.exp_base", 2.0)
	v.SetDefault("retry.multiplier", 1.0)
	v.SetDefault("retry.jitter", true)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout_s", 30)
	v.SetDefault("breaker.success_threshold", 2)

	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.company_ttl_h", 24)
	v.SetDefault("cache.serp_ttl_h", 6)
	v.SetDefault("cache.crawl_ttl_h", 12)
	v.SetDefault("cache.batch_ttl_h", 6)

	v.SetDefault("governor.mem_cap_mb", 2048)
	v.SetDefault("governor.cpu_cap_percent", 80)
	v.SetDefault("governor.conn_cap", 200)
	v.SetDefault("governor.sample_interval_s", 30)

	v.SetDefault("politeness.min_host_delay_s", 1)
	v.SetDefault("politeness.rate_limit_block_s", 86400)
	v.SetDefault("politeness.auth_block_s", 3600)
	v.SetDefault("politeness.enable_robots", true)

	v.SetDefault("store.dsn", "file:intel-engine.db?_journal=WAL")
	v.SetDefault("redis.enable", false)

	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("firecrawl.max_pages", 50)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-haiku")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

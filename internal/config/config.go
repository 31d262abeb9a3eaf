package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Quota     QuotaConfig     `yaml:"quota" mapstructure:"quota"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Import    ImportConfig    `yaml:"import" mapstructure:"import"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// QuotaConfig configures free-tier access limits.
type QuotaConfig struct {
	FreeViewLimit int `yaml:"free_view_limit" mapstructure:"free_view_limit"`
}

// EnrichConfig configures the background enrichment scheduler.
type EnrichConfig struct {
	DailyBatchSize  int `yaml:"daily_batch_size" mapstructure:"daily_batch_size"`
	ImportBatchSize int `yaml:"import_batch_size" mapstructure:"import_batch_size"`
	IntervalHours   int `yaml:"interval_hours" mapstructure:"interval_hours"`
	PauseMs         int `yaml:"pause_ms" mapstructure:"pause_ms"`
	RunBudgetSecs   int `yaml:"run_budget_secs" mapstructure:"run_budget_secs"`
	TimeoutSecs     int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Pause returns the politeness delay between external calls.
func (c EnrichConfig) Pause() time.Duration {
	return time.Duration(c.PauseMs) * time.Millisecond
}

// RunBudget returns the wall-clock budget for a single run.
func (c EnrichConfig) RunBudget() time.Duration {
	return time.Duration(c.RunBudgetSecs) * time.Second
}

// Timeout returns the per-call timeout for the enrichment client.
func (c EnrichConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SearchConfig configures the tiered RFP search chain.
type SearchConfig struct {
	Order         []string `yaml:"order" mapstructure:"order"`
	CacheTTLHours int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	PortalURL     string   `yaml:"portal_url" mapstructure:"portal_url"`
}

// CacheTTL returns how long resolved search results stay valid.
func (c SearchConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// ImportConfig configures bulk lead feed imports.
type ImportConfig struct {
	FeedURL     string `yaml:"feed_url" mapstructure:"feed_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI Reader and Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// NotionConfig holds the optional Notion notification mirror settings.
// Both fields must be set for the mirror to activate.
type NotionConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
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
	v.SetEnvPrefix("CONTRACTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("server.port", 8080)
	v.SetDefault("quota.free_view_limit", 3)
	v.SetDefault("enrich.daily_batch_size", 20)
	v.SetDefault("enrich.import_batch_size", 10)
	v.SetDefault("enrich.interval_hours", 24)
	v.SetDefault("enrich.pause_ms", 500)
	v.SetDefault("enrich.run_budget_secs", 300)
	v.SetDefault("enrich.timeout_secs", 30)
	v.SetDefault("search.order", []string{"cache", "reader", "searchapi", "llm"})
	v.SetDefault("search.cache_ttl_hours", 24)
	v.SetDefault("search.portal_url", "https://sam.gov/search/?keywords=")
	v.SetDefault("import.timeout_secs", 60)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

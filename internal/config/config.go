package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"InvestDash/internal/logger"
	"InvestDash/internal/strategy"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        logger.Config    `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Analyst    AnalystConfig    `yaml:"analyst"`
	Collector  CollectorConfig  `yaml:"collector"`
	Cache      CacheConfig      `yaml:"cache"`
	Signals    SignalsConfig    `yaml:"signals"`
	Schedule   struct {
		RefreshCron string `yaml:"refresh_cron" default:"0 */10 * * * *"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

// StoreConfig configures the bucket/ticker state files.
type StoreConfig struct {
	DataDir       string            `yaml:"data_dir" default:"data"`
	SeedBuckets   []string          `yaml:"seed_buckets"`
	IdentifierMap map[string]string `yaml:"identifier_map"`
	SignalsFile   string            `yaml:"signals_file" default:"signals.json"`
}

// DataSourceConfig selects the price provider.
type DataSourceConfig struct {
	Provider    string            `yaml:"provider" default:"yahoo"` // yahoo or mock
	HistoryDays int               `yaml:"history_days" default:"400"`
	SymbolMap   map[string]string `yaml:"symbol_map"`
}

// AnalystConfig selects the analyst and fundamentals providers.
type AnalystConfig struct {
	Provider       string `yaml:"provider" default:"finnhub"` // finnhub, yahoo or none
	FinnhubAPIKey  string `yaml:"finnhub_api_key"`
	FinnhubBaseURL string `yaml:"finnhub_base_url" default:"https://finnhub.io/api/v1"`
	Fundamentals   bool   `yaml:"fundamentals" default:"true"`
}

// CollectorConfig bounds market data fetching.
type CollectorConfig struct {
	Workers       int           `yaml:"workers" default:"8"`
	SymbolTimeout time.Duration `yaml:"symbol_timeout" default:"15s"`
}

// CacheConfig selects the market data cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend" default:"memory"` // memory or redis
	PriceTTL   time.Duration `yaml:"price_ttl" default:"10m"`
	AnalystTTL time.Duration `yaml:"analyst_ttl" default:"60m"`
	Redis      struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"investdash"`
	} `yaml:"redis"`
}

// SignalsConfig holds the signal policy.
type SignalsConfig struct {
	Pivot struct {
		Mode   string `yaml:"mode" default:"classic"` // classic or window
		Window int    `yaml:"window" default:"5"`
	} `yaml:"pivot"`
	Entry struct {
		Require []string `yaml:"require"`
	} `yaml:"entry"`
	Reentry struct {
		MAPeriod int `yaml:"ma_period" default:"50"`
		Lookback int `yaml:"lookback" default:"5"`
	} `yaml:"reentry"`
	Breadth struct {
		Indicator    string  `yaml:"indicator" default:"above50"`
		Inclusion    string  `yaml:"inclusion" default:"all"`
		ThresholdOn  float64 `yaml:"threshold_on" default:"0.6"`
		ThresholdOff float64 `yaml:"threshold_off" default:"0.4"`
		MinSymbols   int     `yaml:"min_symbols" default:"1"`
	} `yaml:"breadth"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		cfg.Analyst.FinnhubAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if os.Getenv("RUN_ON_START") == "true" {
		cfg.Schedule.RunOnStart = true
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider must be yahoo or mock")
	}
	if c.DataSource.HistoryDays < 2 {
		return fmt.Errorf("data_source.history_days must be at least 2")
	}
	switch c.Analyst.Provider {
	case "finnhub", "yahoo", "none":
	default:
		return fmt.Errorf("analyst.provider must be finnhub, yahoo or none")
	}
	if c.Collector.Workers <= 0 {
		return fmt.Errorf("collector.workers must be positive")
	}
	if c.Collector.SymbolTimeout <= 0 {
		return fmt.Errorf("collector.symbol_timeout must be positive")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis")
	}
	switch c.Signals.Pivot.Mode {
	case "classic":
	case "window":
		if c.Signals.Pivot.Window <= 0 {
			return fmt.Errorf("signals.pivot.window must be positive")
		}
	default:
		return fmt.Errorf("signals.pivot.mode must be classic or window")
	}
	if _, err := strategy.ParseConditions(c.Signals.Entry.Require); err != nil {
		return fmt.Errorf("signals.entry.require: %w", err)
	}
	if c.Signals.Reentry.MAPeriod <= 0 || c.Signals.Reentry.Lookback <= 0 {
		return fmt.Errorf("signals.reentry periods must be positive")
	}
	b := c.Signals.Breadth
	if b.Indicator != strategy.IndicatorAbove50 && b.Indicator != strategy.IndicatorAbove200 {
		return fmt.Errorf("signals.breadth.indicator must be above50 or above200")
	}
	if b.Inclusion != strategy.InclusionAll && b.Inclusion != strategy.InclusionBucketed {
		return fmt.Errorf("signals.breadth.inclusion must be all or bucketed")
	}
	if b.ThresholdOff < 0 || b.ThresholdOn > 1 || b.ThresholdOff > b.ThresholdOn {
		return fmt.Errorf("signals.breadth thresholds must satisfy 0 <= threshold_off <= threshold_on <= 1")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether alerts should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// EntryRule returns the configured entry rule.
func (c *Config) EntryRule() strategy.EntryRule {
	conds, _ := strategy.ParseConditions(c.Signals.Entry.Require)
	return strategy.NewEntryRule(conds)
}

// BreadthPolicy returns the configured breadth policy.
func (c *Config) BreadthPolicy() strategy.BreadthPolicy {
	b := c.Signals.Breadth
	return strategy.BreadthPolicy{
		Indicator:    b.Indicator,
		Inclusion:    b.Inclusion,
		ThresholdOn:  b.ThresholdOn,
		ThresholdOff: b.ThresholdOff,
		MinSymbols:   b.MinSymbols,
	}
}

// ReentryPolicy returns the configured re-entry policy.
func (c *Config) ReentryPolicy() strategy.ReentryPolicy {
	return strategy.ReentryPolicy{
		MAPeriod: c.Signals.Reentry.MAPeriod,
		Lookback: c.Signals.Reentry.Lookback,
	}
}

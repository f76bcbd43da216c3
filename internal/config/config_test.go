package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Collector.Workers != 8 || cfg.Collector.SymbolTimeout != 15*time.Second {
		t.Errorf("collector = %+v", cfg.Collector)
	}
	if cfg.Cache.AnalystTTL != time.Hour {
		t.Errorf("analyst ttl = %v, want 1h", cfg.Cache.AnalystTTL)
	}
	if cfg.Signals.Breadth.ThresholdOn != 0.6 || cfg.Signals.Breadth.ThresholdOff != 0.4 {
		t.Errorf("breadth = %+v", cfg.Signals.Breadth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
	if rule := cfg.EntryRule(); len(rule.Conditions) != 4 {
		t.Errorf("default entry rule = %v", rule.Conditions)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: 9000
collector:
  workers: 2
  symbol_timeout: 3s
signals:
  pivot:
    mode: window
    window: 3
  entry:
    require: [above50, risk_on]
store:
  seed_buckets: [conviction, swing]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATA_DIR", "/tmp/investdash")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Collector.Workers != 2 || cfg.Collector.SymbolTimeout != 3*time.Second {
		t.Errorf("yaml values not applied: %+v %+v", cfg.Server, cfg.Collector)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default host lost: %q", cfg.Server.Host)
	}
	if cfg.Store.DataDir != "/tmp/investdash" {
		t.Errorf("data dir = %q", cfg.Store.DataDir)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Redis.Addr != "redis:6379" {
		t.Errorf("redis env not applied: %+v", cfg.Cache)
	}
	if len(cfg.Store.SeedBuckets) != 2 {
		t.Errorf("seed buckets = %v", cfg.Store.SeedBuckets)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"no workers", func(c *Config) { c.Collector.Workers = 0 }},
		{"bad cache", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"bad pivot", func(c *Config) { c.Signals.Pivot.Mode = "fib" }},
		{"unknown condition", func(c *Config) { c.Signals.Entry.Require = []string{"vibes"} }},
		{"inverted thresholds", func(c *Config) { c.Signals.Breadth.ThresholdOff = 0.8 }},
		{"threshold above one", func(c *Config) { c.Signals.Breadth.ThresholdOn = 1.5 }},
		{"telegram half set", func(c *Config) { c.Telegram.BotToken = "token" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

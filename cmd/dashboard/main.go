package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"InvestDash/internal/api"
	"InvestDash/internal/cache"
	"InvestDash/internal/collector"
	"InvestDash/internal/config"
	"InvestDash/internal/dashboard"
	"InvestDash/internal/logger"
	"InvestDash/internal/metrics"
	"InvestDash/internal/notifier"
	"InvestDash/internal/recorder"
	"InvestDash/internal/scheduler"
	"InvestDash/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "investdash: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	log.Info().Str("config", cfgPath).Msg("investdash starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)
	hub := api.NewHub(log)

	// State store
	storeOpts := []store.Option{
		store.WithLogger(log),
		store.WithObserver(rec),
		store.WithObserver(hub),
		store.WithSeedBuckets(cfg.Store.SeedBuckets...),
	}
	if len(cfg.Store.IdentifierMap) > 0 {
		storeOpts = append(storeOpts, store.WithIdentifierMap(cfg.Store.IdentifierMap))
	}
	st, err := store.New(cfg.Store.DataDir, storeOpts...)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	// Market data cache
	mdCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer mdCache.Close()

	// Collector
	col := newCollector(cfg, mdCache, rec, log)

	// Recorder
	var history recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			history = sr
			defer sr.Close()
		}
	}

	// Seed breadth hysteresis from the last recorded reading.
	var prevRiskOn *bool
	if points, err := history.RecentBreadth(ctx, 1); err == nil && len(points) == 1 {
		prevRiskOn = points[0].RiskOn
	}
	svc := dashboard.NewService(st, col, cfg.EntryRule(), cfg.BreadthPolicy(),
		dashboard.WithLogger(log),
		dashboard.WithMetrics(rec),
		dashboard.WithPreviousRiskOn(prevRiskOn),
	)

	// Scheduler
	schedOpts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithMetrics(rec),
		scheduler.WithBroadcaster(hub),
	}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		schedOpts = append(schedOpts, scheduler.WithSender(tn))
	}
	signalsPath := ""
	if cfg.Store.SignalsFile != "" {
		signalsPath = cfg.Store.SignalsFile
		if !filepath.IsAbs(signalsPath) {
			signalsPath = filepath.Join(cfg.Store.DataDir, signalsPath)
		}
	}
	sched := scheduler.NewScheduler(ctx, svc, st, history, signalsPath, schedOpts...)
	if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, refreshing now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("initial refresh")
			}
		}()
	}

	// HTTP API
	srv := api.NewServer(api.NewHandler(st, svc, history, hub, log),
		api.WithHost(cfg.Server.Host),
		api.WithPort(cfg.Server.Port),
		api.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		api.WithCORS(cfg.Server.CORS),
		api.WithLogger(log),
		api.WithMetrics(rec, reg),
	)
	if err := srv.Start(); err != nil {
		return err
	}

	log.Info().Msg("investdash is running, press Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	if err := srv.Stop(context.Background()); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	hub.Close()
	if err := st.Persist(); err != nil {
		log.Error().Err(err).Msg("final persist")
	}
	log.Info().Msg("investdash stopped")
	return nil
}

func newCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (cache.Cache, error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryCache(10000, time.Minute), nil
	}
	rc := cfg.Cache.Redis
	c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		Prefix:   rc.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis cache: %w", err)
	}
	log.Info().Str("addr", rc.Addr).Msg("using redis cache")
	return c, nil
}

func newCollector(cfg *config.Config, c cache.Cache, rec *metrics.Recorder, log zerolog.Logger) *collector.Collector {
	var prices collector.PriceFetcher
	opts := []collector.Option{
		collector.WithCache(c),
		collector.WithMetrics(rec),
		collector.WithLogger(log),
	}

	switch cfg.DataSource.Provider {
	case "mock":
		mock := &collector.MockFetcher{Price: 100}
		prices = mock
		opts = append(opts, collector.WithAnalyst(mock), collector.WithFundamentals(mock))
	default:
		yahoo := collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.SymbolMap)
		prices = yahoo
		if cfg.Analyst.Fundamentals {
			opts = append(opts, collector.WithFundamentals(yahoo))
		}
		switch cfg.Analyst.Provider {
		case "finnhub":
			if cfg.Analyst.FinnhubAPIKey != "" {
				opts = append(opts, collector.WithAnalyst(
					collector.NewFinnhubFetcher(cfg.Analyst.FinnhubBaseURL, cfg.Analyst.FinnhubAPIKey, cfg.Proxy)))
			} else {
				log.Warn().Msg("finnhub selected without an api key, falling back to yahoo analyst data")
				opts = append(opts, collector.WithAnalyst(yahoo))
			}
		case "yahoo":
			opts = append(opts, collector.WithAnalyst(yahoo))
		}
	}
	log.Info().Str("prices", prices.Name()).Msg("data source selected")

	return collector.New(prices, collector.Options{
		Workers:       cfg.Collector.Workers,
		SymbolTimeout: cfg.Collector.SymbolTimeout,
		HistoryDays:   cfg.DataSource.HistoryDays,
		PriceTTL:      cfg.Cache.PriceTTL,
		AnalystTTL:    cfg.Cache.AnalystTTL,
		Row: collector.RowOptions{
			PivotMode:   cfg.Signals.Pivot.Mode,
			PivotWindow: cfg.Signals.Pivot.Window,
			Reentry:     cfg.ReentryPolicy(),
		},
	}, opts...)
}

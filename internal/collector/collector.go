package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"InvestDash/internal/cache"
	"InvestDash/internal/errs"
	"InvestDash/internal/metrics"
	"InvestDash/internal/model"

	"github.com/rs/zerolog"
)

// Target is one symbol to compute, with the stored metadata its row carries.
type Target struct {
	Symbol       string
	Name         string
	Type         model.TickerType
	Bucket       *string
	Fundamentals model.Fundamentals
}

// Options tunes the collector.
type Options struct {
	Workers       int
	SymbolTimeout time.Duration
	HistoryDays   int
	PriceTTL      time.Duration
	AnalystTTL    time.Duration
	Row           RowOptions
}

// Option configures optional collaborators.
type Option func(*Collector)

func WithAnalyst(f AnalystFetcher) Option { return func(c *Collector) { c.analyst = f } }

func WithFundamentals(f FundamentalsFetcher) Option {
	return func(c *Collector) { c.fundamentals = f }
}

func WithCache(ch cache.Cache) Option { return func(c *Collector) { c.cache = ch } }

func WithMetrics(m *metrics.Recorder) Option { return func(c *Collector) { c.metrics = m } }

func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) { c.log = l.With().Str("component", "collector").Logger() }
}

// Collector fans symbols out over a bounded worker pool and turns market
// data into signal rows. A failed or slow symbol degrades to a row of
// unknowns with DataError set.
type Collector struct {
	prices       PriceFetcher
	analyst      AnalystFetcher
	fundamentals FundamentalsFetcher
	cache        cache.Cache
	metrics      *metrics.Recorder
	log          zerolog.Logger
	opts         Options
	now          func() time.Time
}

// New creates a Collector. Zero options fall back to defaults.
func New(prices PriceFetcher, opts Options, extra ...Option) *Collector {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.SymbolTimeout <= 0 {
		opts.SymbolTimeout = 15 * time.Second
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 400
	}
	if opts.Row.PivotMode == "" {
		opts.Row.PivotMode = PivotClassic
	}
	c := &Collector{
		prices: prices,
		opts:   opts,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range extra {
		o(c)
	}
	return c
}

// Collect computes one row per target, preserving input order.
func (c *Collector) Collect(ctx context.Context, targets []Target, includeAnalyst bool) []model.SignalRow {
	rows := make([]model.SignalRow, len(targets))
	if len(targets) == 0 {
		return rows
	}

	workers := c.opts.Workers
	if workers > len(targets) {
		workers = len(targets)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rows[i] = c.collectOne(ctx, targets[i], includeAnalyst)
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return rows
}

func (c *Collector) collectOne(ctx context.Context, t Target, includeAnalyst bool) model.SignalRow {
	sctx, cancel := context.WithTimeout(ctx, c.opts.SymbolTimeout)
	defer cancel()

	var row model.SignalRow
	bars, err := c.bars(sctx, t.Symbol)
	if err != nil {
		c.log.Warn().Str("symbol", t.Symbol).Err(err).Msg("price data unavailable")
		row = newRow(t)
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("timed out after %s", c.opts.SymbolTimeout)
		}
		row.DataError = &msg
	} else {
		row = ComputeRow(t, bars, c.opts.Row)
	}

	if includeAnalyst && c.analyst != nil && t.Type != model.TickerETF {
		if snap, err := c.analystSnapshot(sctx, t.Symbol); err == nil {
			applyAnalyst(&row, snap)
		} else {
			c.log.Debug().Str("symbol", t.Symbol).Err(err).Msg("analyst data unavailable")
		}
	}
	if c.fundamentals != nil && t.Type != model.TickerETF {
		if f, err := c.fundamentalsOf(sctx, t.Symbol); err == nil {
			applyFundamentals(&row, f)
		} else {
			c.log.Debug().Str("symbol", t.Symbol).Err(err).Msg("fundamentals unavailable, keeping last known")
		}
	}
	c.dropPastEarnings(&row)
	roundRow(&row)

	c.metrics.ObserveRow(row.DataError != nil)
	return row
}

// Analyst returns the analyst snapshot of one symbol.
func (c *Collector) Analyst(ctx context.Context, symbol string) (*model.AnalystSnapshot, error) {
	const op = "collector.Analyst"
	if c.analyst == nil {
		return nil, errs.New(errs.KindUpstreamUnavailable, op, symbol, "no analyst provider configured")
	}
	sctx, cancel := context.WithTimeout(ctx, c.opts.SymbolTimeout)
	defer cancel()
	snap, err := c.analystSnapshot(sctx, symbol)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, op, err)
	}
	return snap, nil
}

func (c *Collector) dropPastEarnings(row *model.SignalRow) {
	if row.NextEarnings == nil {
		return
	}
	if *row.NextEarnings < c.now().UTC().Format("2006-01-02") {
		row.NextEarnings = nil
	}
}

func (c *Collector) bars(ctx context.Context, symbol string) ([]model.OHLCV, error) {
	key := fmt.Sprintf("bars:%s:%d", symbol, c.opts.HistoryDays)
	var bars []model.OHLCV
	err := c.cached(ctx, "bars", key, c.opts.PriceTTL, &bars, func() (any, error) {
		return c.timed(c.prices.Name(), "bars", func() (any, error) {
			return c.prices.FetchDailyBars(ctx, symbol, c.opts.HistoryDays)
		})
	})
	return bars, err
}

func (c *Collector) analystSnapshot(ctx context.Context, symbol string) (*model.AnalystSnapshot, error) {
	var snap model.AnalystSnapshot
	err := c.cached(ctx, "analyst", "analyst:"+symbol, c.opts.AnalystTTL, &snap, func() (any, error) {
		return c.timed(c.analyst.Name(), "analyst", func() (any, error) {
			return c.analyst.FetchAnalyst(ctx, symbol)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Collector) fundamentalsOf(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	var f model.Fundamentals
	err := c.cached(ctx, "fundamentals", "fundamentals:"+symbol, c.opts.AnalystTTL, &f, func() (any, error) {
		return c.timed(c.fundamentals.Name(), "fundamentals", func() (any, error) {
			return c.fundamentals.FetchFundamentals(ctx, symbol)
		})
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Collector) timed(source, kind string, fn func() (any, error)) (any, error) {
	start := time.Now()
	v, err := fn()
	c.metrics.ObserveFetch(source, kind, time.Since(start), err)
	return v, err
}

// cached reads key into dest, or calls fetch and stores its result.
// Without a cache or with a zero ttl every call goes upstream.
func (c *Collector) cached(ctx context.Context, kind, key string, ttl time.Duration, dest any, fetch func() (any, error)) error {
	useCache := c.cache != nil && ttl > 0
	if useCache {
		err := c.cache.Get(ctx, key, dest)
		if err == nil {
			c.metrics.ObserveCache(kind, true)
			return nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.log.Warn().Str("key", key).Err(err).Msg("cache read failed")
		}
		c.metrics.ObserveCache(kind, false)
	}

	v, err := fetch()
	if err != nil {
		return err
	}
	if err := assign(dest, v); err != nil {
		return err
	}
	if useCache {
		if err := c.cache.Set(ctx, key, dest, ttl); err != nil {
			c.log.Warn().Str("key", key).Err(err).Msg("cache write failed")
		}
	}
	return nil
}

func assign(dest, v any) error {
	switch d := dest.(type) {
	case *[]model.OHLCV:
		bars, _ := v.([]model.OHLCV)
		if len(bars) == 0 {
			return errors.New("no price data")
		}
		*d = bars
	case *model.AnalystSnapshot:
		snap, _ := v.(*model.AnalystSnapshot)
		if snap == nil {
			return errors.New("empty analyst snapshot")
		}
		*d = *snap
	case *model.Fundamentals:
		f, _ := v.(*model.Fundamentals)
		if f == nil {
			return errors.New("empty fundamentals")
		}
		*d = *f
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

// Package dashboard computes signal snapshots over the tracked universe.
package dashboard

import (
	"context"
	"strings"
	"sync"
	"time"

	"InvestDash/internal/collector"
	"InvestDash/internal/errs"
	"InvestDash/internal/metrics"
	"InvestDash/internal/model"
	"InvestDash/internal/store"
	"InvestDash/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures a Service.
type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "dashboard").Logger() }
}

func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }

// WithPreviousRiskOn seeds the breadth hysteresis, typically from history.
func WithPreviousRiskOn(v *bool) Option { return func(s *Service) { s.prevRiskOn = v } }

// Service reads membership from the store on every call, so results always
// reflect the latest committed buckets and tickers.
type Service struct {
	store     *store.Store
	collector *collector.Collector
	rule      strategy.EntryRule
	breadth   strategy.BreadthPolicy
	metrics   *metrics.Recorder
	log       zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	prevRiskOn *bool
	last       *model.SignalSnapshot
}

// NewService wires the signal pipeline.
func NewService(st *store.Store, col *collector.Collector, rule strategy.EntryRule, bp strategy.BreadthPolicy, opts ...Option) *Service {
	s := &Service{
		store:     st,
		collector: col,
		rule:      rule,
		breadth:   bp,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signals computes a fresh snapshot of every active ticker and keeps it as
// the last snapshot.
func (s *Service) Signals(ctx context.Context, includeAnalyst bool) *model.SignalSnapshot {
	out := s.compute(ctx, includeAnalyst)
	s.mu.Lock()
	s.last = out
	s.mu.Unlock()
	return out
}

// Breadth computes the current breadth state without analyst data. The
// last snapshot is left alone.
func (s *Service) Breadth(ctx context.Context) model.BreadthState {
	return s.compute(ctx, false).Breadth
}

func (s *Service) compute(ctx context.Context, includeAnalyst bool) *model.SignalSnapshot {
	snap := s.store.Snapshot()
	targets := make([]collector.Target, 0, len(snap.Tickers))
	for _, t := range snap.Tickers {
		if !t.Active {
			continue
		}
		targets = append(targets, collector.Target{
			Symbol:       t.Symbol,
			Name:         t.Name,
			Type:         t.Type,
			Bucket:       t.Bucket,
			Fundamentals: t.Fundamentals,
		})
	}

	start := time.Now()
	rows := s.collector.Collect(ctx, targets, includeAnalyst)

	s.mu.Lock()
	breadth := strategy.ComputeBreadth(rows, s.breadth, s.prevRiskOn)
	if breadth.RiskOn != nil {
		v := *breadth.RiskOn
		s.prevRiskOn = &v
	}
	s.mu.Unlock()

	for i := range rows {
		rows[i].EntryOK = s.rule.Evaluate(&rows[i], breadth.RiskOn)
	}
	s.metrics.SetBreadth(breadth.Indicator, breadth.Fraction)

	out := &model.SignalSnapshot{
		RunID:   uuid.NewString(),
		AsOf:    s.now().UTC(),
		Signals: rows,
		Breadth: breadth,
	}

	s.log.Debug().
		Str("run_id", out.RunID).
		Int64("revision", snap.Revision).
		Int("symbols", len(rows)).
		Dur("took", time.Since(start)).
		Msg("signals computed")
	return out
}

// Last returns the most recent snapshot, or nil before the first computation.
func (s *Service) Last() *model.SignalSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Analyst returns the analyst snapshot of one symbol.
func (s *Service) Analyst(ctx context.Context, symbol string) (*model.AnalystSnapshot, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return nil, errs.Invalid("analyst", "symbol is required")
	}
	return s.collector.Analyst(ctx, sym)
}

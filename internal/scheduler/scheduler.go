package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"InvestDash/internal/dashboard"
	"InvestDash/internal/metrics"
	"InvestDash/internal/model"
	"InvestDash/internal/notifier"
	"InvestDash/internal/recorder"
	"InvestDash/internal/store"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Event types pushed to live subscribers.
const (
	EventRefreshed   = "signals.refreshed"
	EventBreadthFlip = "breadth.flip"
	EventReentry     = "reentry"
)

// Sender delivers alert messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Broadcaster pushes events to live subscribers.
type Broadcaster interface {
	Broadcast(eventType string, payload any)
}

// Option configures optional collaborators.
type Option func(*Scheduler)

func WithSender(s Sender) Option { return func(sc *Scheduler) { sc.sender = s } }

func WithBroadcaster(b Broadcaster) Option { return func(sc *Scheduler) { sc.hub = b } }

func WithMetrics(m *metrics.Recorder) Option { return func(sc *Scheduler) { sc.metrics = m } }

func WithLogger(l zerolog.Logger) Option {
	return func(sc *Scheduler) { sc.log = l.With().Str("component", "scheduler").Logger() }
}

// Scheduler runs the periodic signal refresh and answers bot commands.
type Scheduler struct {
	Cron *cron.Cron

	service     *dashboard.Service
	store       *store.Store
	recorder    recorder.Recorder
	sender      Sender
	hub         Broadcaster
	metrics     *metrics.Recorder
	signalsPath string
	log         zerolog.Logger
	ctx         context.Context

	// runMu serializes refreshes; the fields below belong to it.
	runMu     sync.Mutex
	hasRun    bool
	lastRisk  *bool
	reentered map[string]bool
}

// NewScheduler creates a new Scheduler. signalsPath may be empty to skip
// writing the snapshot file.
func NewScheduler(ctx context.Context, svc *dashboard.Service, st *store.Store, rec recorder.Recorder, signalsPath string, opts ...Option) *Scheduler {
	s := &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		service:     svc,
		store:       st,
		recorder:    rec,
		signalsPath: signalsPath,
		log:         zerolog.Nop(),
		ctx:         ctx,
		reentered:   make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	if s.recorder == nil {
		s.recorder = recorder.NewNoopRecorder()
	}
	return s
}

// Register adds the refresh job on the given cron spec (with seconds).
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	if _, err := s.RunNow(s.ctx); err != nil {
		s.log.Error().Err(err).Msg("refresh failed")
	}
}

// RunNow computes a snapshot, writes the snapshot file, records history,
// updates last-known fundamentals, and emits events and alerts.
func (s *Scheduler) RunNow(ctx context.Context) (snap *model.SignalSnapshot, err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	defer func() { s.metrics.ObserveRefresh(err) }()

	start := time.Now()
	snap = s.service.Signals(ctx, true)

	if s.signalsPath != "" {
		if err := s.writeSignals(snap); err != nil {
			return snap, err
		}
	}
	if err := s.recorder.RecordSnapshot(ctx, snap); err != nil {
		s.log.Error().Err(err).Str("run_id", snap.RunID).Msg("record snapshot")
	}
	s.storeFundamentals(snap.Signals)
	s.notify(ctx, snap)

	s.log.Info().
		Str("run_id", snap.RunID).
		Int("symbols", len(snap.Signals)).
		Dur("took", time.Since(start)).
		Msg("refresh complete")
	return snap, nil
}

type signalsFile struct {
	AsOf    time.Time         `json:"as_of"`
	Signals []model.SignalRow `json:"signals"`
}

func (s *Scheduler) writeSignals(snap *model.SignalSnapshot) error {
	data, err := json.MarshalIndent(signalsFile{AsOf: snap.AsOf, Signals: snap.Signals}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode signals: %w", err)
	}
	if err := store.WriteFileAtomic(s.signalsPath, data); err != nil {
		return fmt.Errorf("write signals: %w", err)
	}
	return nil
}

func (s *Scheduler) storeFundamentals(rows []model.SignalRow) {
	updates := make(map[string]model.Fundamentals)
	for _, r := range rows {
		if !r.Fundamentals.IsEmpty() {
			updates[r.Symbol] = r.Fundamentals
		}
	}
	if len(updates) == 0 {
		return
	}
	n, err := s.store.UpdateFundamentalsBatch(updates)
	if err != nil {
		s.log.Warn().Err(err).Int("symbols", len(updates)).Msg("update fundamentals")
		return
	}
	if n > 0 {
		s.log.Debug().Int("changed", n).Msg("fundamentals stored")
	}
}

// notify compares the snapshot with the previous run. The first run only
// establishes the baseline.
func (s *Scheduler) notify(ctx context.Context, snap *model.SignalSnapshot) {
	s.broadcast(EventRefreshed, map[string]any{
		"run_id":  snap.RunID,
		"as_of":   snap.AsOf,
		"breadth": snap.Breadth,
	})

	current := make(map[string]bool)
	var fresh []model.SignalRow
	for _, r := range snap.Signals {
		if r.Reentry == nil || !*r.Reentry {
			continue
		}
		current[r.Symbol] = true
		if s.hasRun && !s.reentered[r.Symbol] {
			fresh = append(fresh, r)
		}
	}

	prev := s.lastRisk
	cur := snap.Breadth.RiskOn
	flipped := s.hasRun && prev != nil && cur != nil && *prev != *cur

	s.hasRun = true
	s.reentered = current
	if cur != nil {
		v := *cur
		s.lastRisk = &v
	}

	if flipped {
		s.log.Info().Bool("risk_on", *cur).Msg("breadth flipped")
		s.broadcast(EventBreadthFlip, snap.Breadth)
		s.send(ctx, notifier.FormatBreadthFlip(prev, snap.Breadth))
	}
	if len(fresh) > 0 {
		symbols := make([]string, len(fresh))
		for i, r := range fresh {
			symbols[i] = r.Symbol
		}
		s.log.Info().Strs("symbols", symbols).Msg("new re-entry signals")
		s.broadcast(EventReentry, map[string]any{"symbols": symbols})
		s.send(ctx, notifier.FormatReentries(fresh))
	}
}

func (s *Scheduler) broadcast(eventType string, payload any) {
	if s.hub != nil {
		s.hub.Broadcast(eventType, payload)
	}
}

func (s *Scheduler) send(ctx context.Context, text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// HandleCommand processes a bot command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i] // "/breadth@MyBot" in group chats
	}
	switch cmd {
	case "/breadth":
		return notifier.FormatBreadth(s.service.Breadth(ctx))
	case "/buckets":
		var unassigned []string
		for _, t := range s.store.ListTickers() {
			if t.Bucket == nil {
				unassigned = append(unassigned, t.Symbol)
			}
		}
		sort.Strings(unassigned)
		return notifier.FormatBuckets(s.store.ListBuckets(), unassigned)
	case "/signals":
		snap := s.service.Last()
		if snap == nil {
			snap = s.service.Signals(ctx, false)
		}
		return notifier.FormatSignals(snap)
	case "/refresh":
		snap, err := s.RunNow(ctx)
		if err != nil {
			return "Refresh failed: " + err.Error()
		}
		return notifier.FormatSignals(snap)
	default:
		return "Available commands:\n• /breadth\n• /buckets\n• /signals\n• /refresh"
	}
}

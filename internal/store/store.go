// Package store holds the tracked tickers and their bucket assignments and
// persists every change before reporting success.
package store

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"sync"
	"time"

	"InvestDash/internal/errs"
	"InvestDash/internal/model"

	"github.com/rs/zerolog"
)

// Observer is notified about mutation outcomes.
type Observer interface {
	MutationCommitted(op string, revision int64)
	MutationFailed(op string, kind errs.Kind)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l.With().Str("component", "store").Logger() }
}

// WithSeedBuckets creates the given buckets when no state file exists yet.
func WithSeedBuckets(names ...string) Option {
	return func(s *Store) { s.seed = append(s.seed, names...) }
}

// WithIdentifierMap sets the ISIN/WKN to symbol map used by AddTicker.
func WithIdentifierMap(ids map[string]string) Option {
	return func(s *Store) {
		s.ids = make(map[string]string, len(ids))
		for k, v := range ids {
			s.ids[normalizeSymbol(k)] = v
		}
	}
}

// WithObserver registers an observer for mutation outcomes.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// Store is the single owner of bucket and ticker state.
//
// Mutations are serialized by writeMu and applied to a copy of the state;
// the copy is persisted and only then published under mu. Readers only take
// mu, so they never wait on disk I/O and always see the last committed state.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *state

	dir       string
	ids       map[string]string
	seed      []string
	observers []Observer
	log       zerolog.Logger
	now       func() time.Time
}

// Snapshot is an immutable view of the committed state.
type Snapshot struct {
	Revision  int64
	UpdatedAt time.Time
	Buckets   map[string][]string
	Tickers   []model.TickerView
}

// errUnchanged marks a mutation that succeeded without changing anything.
var errUnchanged = errors.New("unchanged")

// New opens the store in dir, loading any existing state.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir: dir,
		ids: DefaultIdentifierMap,
		log: zerolog.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, existed := loadState(dir, s.log)
	if !existed && len(s.seed) > 0 {
		for _, name := range s.seed {
			if n, err := normalizeBucket("seed", name); err == nil {
				st.buckets[n] = []string{}
			}
		}
		st.revision = 1
		st.updatedAt = s.now()
		if err := saveState(dir, st); err != nil {
			s.log.Warn().Err(err).Msg("persist seed buckets")
		}
	}
	s.state = st

	s.log.Info().
		Str("dir", dir).
		Int64("revision", st.revision).
		Int("buckets", len(st.buckets)).
		Int("tickers", len(st.tickers)).
		Msg("state loaded")
	return s, nil
}

// --- reads ---

// ListBuckets returns every bucket with its members sorted.
func (s *Store) ListBuckets() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.state.buckets))
	for name, members := range s.state.buckets {
		out[name] = append([]string{}, members...)
	}
	return out
}

// ListTickers returns every tracked ticker sorted by symbol.
func (s *Store) ListTickers() []model.TickerView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.views()
}

// Ticker returns one tracked ticker.
func (s *Store) Ticker(symbol string) (model.TickerView, error) {
	sym := normalizeSymbol(symbol)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.tickers[sym]
	if !ok {
		return model.TickerView{}, errs.NotFound("get ticker", "ticker", sym)
	}
	return s.state.view(t), nil
}

// BucketOf returns the bucket holding symbol, or nil when it is unassigned.
func (s *Store) BucketOf(symbol string) (*string, error) {
	v, err := s.Ticker(symbol)
	if err != nil {
		return nil, err
	}
	return v.Bucket, nil
}

// Snapshot returns a consistent copy of buckets and tickers.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buckets := make(map[string][]string, len(s.state.buckets))
	for name, members := range s.state.buckets {
		buckets[name] = append([]string{}, members...)
	}
	return Snapshot{
		Revision:  s.state.revision,
		UpdatedAt: s.state.updatedAt,
		Buckets:   buckets,
		Tickers:   s.state.views(),
	}
}

// Revision returns the revision of the committed state.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.revision
}

func (st *state) view(t model.Ticker) model.TickerView {
	v := model.TickerView{Ticker: t}
	if b, ok := st.owner[t.Symbol]; ok {
		name := b
		v.Bucket = &name
	}
	return v
}

func (st *state) views() []model.TickerView {
	out := make([]model.TickerView, 0, len(st.tickers))
	for _, t := range st.tickers {
		out = append(out, st.view(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// --- mutations ---

// CreateBucket adds an empty bucket.
func (s *Store) CreateBucket(name string) error {
	const op = "create bucket"
	n, err := normalizeBucket(op, name)
	if err != nil {
		return s.fail(op, err)
	}
	return s.mutate(op, func(st *state) error {
		if _, ok := st.buckets[n]; ok {
			return errs.New(errs.KindDuplicateBucket, op, n, "bucket already exists")
		}
		st.buckets[n] = []string{}
		return nil
	})
}

// RenameBucket renames a bucket, keeping its members.
func (s *Store) RenameBucket(oldName, newName string) error {
	const op = "rename bucket"
	from, err := normalizeBucket(op, oldName)
	if err != nil {
		return s.fail(op, err)
	}
	to, err := normalizeBucket(op, newName)
	if err != nil {
		return s.fail(op, err)
	}
	return s.mutate(op, func(st *state) error {
		members, ok := st.buckets[from]
		if !ok {
			return errs.NotFound(op, "bucket", from)
		}
		if from == to {
			return errUnchanged
		}
		if _, exists := st.buckets[to]; exists {
			return errs.New(errs.KindDuplicateBucket, op, to, "bucket already exists")
		}
		delete(st.buckets, from)
		st.buckets[to] = members
		for _, sym := range members {
			st.owner[sym] = to
		}
		return nil
	})
}

// DeleteBucket removes a bucket. Its members stay tracked and become unassigned.
func (s *Store) DeleteBucket(name string) error {
	const op = "delete bucket"
	n, err := normalizeBucket(op, name)
	if err != nil {
		return s.fail(op, err)
	}
	return s.mutate(op, func(st *state) error {
		members, ok := st.buckets[n]
		if !ok {
			return errs.NotFound(op, "bucket", n)
		}
		for _, sym := range members {
			delete(st.owner, sym)
		}
		delete(st.buckets, n)
		return nil
	})
}

// AddTicker starts tracking a symbol, ISIN or WKN, optionally inside bucket.
// It returns the resolved symbol.
func (s *Store) AddTicker(input, bucket, typeHint string) (string, error) {
	const op = "add ticker"
	res, err := resolveSymbol(op, input, s.ids)
	if err != nil {
		return "", s.fail(op, err)
	}
	typ, err := inferType(op, res.Symbol, typeHint)
	if err != nil {
		return "", s.fail(op, err)
	}
	var target string
	if bucket != "" {
		if target, err = normalizeBucket(op, bucket); err != nil {
			return "", s.fail(op, err)
		}
	}

	err = s.mutate(op, func(st *state) error {
		if _, ok := st.tickers[res.Symbol]; ok {
			return errs.New(errs.KindDuplicateTicker, op, res.Symbol, "ticker already tracked")
		}
		if target != "" {
			if _, ok := st.buckets[target]; !ok {
				return errs.NotFound(op, "bucket", target)
			}
		}
		st.tickers[res.Symbol] = model.Ticker{
			Symbol:  res.Symbol,
			ISIN:    res.ISIN,
			WKN:     res.WKN,
			Type:    typ,
			Active:  true,
			AddedAt: s.now().UTC(),
		}
		st.assign(res.Symbol, target)
		return nil
	})
	if err != nil {
		return "", err
	}
	return res.Symbol, nil
}

// RemoveTicker stops tracking a symbol.
func (s *Store) RemoveTicker(symbol string) error {
	const op = "remove ticker"
	sym := normalizeSymbol(symbol)
	return s.mutate(op, func(st *state) error {
		if _, ok := st.tickers[sym]; !ok {
			return errs.NotFound(op, "ticker", sym)
		}
		st.assign(sym, "")
		delete(st.tickers, sym)
		return nil
	})
}

// MoveTicker reassigns a tracked symbol to an existing bucket.
func (s *Store) MoveTicker(symbol, bucket string) error {
	const op = "move ticker"
	sym := normalizeSymbol(symbol)
	target, err := normalizeBucket(op, bucket)
	if err != nil {
		return s.fail(op, err)
	}
	return s.mutate(op, func(st *state) error {
		if _, ok := st.tickers[sym]; !ok {
			return errs.NotFound(op, "ticker", sym)
		}
		if _, ok := st.buckets[target]; !ok {
			return errs.NotFound(op, "bucket", target)
		}
		if st.owner[sym] == target {
			return errUnchanged
		}
		st.assign(sym, target)
		return nil
	})
}

// UnassignTicker removes a tracked symbol from its bucket.
func (s *Store) UnassignTicker(symbol string) error {
	const op = "unassign ticker"
	sym := normalizeSymbol(symbol)
	return s.mutate(op, func(st *state) error {
		if _, ok := st.tickers[sym]; !ok {
			return errs.NotFound(op, "ticker", sym)
		}
		if _, ok := st.owner[sym]; !ok {
			return errUnchanged
		}
		st.assign(sym, "")
		return nil
	})
}

// UpdateFundamentals stores the last-known fundamentals of a tracked symbol.
func (s *Store) UpdateFundamentals(symbol string, f model.Fundamentals) error {
	const op = "update fundamentals"
	sym := normalizeSymbol(symbol)
	return s.mutate(op, func(st *state) error {
		t, ok := st.tickers[sym]
		if !ok {
			return errs.NotFound(op, "ticker", sym)
		}
		if reflect.DeepEqual(t.Fundamentals, f) {
			return errUnchanged
		}
		t.Fundamentals = f
		st.tickers[sym] = t
		return nil
	})
}

// UpdateFundamentalsBatch stores fundamentals for many symbols in a single
// committed revision. Untracked symbols are skipped. It returns the number of
// tickers whose fundamentals changed.
func (s *Store) UpdateFundamentalsBatch(updates map[string]model.Fundamentals) (int, error) {
	const op = "update fundamentals"
	changed := 0
	err := s.mutate(op, func(st *state) error {
		changed = 0
		for symbol, f := range updates {
			sym := normalizeSymbol(symbol)
			t, ok := st.tickers[sym]
			if !ok || reflect.DeepEqual(t.Fundamentals, f) {
				continue
			}
			t.Fundamentals = f
			st.tickers[sym] = t
			changed++
		}
		if changed == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// Persist writes the committed state to disk again.
func (s *Store) Persist() error {
	const op = "persist"
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	st := s.state.clone()
	s.mu.RUnlock()

	if err := saveState(s.dir, st); err != nil {
		return s.fail(op, errs.Wrap(errs.KindPersistenceFailure, op, err))
	}
	s.log.Debug().Int64("revision", st.revision).Msg("state persisted")
	return nil
}

// mutate applies fn to a copy of the state, persists the copy and publishes it.
func (s *Store) mutate(op string, fn func(st *state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.state.clone()
	s.mu.RUnlock()

	if err := fn(next); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return s.fail(op, err)
	}
	next.revision++
	next.updatedAt = s.now().UTC()

	if err := saveState(s.dir, next); err != nil {
		return s.fail(op, errs.Wrap(errs.KindPersistenceFailure, op, err))
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.log.Info().Str("op", op).Int64("revision", next.revision).Msg("state committed")
	for _, o := range s.observers {
		o.MutationCommitted(op, next.revision)
	}
	return nil
}

func (s *Store) fail(op string, err error) error {
	kind := errs.KindOf(err)
	if kind == errs.KindPersistenceFailure {
		s.log.Error().Err(err).Str("op", op).Msg("persist state")
	} else {
		s.log.Debug().Err(err).Str("op", op).Msg("mutation rejected")
	}
	for _, o := range s.observers {
		o.MutationFailed(op, kind)
	}
	return err
}

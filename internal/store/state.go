package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"InvestDash/internal/model"

	"github.com/rs/zerolog"
)

// File names inside the data directory.
const (
	BucketsFile = "buckets.json"
	TickersFile = "tickers.json"
	LegacyFile  = "state.json"
)

// state is one consistent version of buckets and tickers.
type state struct {
	revision  int64
	updatedAt time.Time
	buckets   map[string][]string
	tickers   map[string]model.Ticker
	owner     map[string]string
}

func newState() *state {
	return &state{
		buckets: make(map[string][]string),
		tickers: make(map[string]model.Ticker),
		owner:   make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := &state{
		revision:  s.revision,
		updatedAt: s.updatedAt,
		buckets:   make(map[string][]string, len(s.buckets)),
		tickers:   make(map[string]model.Ticker, len(s.tickers)),
		owner:     make(map[string]string, len(s.owner)),
	}
	for name, members := range s.buckets {
		c.buckets[name] = append([]string(nil), members...)
	}
	for sym, t := range s.tickers {
		c.tickers[sym] = t
	}
	for sym, b := range s.owner {
		c.owner[sym] = b
	}
	return c
}

// assign moves symbol into bucket, or unassigns it when bucket is empty.
func (s *state) assign(symbol, bucket string) {
	if prev, ok := s.owner[symbol]; ok {
		s.buckets[prev] = without(s.buckets[prev], symbol)
		delete(s.owner, symbol)
	}
	if bucket == "" {
		return
	}
	s.buckets[bucket] = insertSorted(s.buckets[bucket], symbol)
	s.owner[symbol] = bucket
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

// --- on-disk records ---

type bucketsRecord struct {
	Revision  int64               `json:"revision"`
	UpdatedAt time.Time           `json:"updated_at"`
	Buckets   map[string][]string `json:"buckets"`
}

type tickersRecord struct {
	Revision  int64                   `json:"revision"`
	UpdatedAt time.Time               `json:"updated_at"`
	Tickers   map[string]model.Ticker `json:"tickers"`
}

// legacyRecord is the single-file layout older dashboards read and write.
type legacyRecord struct {
	Revision  int64                   `json:"revision"`
	UpdatedAt time.Time               `json:"updated_at"`
	Buckets   map[string][]string     `json:"buckets"`
	Tickers   map[string]model.Ticker `json:"tickers"`
}

// loadState reads the data directory. It returns an empty state when nothing
// is readable; existed reports whether any state file was present at all.
func loadState(dir string, log zerolog.Logger) (st *state, existed bool) {
	var (
		b      bucketsRecord
		t      tickersRecord
		legacy legacyRecord
	)
	bOK, bExists := readRecord(filepath.Join(dir, BucketsFile), &b, log)
	tOK, tExists := readRecord(filepath.Join(dir, TickersFile), &t, log)
	lOK, lExists := readRecord(filepath.Join(dir, LegacyFile), &legacy, log)
	existed = bExists || tExists || lExists

	switch {
	case bOK && tOK && b.Revision == t.Revision:
		return reconcile(b.Revision, b.UpdatedAt, b.Buckets, t.Tickers), existed
	case lOK:
		if bOK || tOK {
			log.Warn().Int64("buckets_rev", b.Revision).Int64("tickers_rev", t.Revision).
				Msg("split state files disagree, using combined state file")
		}
		return reconcile(legacy.Revision, legacy.UpdatedAt, legacy.Buckets, legacy.Tickers), existed
	case bOK || tOK:
		rev := b.Revision
		if t.Revision > rev {
			rev = t.Revision
		}
		log.Warn().Bool("buckets_ok", bOK).Bool("tickers_ok", tOK).Msg("partial state on disk, reconciling")
		return reconcile(rev, time.Time{}, b.Buckets, t.Tickers), existed
	default:
		return newState(), existed
	}
}

// readRecord decodes one JSON file. A missing or corrupt file is not an error.
func readRecord(path string, dest any, log zerolog.Logger) (ok, exists bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Error().Err(err).Str("path", path).Msg("read state file")
			return false, true
		}
		return false, false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Error().Err(err).Str("path", path).Msg("corrupt state file ignored")
		return false, true
	}
	return true, true
}

// reconcile rebuilds a consistent state from possibly inconsistent records:
// members missing from the ticker list are added and a symbol listed in
// several buckets stays in the first one by name.
func reconcile(rev int64, updated time.Time, buckets map[string][]string, tickers map[string]model.Ticker) *state {
	st := newState()
	st.revision = rev
	st.updatedAt = updated

	for key, t := range tickers {
		sym := normalizeSymbol(key)
		if sym == "" {
			continue
		}
		t.Symbol = sym
		if !t.Type.Valid() {
			t.Type, _ = inferType("load", sym, "")
		}
		st.tickers[sym] = t
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		n, err := normalizeBucket("load", name)
		if err != nil {
			continue
		}
		if _, ok := st.buckets[n]; !ok {
			st.buckets[n] = []string{}
		}
		for _, m := range buckets[name] {
			sym := normalizeSymbol(m)
			if sym == "" {
				continue
			}
			if _, owned := st.owner[sym]; owned {
				continue
			}
			if _, ok := st.tickers[sym]; !ok {
				typ, _ := inferType("load", sym, "")
				st.tickers[sym] = model.Ticker{Symbol: sym, Type: typ, Active: true}
			}
			st.assign(sym, n)
		}
	}
	return st
}

// saveState writes the three records. Every temp file is written before any
// rename so that an encoding or write failure leaves the directory untouched.
func saveState(dir string, st *state) error {
	buckets := make(map[string][]string, len(st.buckets))
	for name, members := range st.buckets {
		buckets[name] = append([]string{}, members...)
	}

	records := []struct {
		name  string
		value any
	}{
		{TickersFile, tickersRecord{Revision: st.revision, UpdatedAt: st.updatedAt, Tickers: st.tickers}},
		{BucketsFile, bucketsRecord{Revision: st.revision, UpdatedAt: st.updatedAt, Buckets: buckets}},
		{LegacyFile, legacyRecord{Revision: st.revision, UpdatedAt: st.updatedAt, Buckets: buckets, Tickers: st.tickers}},
	}

	temps := make([]string, 0, len(records))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}
	for _, r := range records {
		data, err := json.MarshalIndent(r.value, "", "  ")
		if err != nil {
			cleanup()
			return fmt.Errorf("encode %s: %w", r.name, err)
		}
		tmp, err := writeTemp(dir, r.name, data)
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, tmp)
	}

	for i, r := range records {
		if err := os.Rename(temps[i], filepath.Join(dir, r.name)); err != nil {
			cleanup()
			return fmt.Errorf("replace %s: %w", r.name, err)
		}
	}
	syncDir(dir)
	return nil
}

// WriteFileAtomic replaces path with data through a synced temp file and a rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := writeTemp(dir, filepath.Base(path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	syncDir(dir)
	return nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	return tmp, nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

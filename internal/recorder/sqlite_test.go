package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"InvestDash/internal/model"

	"github.com/rs/zerolog"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func snapshot(runID string, at time.Time, riskOn *bool, fraction *float64) *model.SignalSnapshot {
	closeV := 101.5
	errMsg := "timed out"
	return &model.SignalSnapshot{
		RunID: runID,
		AsOf:  at,
		Signals: []model.SignalRow{
			{Symbol: "AAA", Close: &closeV, EntryOK: true},
			{Symbol: "BBB", DataError: &errMsg},
		},
		Breadth: model.BreadthState{
			RiskOn: riskOn, Fraction: fraction, Above: 1, Total: 2,
			ThresholdOn: 0.6, ThresholdOff: 0.4, Indicator: "above50",
		},
	}
}

func TestSQLiteRecorder_BreadthHistory(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	on, half := true, 0.5

	if err := r.RecordSnapshot(ctx, snapshot("run-1", base, nil, nil)); err != nil {
		t.Fatalf("record 1: %v", err)
	}
	if err := r.RecordSnapshot(ctx, snapshot("run-2", base.Add(time.Hour), &on, &half)); err != nil {
		t.Fatalf("record 2: %v", err)
	}

	points, err := r.RecentBreadth(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].RunID != "run-2" || points[0].RiskOn == nil || !*points[0].RiskOn || *points[0].Fraction != 0.5 {
		t.Errorf("newest point = %+v", points[0])
	}
	if points[1].RiskOn != nil || points[1].Fraction != nil {
		t.Errorf("null breadth should read back as nil, got %+v", points[1])
	}
	if !points[1].AsOf.Equal(base) {
		t.Errorf("as_of = %s, want %s", points[1].AsOf, base)
	}

	limited, err := r.RecentBreadth(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limit not applied: %v %v", limited, err)
	}

	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM signal_snapshots`).Scan(&n); err != nil || n != 4 {
		t.Errorf("signal rows = %d (%v), want 4", n, err)
	}
}

func TestSQLiteRecorder_GeneratesRunID(t *testing.T) {
	r := newTestRecorder(t)
	ctx := context.Background()
	if err := r.RecordSnapshot(ctx, snapshot("", time.Now(), nil, nil)); err != nil {
		t.Fatalf("record: %v", err)
	}
	points, _ := r.RecentBreadth(ctx, 1)
	if len(points) != 1 || len(points[0].RunID) != 36 {
		t.Errorf("expected a generated uuid run id, got %+v", points)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordSnapshot(context.Background(), &model.SignalSnapshot{}); err != nil {
		t.Fatal(err)
	}
	points, err := r.RecentBreadth(context.Background(), 5)
	if err != nil || points == nil || len(points) != 0 {
		t.Errorf("noop history = %v, %v", points, err)
	}
}

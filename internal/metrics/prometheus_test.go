package metrics

import (
	"errors"
	"testing"
	"time"

	"InvestDash/internal/errs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveFetch("yahoo", "bars", 10*time.Millisecond, nil)
	r.ObserveFetch("yahoo", "bars", 10*time.Millisecond, errors.New("timeout"))
	r.MutationCommitted("create bucket", 3)
	r.MutationFailed("create bucket", errs.KindDuplicateBucket)
	r.ObserveRow(true)
	frac := 0.75
	r.SetBreadth("above50", &frac)

	if got := testutil.ToFloat64(r.fetchErrors.WithLabelValues("yahoo", "bars")); got != 1 {
		t.Errorf("fetch errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.revision); got != 3 {
		t.Errorf("revision = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.mutations.WithLabelValues("create bucket", "DUPLICATE_BUCKET")); got != 1 {
		t.Errorf("failed mutations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.rowsComputed.WithLabelValues("degraded")); got != 1 {
		t.Errorf("degraded rows = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.breadth.WithLabelValues("above50")); got != 0.75 {
		t.Errorf("breadth = %v, want 0.75", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveFetch("yahoo", "bars", time.Second, nil)
	r.ObserveCache("bars", true)
	r.MutationCommitted("x", 1)
	r.SetBreadth("above50", nil)
}

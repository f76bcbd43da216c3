// Package metrics exposes Prometheus instruments for fetching, signal
// computation, state mutations and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"InvestDash/internal/errs"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds every instrument of the service.
type Recorder struct {
	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	rowsComputed  *prometheus.CounterVec
	refreshRuns   *prometheus.CounterVec
	breadth       *prometheus.GaugeVec
	mutations     *prometheus.CounterVec
	revision      prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "investdash_fetch_duration_seconds",
			Help:    "Duration of market data fetches by source and kind",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "kind"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "investdash_fetch_errors_total",
			Help: "Failed market data fetches by source and kind",
		}, []string{"source", "kind"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "investdash_cache_lookups_total",
			Help: "Market data cache lookups by kind and result",
		}, []string{"kind", "result"}),
		rowsComputed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "investdash_signal_rows_total",
			Help: "Signal rows computed by outcome",
		}, []string{"outcome"}),
		refreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "investdash_refresh_runs_total",
			Help: "Scheduled signal refreshes by result",
		}, []string{"result"}),
		breadth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "investdash_breadth_fraction",
			Help: "Fraction of included symbols above their moving average",
		}, []string{"indicator"}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "investdash_state_mutations_total",
			Help: "Bucket and ticker mutations by operation and result",
		}, []string{"op", "result"}),
		revision: f.NewGauge(prometheus.GaugeOpts{
			Name: "investdash_state_revision",
			Help: "Revision of the committed bucket and ticker state",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
	}
}

// ObserveFetch records one upstream call.
func (r *Recorder) ObserveFetch(source, kind string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.fetchDuration.WithLabelValues(source, kind).Observe(d.Seconds())
	if err != nil {
		r.fetchErrors.WithLabelValues(source, kind).Inc()
	}
}

// ObserveCache records a cache hit or miss.
func (r *Recorder) ObserveCache(kind string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveRow records a computed row; degraded rows carry a data error.
func (r *Recorder) ObserveRow(degraded bool) {
	if r == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	r.rowsComputed.WithLabelValues(outcome).Inc()
}

// ObserveRefresh records a scheduled refresh.
func (r *Recorder) ObserveRefresh(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.refreshRuns.WithLabelValues(result).Inc()
}

// SetBreadth publishes the latest breadth fraction.
func (r *Recorder) SetBreadth(indicator string, fraction *float64) {
	if r == nil || fraction == nil {
		return
	}
	r.breadth.WithLabelValues(indicator).Set(*fraction)
}

// MutationCommitted implements store.Observer.
func (r *Recorder) MutationCommitted(op string, revision int64) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(op, "ok").Inc()
	r.revision.Set(float64(revision))
}

// MutationFailed implements store.Observer.
func (r *Recorder) MutationFailed(op string, kind errs.Kind) {
	if r == nil {
		return
	}
	r.mutations.WithLabelValues(op, string(kind)).Inc()
}

// Middleware records request counts and latency by route template.
func (r *Recorder) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if r == nil {
				return err
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			method := c.Request().Method
			r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
			r.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

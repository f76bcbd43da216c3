package recorder

import (
	"context"
	"time"

	"InvestDash/internal/model"
)

// BreadthPoint is one recorded breadth reading.
type BreadthPoint struct {
	RunID     string    `json:"run_id"`
	AsOf      time.Time `json:"as_of"`
	RiskOn    *bool     `json:"risk_on"`
	Fraction  *float64  `json:"fraction"`
	Above     int       `json:"above"`
	Total     int       `json:"total"`
	Indicator string    `json:"indicator"`
}

// Recorder persists the history of signal refreshes for analysis.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snap *model.SignalSnapshot) error
	// RecentBreadth returns up to limit readings, newest first.
	RecentBreadth(ctx context.Context, limit int) ([]BreadthPoint, error)
	Close() error
}

package recorder

import (
	"context"

	"InvestDash/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordSnapshot(_ context.Context, _ *model.SignalSnapshot) error { return nil }

func (n *NoopRecorder) RecentBreadth(_ context.Context, _ int) ([]BreadthPoint, error) {
	return []BreadthPoint{}, nil
}

func (n *NoopRecorder) Close() error { return nil }

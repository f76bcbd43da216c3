package collector

import (
	"context"

	"InvestDash/internal/model"
)

// PriceFetcher supplies daily bars.
type PriceFetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

// AnalystFetcher supplies analyst ratings, price targets and the earnings date.
type AnalystFetcher interface {
	FetchAnalyst(ctx context.Context, symbol string) (*model.AnalystSnapshot, error)
	Name() string
}

// FundamentalsFetcher supplies the company profile.
type FundamentalsFetcher interface {
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
	Name() string
}

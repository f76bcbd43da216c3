package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"InvestDash/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// It implements PriceFetcher, AnalystFetcher and FundamentalsFetcher.
type MockFetcher struct {
	Price        float64
	Bars         map[string][]model.OHLCV
	Errors       map[string]error
	Analysts     map[string]*model.AnalystSnapshot
	Fundamentals map[string]*model.Fundamentals
	Delay        time.Duration

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times symbol was requested for kind.
func (m *MockFetcher) Calls(kind, symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind+":"+symbol]
}

func (m *MockFetcher) enter(ctx context.Context, kind, symbol string) error {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[kind+":"+symbol]++
	m.mu.Unlock()

	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err, ok := m.Errors[symbol]; ok {
		return err
	}
	return nil
}

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if err := m.enter(ctx, "bars", symbol); err != nil {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	price := m.Price
	if price == 0 {
		price = 100
	}
	return generateMockBars(price, days), nil
}

func (m *MockFetcher) FetchAnalyst(ctx context.Context, symbol string) (*model.AnalystSnapshot, error) {
	if err := m.enter(ctx, "analyst", symbol); err != nil {
		return nil, err
	}
	if a, ok := m.Analysts[symbol]; ok {
		return a, nil
	}
	return nil, errors.New("mock: no analyst data")
}

func (m *MockFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	if err := m.enter(ctx, "fundamentals", symbol); err != nil {
		return nil, err
	}
	if f, ok := m.Fundamentals[symbol]; ok {
		return f, nil
	}
	return nil, errors.New("mock: no fundamentals")
}

// generateMockBars returns a gently rising series ending today.
func generateMockBars(basePrice float64, count int) []model.OHLCV {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   today.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

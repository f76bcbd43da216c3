package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	// NoVolume marks a bar whose volume the provider did not report.
	NoVolume bool `json:"no_volume,omitempty"`
}

// PriceSeries holds the daily bars of one symbol in ascending time order.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Bars      []OHLCV   `json:"bars"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Closes returns the close prices of the series.
func (p *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar, or false if the series is empty.
func (p *PriceSeries) Last() (OHLCV, bool) {
	if len(p.Bars) == 0 {
		return OHLCV{}, false
	}
	return p.Bars[len(p.Bars)-1], true
}

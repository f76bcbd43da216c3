package model

import "time"

// TickerType classifies an instrument.
type TickerType string

const (
	TickerEquity TickerType = "equity"
	TickerETF    TickerType = "etf"
)

// Valid reports whether t is a known ticker type.
func (t TickerType) Valid() bool {
	return t == TickerEquity || t == TickerETF
}

// Fundamentals is the last-known company profile of a symbol.
// Every field is nil when the provider did not report it.
type Fundamentals struct {
	MarketCap        *float64 `json:"market_cap"`
	Revenue          *float64 `json:"revenue"`
	ProfitMarginPct  *float64 `json:"profit_margin_pct"`
	RevenueGrowthPct *float64 `json:"revenue_growth_pct"`
	NextEarnings     *string  `json:"next_earnings"`
}

// IsEmpty reports whether no fundamental is known.
func (f Fundamentals) IsEmpty() bool {
	return f.MarketCap == nil && f.Revenue == nil && f.ProfitMarginPct == nil &&
		f.RevenueGrowthPct == nil && f.NextEarnings == nil
}

// Ticker is one tracked instrument.
type Ticker struct {
	Symbol       string       `json:"symbol"`
	Name         string       `json:"name,omitempty"`
	Exchange     string       `json:"exchange,omitempty"`
	Currency     string       `json:"currency,omitempty"`
	ISIN         string       `json:"isin,omitempty"`
	WKN          string       `json:"wkn,omitempty"`
	Type         TickerType   `json:"type"`
	Active       bool         `json:"active"`
	Fundamentals Fundamentals `json:"fundamentals"`
	AddedAt      time.Time    `json:"added_at"`
}

// TickerView is a ticker together with its bucket assignment.
type TickerView struct {
	Ticker
	Bucket *string `json:"bucket"`
}

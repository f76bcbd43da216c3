package model

import "time"

// RSIZone buckets an RSI value.
type RSIZone string

const (
	ZoneOversold   RSIZone = "oversold"
	ZoneNeutral    RSIZone = "neutral"
	ZoneOverbought RSIZone = "overbought"
)

// SignalRow is the computed indicator row of one tracked symbol.
// Pointer fields are nil when the value cannot be computed and serialize as null.
type SignalRow struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name,omitempty"`
	Type   string  `json:"type,omitempty"`
	Bucket *string `json:"bucket"`

	Close          *float64 `json:"close"`
	SMA50          *float64 `json:"sma50"`
	SMA200         *float64 `json:"sma200"`
	Above50        *bool    `json:"above50"`
	Above200       *bool    `json:"above200"`
	DeltaSMA50Pct  *float64 `json:"delta_sma50_pct"`
	DeltaSMA200Pct *float64 `json:"delta_sma200_pct"`

	RSI14   *float64 `json:"rsi14"`
	RSIZone *RSIZone `json:"rsi_zone"`

	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	MACDHist   *float64 `json:"macd_hist"`

	Pivot         *float64 `json:"pivot"`
	High52w       *float64 `json:"w52_high"`
	Low52w        *float64 `json:"w52_low"`
	PctTo52wHigh  *float64 `json:"pct_to_52w_high"`
	PctFrom52wLow *float64 `json:"pct_from_52w_low"`
	VolAvg20Ratio *float64 `json:"vol_avg20_ratio"`

	EntryOK bool  `json:"entry_ok"`
	Reentry *bool `json:"reentry"`

	AnalystSummary
	Fundamentals

	DataError *string `json:"data_error"`
}

// BreadthState is the market-wide risk-on summary.
type BreadthState struct {
	RiskOn       *bool    `json:"risk_on"`
	Above        int      `json:"above"`
	Total        int      `json:"total"`
	Fraction     *float64 `json:"fraction"`
	ThresholdOn  float64  `json:"threshold_on"`
	ThresholdOff float64  `json:"threshold_off"`
	Indicator    string   `json:"indicator"`
}

// SignalSnapshot is one full computation over all tracked symbols.
type SignalSnapshot struct {
	RunID   string       `json:"run_id"`
	AsOf    time.Time    `json:"as_of"`
	Signals []SignalRow  `json:"signals"`
	Breadth BreadthState `json:"breadth"`
}

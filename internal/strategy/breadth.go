package strategy

import "InvestDash/internal/model"

// Breadth indicators.
const (
	IndicatorAbove50  = "above50"
	IndicatorAbove200 = "above200"
)

// Breadth inclusion sets.
const (
	InclusionAll      = "all"
	InclusionBucketed = "bucketed"
)

// BreadthPolicy configures the breadth aggregator.
type BreadthPolicy struct {
	Indicator    string
	Inclusion    string
	ThresholdOn  float64
	ThresholdOff float64
	MinSymbols   int
}

// DefaultBreadthPolicy is risk-on above 60% and risk-off below 40% of all
// tracked symbols trading above their 50-day average.
var DefaultBreadthPolicy = BreadthPolicy{
	Indicator:    IndicatorAbove50,
	Inclusion:    InclusionAll,
	ThresholdOn:  0.6,
	ThresholdOff: 0.4,
	MinSymbols:   1,
}

// ComputeBreadth aggregates rows into a breadth state. prev is the last known
// risk_on and decides the outcome inside the band between the thresholds.
func ComputeBreadth(rows []model.SignalRow, p BreadthPolicy, prev *bool) model.BreadthState {
	state := model.BreadthState{
		ThresholdOn:  p.ThresholdOn,
		ThresholdOff: p.ThresholdOff,
		Indicator:    p.Indicator,
	}
	for i := range rows {
		row := &rows[i]
		if p.Inclusion == InclusionBucketed && row.Bucket == nil {
			continue
		}
		v := row.Above50
		if p.Indicator == IndicatorAbove200 {
			v = row.Above200
		}
		if v == nil {
			continue
		}
		state.Total++
		if *v {
			state.Above++
		}
	}

	minSymbols := p.MinSymbols
	if minSymbols < 1 {
		minSymbols = 1
	}
	if state.Total < minSymbols {
		return state
	}

	fraction := float64(state.Above) / float64(state.Total)
	state.Fraction = &fraction

	var on bool
	switch {
	case state.Above == state.Total || fraction >= p.ThresholdOn:
		on = true
	case fraction <= p.ThresholdOff:
		on = false
	case prev != nil:
		on = *prev
	default:
		return state
	}
	state.RiskOn = &on
	return state
}

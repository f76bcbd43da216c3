package strategy

import (
	"InvestDash/internal/calculator"
	"InvestDash/internal/model"
)

// EntryRule is a conjunction of conditions.
type EntryRule struct {
	Conditions []Condition
}

// NewEntryRule builds a rule, falling back to DefaultEntryConditions when empty.
func NewEntryRule(conds []Condition) EntryRule {
	if len(conds) == 0 {
		conds = DefaultEntryConditions
	}
	return EntryRule{Conditions: conds}
}

// Evaluate returns true only when every condition is known and passes.
func (r EntryRule) Evaluate(row *model.SignalRow, riskOn *bool) bool {
	for _, c := range r.Conditions {
		check, ok := checks[c]
		if !ok {
			return false
		}
		pass, known := check(row, riskOn)
		if !known || !pass {
			return false
		}
	}
	return true
}

// ReentryPolicy controls the re-entry detector.
type ReentryPolicy struct {
	MAPeriod int
	Lookback int
}

// DefaultReentryPolicy crosses back above the 50-day average within a week.
var DefaultReentryPolicy = ReentryPolicy{MAPeriod: 50, Lookback: 5}

// Reentry reports whether the latest close is back above its moving average
// after at least one close below it during the lookback bars. It returns nil
// when there is not enough history.
func Reentry(bars []model.OHLCV, p ReentryPolicy) *bool {
	if p.MAPeriod <= 0 || p.Lookback <= 0 || len(bars) < p.MAPeriod+p.Lookback {
		return nil
	}
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	sma, err := calculator.RollingSMA(closes, p.MAPeriod)
	if err != nil {
		return nil
	}
	// sma[i] belongs to closes[i+MAPeriod-1].
	at := func(idx int) float64 { return sma[idx-p.MAPeriod+1] }

	last := len(closes) - 1
	if closes[last] <= at(last) {
		return calculator.Bool(false)
	}
	for j := last - p.Lookback; j < last; j++ {
		if closes[j] < at(j) {
			return calculator.Bool(true)
		}
	}
	return calculator.Bool(false)
}

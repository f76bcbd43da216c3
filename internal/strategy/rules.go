package strategy

import (
	"fmt"

	"InvestDash/internal/model"
)

// Condition is one named term of the entry rule.
type Condition string

const (
	CondAbove50          Condition = "above50"
	CondAbove200         Condition = "above200"
	CondMACDBullish      Condition = "macd_bullish"
	CondMACDAboveSignal  Condition = "macd_above_signal"
	CondRSINotOverbought Condition = "rsi_not_overbought"
	CondRSINotOversold   Condition = "rsi_not_oversold"
	CondRiskOn           Condition = "risk_on"
	CondReentry          Condition = "reentry"
)

// DefaultEntryConditions is the rule used when none is configured.
var DefaultEntryConditions = []Condition{CondAbove50, CondAbove200, CondRSINotOverbought, CondMACDBullish}

// checkFunc evaluates a condition; ok is false when an input is unknown.
type checkFunc func(row *model.SignalRow, riskOn *bool) (pass, ok bool)

var checks = map[Condition]checkFunc{
	CondAbove50:  func(r *model.SignalRow, _ *bool) (bool, bool) { return boolValue(r.Above50) },
	CondAbove200: func(r *model.SignalRow, _ *bool) (bool, bool) { return boolValue(r.Above200) },
	CondMACDBullish: func(r *model.SignalRow, _ *bool) (bool, bool) {
		if r.MACDHist == nil {
			return false, false
		}
		return *r.MACDHist > 0, true
	},
	CondMACDAboveSignal: func(r *model.SignalRow, _ *bool) (bool, bool) {
		if r.MACD == nil || r.MACDSignal == nil {
			return false, false
		}
		return *r.MACD > *r.MACDSignal, true
	},
	CondRSINotOverbought: func(r *model.SignalRow, _ *bool) (bool, bool) {
		if r.RSIZone == nil {
			return false, false
		}
		return *r.RSIZone != model.ZoneOverbought, true
	},
	CondRSINotOversold: func(r *model.SignalRow, _ *bool) (bool, bool) {
		if r.RSIZone == nil {
			return false, false
		}
		return *r.RSIZone != model.ZoneOversold, true
	},
	CondRiskOn:  func(_ *model.SignalRow, riskOn *bool) (bool, bool) { return boolValue(riskOn) },
	CondReentry: func(r *model.SignalRow, _ *bool) (bool, bool) { return boolValue(r.Reentry) },
}

func boolValue(b *bool) (bool, bool) {
	if b == nil {
		return false, false
	}
	return *b, true
}

// ParseConditions validates condition names.
func ParseConditions(names []string) ([]Condition, error) {
	out := make([]Condition, 0, len(names))
	for _, n := range names {
		c := Condition(n)
		if _, ok := checks[c]; !ok {
			return nil, fmt.Errorf("unknown entry condition %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}

// NeedsBreadth reports whether the rule depends on the breadth state.
func NeedsBreadth(conds []Condition) bool {
	for _, c := range conds {
		if c == CondRiskOn {
			return true
		}
	}
	return false
}

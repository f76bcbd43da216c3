package calculator

import (
	"errors"
	"math"

	"InvestDash/internal/model"
)

// TradingDaysPerYear is the 52-week lookback in sessions.
const TradingDaysPerYear = 252

// Calculate52WeekRange scans the most recent 252 trading days and returns the high and low.
func Calculate52WeekRange(dailyBars []model.OHLCV) (high, low float64, err error) {
	if len(dailyBars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	n := len(dailyBars)
	start := n - TradingDaysPerYear
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if dailyBars[i].High > high {
			high = dailyBars[i].High
		}
		if dailyBars[i].Low < low {
			low = dailyBars[i].Low
		}
	}
	if math.IsInf(high, 0) || math.IsInf(low, 0) {
		return 0, 0, errors.New("no usable bars in range")
	}
	return high, low, nil
}

// PctToHigh returns how far the high is above close, in percent.
func PctToHigh(close, high float64) (float64, error) {
	if close == 0 {
		return 0, errors.New("close must be non-zero")
	}
	return (high/close - 1) * 100, nil
}

// PctFromLow returns how far close is above the low, in percent.
func PctFromLow(close, low float64) (float64, error) {
	if low == 0 {
		return 0, errors.New("low must be non-zero")
	}
	return (close/low - 1) * 100, nil
}

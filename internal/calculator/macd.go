package calculator

import (
	"errors"

	"InvestDash/internal/model"
)

const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDResult is the latest MACD reading. Signal and Hist are nil until
// the MACD series is long enough to seed the signal line.
type MACDResult struct {
	MACD   float64
	Signal *float64
	Hist   *float64
}

// CalculateMACD computes MACD(fast, slow, signal) over closing prices.
func CalculateMACD(prices []float64, fast, slow, signal int) (MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return MACDResult{}, errors.New("invalid MACD spans")
	}
	if len(prices) < slow {
		return MACDResult{}, errors.New("not enough data for MACD calculation")
	}

	fastEMA, err := CalculateEMA(prices, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowEMA, err := CalculateEMA(prices, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// fastEMA[0] is bar fast-1, slowEMA[0] is bar slow-1.
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	res := MACDResult{MACD: line[len(line)-1]}
	if len(line) < signal {
		return res, nil
	}
	sig, err := CalculateEMA(line, signal)
	if err != nil {
		return res, err
	}
	s := sig[len(sig)-1]
	h := res.MACD - s
	res.Signal = &s
	res.Hist = &h
	return res, nil
}

// CalculateDailyMACD computes the standard 12/26/9 MACD from daily bars.
func CalculateDailyMACD(dailyBars []model.OHLCV) (MACDResult, error) {
	return CalculateMACD(extractCloses(dailyBars), MACDFast, MACDSlow, MACDSignal)
}

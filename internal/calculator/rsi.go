package calculator

import (
	"errors"

	"InvestDash/internal/model"
)

const (
	RSIPeriod     = 14
	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 bars. A series with no gains and no losses is neutral (50).
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 0, errors.New("not enough data for RSI calculation")
	}

	closes := extractCloses(bars)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50.0, nil
	}
	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// ClassifyRSI maps an RSI value to its zone. The 30 and 70 boundaries are neutral.
func ClassifyRSI(rsi float64) model.RSIZone {
	switch {
	case rsi < RSIOversold:
		return model.ZoneOversold
	case rsi > RSIOverbought:
		return model.ZoneOverbought
	default:
		return model.ZoneNeutral
	}
}

package calculator

import (
	"errors"

	"InvestDash/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateSMA50 returns the 50-day simple moving average from daily bars.
func CalculateSMA50(dailyBars []model.OHLCV) (float64, error) {
	return CalculateSMA(extractCloses(dailyBars), 50)
}

// CalculateSMA200 returns the 200-day simple moving average from daily bars.
func CalculateSMA200(dailyBars []model.OHLCV) (float64, error) {
	return CalculateSMA(extractCloses(dailyBars), 200)
}

// RollingSMA returns the SMA ending at every index from period-1 onward.
// result[i] is the average of prices[i : i+period].
func RollingSMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(prices) < period {
		return nil, errors.New("not enough data for SMA calculation")
	}
	out := make([]float64, 0, len(prices)-period+1)
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// CalculateEMA returns the exponential moving average series with smoothing
// 2/(span+1). The series is seeded with the mean of the first span values and
// result[0] corresponds to prices[span-1]. With fewer than span values the
// first value is the seed and result[0] corresponds to prices[0].
func CalculateEMA(prices []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	if len(prices) == 0 {
		return nil, errors.New("no prices provided")
	}
	alpha := 2.0 / float64(span+1)

	seedEnd := span
	seed := 0.0
	if len(prices) < span {
		seedEnd = 1
		seed = prices[0]
	} else {
		for i := 0; i < span; i++ {
			seed += prices[i]
		}
		seed /= float64(span)
	}

	out := make([]float64, 0, len(prices)-seedEnd+1)
	out = append(out, seed)
	prev := seed
	for i := seedEnd; i < len(prices); i++ {
		prev = alpha*prices[i] + (1-alpha)*prev
		out = append(out, prev)
	}
	return out, nil
}

// PercentDelta returns (value/base - 1) * 100.
func PercentDelta(value, base float64) (float64, error) {
	if base == 0 {
		return 0, errors.New("base must be non-zero")
	}
	return (value/base - 1) * 100, nil
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

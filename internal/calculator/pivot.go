package calculator

import (
	"errors"

	"InvestDash/internal/model"
)

// ClassicPivot returns the floor pivot (H+L+C)/3 of the previous session.
func ClassicPivot(dailyBars []model.OHLCV) (float64, error) {
	if len(dailyBars) < 2 {
		return 0, errors.New("not enough data for pivot calculation")
	}
	prev := dailyBars[len(dailyBars)-2]
	return (prev.High + prev.Low + prev.Close) / 3, nil
}

// WindowPivot returns (max high + min low + last close)/3 over the window
// sessions preceding the latest bar.
func WindowPivot(dailyBars []model.OHLCV, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(dailyBars) < window+1 {
		return 0, errors.New("not enough data for pivot calculation")
	}
	bars := dailyBars[len(dailyBars)-1-window : len(dailyBars)-1]
	high, low := bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return (high + low + bars[len(bars)-1].Close) / 3, nil
}

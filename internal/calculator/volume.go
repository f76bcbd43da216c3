package calculator

import (
	"errors"

	"InvestDash/internal/model"
)

// VolumePeriod is the averaging window for the volume ratio.
const VolumePeriod = 20

// VolumeRatio returns the latest volume divided by the mean volume of the
// last period bars, the latest included. Bars without a reported volume are
// left out of the mean.
func VolumeRatio(dailyBars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(dailyBars) < period {
		return 0, errors.New("not enough data for volume ratio")
	}
	last := dailyBars[len(dailyBars)-1]
	if last.NoVolume {
		return 0, errors.New("latest volume is unknown")
	}
	sum := 0.0
	n := 0
	for _, b := range dailyBars[len(dailyBars)-period:] {
		if b.NoVolume {
			continue
		}
		sum += b.Volume
		n++
	}
	avg := sum / float64(n)
	if avg == 0 {
		return 0, errors.New("average volume is zero")
	}
	return last.Volume / avg, nil
}

package collector

import (
	"InvestDash/internal/calculator"
	"InvestDash/internal/model"
	"InvestDash/internal/strategy"
)

const (
	PivotClassic = "classic"
	PivotWindow  = "window"
)

// RowOptions selects the configurable parts of the indicator row.
type RowOptions struct {
	PivotMode   string
	PivotWindow int
	Reentry     strategy.ReentryPolicy
}

// ComputeRow derives every price indicator of a row from daily bars in
// ascending order. Values that cannot be computed stay nil.
func ComputeRow(t Target, bars []model.OHLCV, opts RowOptions) model.SignalRow {
	row := newRow(t)
	if len(bars) == 0 {
		msg := "no price data"
		row.DataError = &msg
		return row
	}

	closeV := bars[len(bars)-1].Close
	row.Close = calculator.Float(closeV)

	if sma, err := calculator.CalculateSMA50(bars); err == nil {
		row.SMA50 = calculator.Float(sma)
		row.Above50 = calculator.Bool(closeV > sma)
		if d, err := calculator.PercentDelta(closeV, sma); err == nil {
			row.DeltaSMA50Pct = calculator.Float(d)
		}
	}
	if sma, err := calculator.CalculateSMA200(bars); err == nil {
		row.SMA200 = calculator.Float(sma)
		row.Above200 = calculator.Bool(closeV > sma)
		if d, err := calculator.PercentDelta(closeV, sma); err == nil {
			row.DeltaSMA200Pct = calculator.Float(d)
		}
	}

	if rsi, err := calculator.CalculateRSI(bars, calculator.RSIPeriod); err == nil {
		row.RSI14, row.RSIZone = rsiColumns(rsi)
	}

	if m, err := calculator.CalculateDailyMACD(bars); err == nil {
		row.MACD = calculator.Float(m.MACD)
		row.MACDSignal = m.Signal
		row.MACDHist = m.Hist
	}

	var pivot float64
	var err error
	if opts.PivotMode == PivotWindow {
		pivot, err = calculator.WindowPivot(bars, opts.PivotWindow)
	} else {
		pivot, err = calculator.ClassicPivot(bars)
	}
	if err == nil {
		row.Pivot = calculator.Float(pivot)
	}

	if high, low, err := calculator.Calculate52WeekRange(bars); err == nil {
		row.High52w = calculator.Float(high)
		row.Low52w = calculator.Float(low)
		if v, err := calculator.PctToHigh(closeV, high); err == nil {
			row.PctTo52wHigh = calculator.Float(v)
		}
		if v, err := calculator.PctFromLow(closeV, low); err == nil {
			row.PctFrom52wLow = calculator.Float(v)
		}
	}

	if v, err := calculator.VolumeRatio(bars, calculator.VolumePeriod); err == nil {
		row.VolAvg20Ratio = calculator.Float(v)
	}

	row.Reentry = strategy.Reentry(bars, opts.Reentry)
	return row
}

// rsiColumns rounds rsi to its output precision and classifies the rounded
// value, so the zone always agrees with the published number.
func rsiColumns(rsi float64) (*float64, *model.RSIZone) {
	v := calculator.RoundPtr(calculator.Float(rsi), 2)
	if v == nil {
		return nil, nil
	}
	z := calculator.ClassifyRSI(*v)
	return v, &z
}

func newRow(t Target) model.SignalRow {
	return model.SignalRow{
		Symbol:       t.Symbol,
		Name:         t.Name,
		Type:         string(t.Type),
		Bucket:       t.Bucket,
		Fundamentals: t.Fundamentals,
	}
}

// applyAnalyst fills the analyst columns from a snapshot.
func applyAnalyst(row *model.SignalRow, snap *model.AnalystSnapshot) {
	if snap == nil {
		return
	}
	ratings := snap.Ratings
	if len(ratings) == 0 && snap.Recommendation != nil {
		ratings = snap.Recommendation.Ratings()
	}
	row.AnalystSummary = calculator.AggregateAnalyst(ratings, snap.Target, row.Close)
	if snap.NextEarnings != nil {
		row.NextEarnings = snap.NextEarnings
	}
}

// applyFundamentals overlays freshly fetched values on the last-known ones.
func applyFundamentals(row *model.SignalRow, f *model.Fundamentals) {
	if f == nil {
		return
	}
	if f.MarketCap != nil {
		row.MarketCap = f.MarketCap
	}
	if f.Revenue != nil {
		row.Revenue = f.Revenue
	}
	if f.ProfitMarginPct != nil {
		row.ProfitMarginPct = f.ProfitMarginPct
	}
	if f.RevenueGrowthPct != nil {
		row.RevenueGrowthPct = f.RevenueGrowthPct
	}
	if row.NextEarnings == nil && f.NextEarnings != nil {
		row.NextEarnings = f.NextEarnings
	}
}

// roundRow applies output precision: two decimals for prices and
// percentages, four for the MACD family.
func roundRow(row *model.SignalRow) {
	for _, p := range []**float64{
		&row.Close, &row.SMA50, &row.SMA200, &row.DeltaSMA50Pct, &row.DeltaSMA200Pct,
		&row.RSI14, &row.Pivot, &row.High52w, &row.Low52w, &row.PctTo52wHigh,
		&row.PctFrom52wLow, &row.VolAvg20Ratio, &row.BuyPct, &row.HoldPct,
		&row.SellPct, &row.AvgTarget, &row.DistToTargetPct,
		&row.ProfitMarginPct, &row.RevenueGrowthPct,
	} {
		*p = calculator.RoundPtr(*p, 2)
	}
	for _, p := range []**float64{&row.MACD, &row.MACDSignal, &row.MACDHist} {
		*p = calculator.RoundPtr(*p, 4)
	}
}

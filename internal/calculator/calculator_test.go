package calculator

import (
	"math"
	"testing"
	"time"

	"InvestDash/internal/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func barsFromCloses(closes ...float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	sma, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sma != 4 {
		t.Errorf("SMA = %v, want 4", sma)
	}
	if _, err := CalculateSMA([]float64{1, 2}, 3); err == nil {
		t.Error("expected error with fewer prices than period")
	}
	if _, err := CalculateSMA([]float64{1, 2}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestCalculateSMA50And200(t *testing.T) {
	bars := barsFromCloses(ramp(199, 1, 1)...)
	if _, err := CalculateSMA200(bars); err == nil {
		t.Error("SMA200 must be undefined with 199 bars")
	}
	sma50, err := CalculateSMA50(bars)
	if err != nil {
		t.Fatalf("SMA50: %v", err)
	}
	// last 50 closes are 150..199
	if !approx(sma50, 174.5) {
		t.Errorf("SMA50 = %v, want 174.5", sma50)
	}
}

func TestRollingSMA(t *testing.T) {
	got, err := RollingSMA([]float64{1, 2, 3, 4}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1.5, 2.5, 3.5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCalculateEMA(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		span   int
		want   []float64
	}{
		{"seeded with mean", []float64{1, 2, 3, 4, 5}, 3, []float64{2, 3, 4}},
		{"fewer than span seeds with first", []float64{10, 20}, 3, []float64{10, 15}},
		{"exact span", []float64{2, 4, 6}, 3, []float64{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateEMA(tt.prices, tt.span)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if !approx(got[i], tt.want[i]) {
					t.Errorf("got[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCalculateMACD_ConstantSeries(t *testing.T) {
	res, err := CalculateMACD(constant(60, 100), MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(res.MACD, 0) {
		t.Errorf("MACD = %v, want 0", res.MACD)
	}
	if res.Signal == nil || !approx(*res.Signal, 0) {
		t.Errorf("signal = %v, want 0", res.Signal)
	}
	if res.Hist == nil || !approx(*res.Hist, 0) {
		t.Errorf("hist = %v, want 0", res.Hist)
	}
}

func TestCalculateMACD_Availability(t *testing.T) {
	if _, err := CalculateMACD(ramp(25, 1, 1), MACDFast, MACDSlow, MACDSignal); err == nil {
		t.Error("MACD must be undefined with 25 closes")
	}

	res, err := CalculateMACD(ramp(26, 1, 1), MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		t.Fatalf("26 closes: %v", err)
	}
	if res.Signal != nil || res.Hist != nil {
		t.Error("signal and hist must be undefined with 26 closes")
	}

	res, err = CalculateMACD(ramp(33, 1, 1), MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		t.Fatalf("33 closes: %v", err)
	}
	if res.Signal != nil {
		t.Error("signal must be undefined with 33 closes")
	}

	res, err = CalculateMACD(ramp(34, 1, 1), MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		t.Fatalf("34 closes: %v", err)
	}
	if res.Signal == nil || res.Hist == nil {
		t.Fatal("signal and hist must be defined with 34 closes")
	}
	if res.MACD <= 0 {
		t.Errorf("rising series should have positive MACD, got %v", res.MACD)
	}
	if !approx(*res.Hist, res.MACD-*res.Signal) {
		t.Errorf("hist %v != macd - signal %v", *res.Hist, res.MACD-*res.Signal)
	}
}

func TestCalculateRSI(t *testing.T) {
	if _, err := CalculateRSI(barsFromCloses(ramp(14, 1, 1)...), RSIPeriod); err == nil {
		t.Error("RSI must be undefined with 14 bars")
	}

	rsi, err := CalculateRSI(barsFromCloses(ramp(15, 1, 1)...), RSIPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rsi != 100 {
		t.Errorf("strictly rising RSI = %v, want 100", rsi)
	}

	rsi, err = CalculateRSI(barsFromCloses(ramp(30, 100, -1)...), RSIPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rsi != 0 || ClassifyRSI(rsi) != model.ZoneOversold {
		t.Errorf("strictly falling RSI = %v (%s), want 0 oversold", rsi, ClassifyRSI(rsi))
	}

	rsi, err = CalculateRSI(barsFromCloses(constant(20, 50)...), RSIPeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rsi != 50 || ClassifyRSI(rsi) != model.ZoneNeutral {
		t.Errorf("flat RSI = %v, want neutral 50", rsi)
	}
}

func TestClassifyRSI_Boundaries(t *testing.T) {
	tests := []struct {
		rsi  float64
		want model.RSIZone
	}{
		{0, model.ZoneOversold},
		{29.99, model.ZoneOversold},
		{30, model.ZoneNeutral},
		{50, model.ZoneNeutral},
		{70, model.ZoneNeutral},
		{70.01, model.ZoneOverbought},
		{100, model.ZoneOverbought},
	}
	for _, tt := range tests {
		if got := ClassifyRSI(tt.rsi); got != tt.want {
			t.Errorf("ClassifyRSI(%v) = %s, want %s", tt.rsi, got, tt.want)
		}
	}
}

func TestCalculate52WeekRange(t *testing.T) {
	bars := barsFromCloses(ramp(300, 10, 0.1)...)
	bars[10].High = 1000 // outside the 252-session window
	bars[100].Low = 1
	high, low, err := Calculate52WeekRange(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(high, bars[299].High) {
		t.Errorf("high = %v, want %v", high, bars[299].High)
	}
	if low != 1 {
		t.Errorf("low = %v, want 1", low)
	}

	if _, _, err := Calculate52WeekRange(nil); err == nil {
		t.Error("expected error for empty bars")
	}
}

func TestRangePercentages(t *testing.T) {
	toHigh, err := PctToHigh(100, 110)
	if err != nil || !approx(Round(toHigh, 2), 10) {
		t.Errorf("PctToHigh = %v, %v; want 10", toHigh, err)
	}
	fromLow, err := PctFromLow(100, 80)
	if err != nil || !approx(fromLow, 25) {
		t.Errorf("PctFromLow = %v, %v; want 25", fromLow, err)
	}
	if _, err := PctToHigh(0, 110); err == nil {
		t.Error("expected error for zero close")
	}
	if _, err := PctFromLow(100, 0); err == nil {
		t.Error("expected error for zero low")
	}
}

func TestPivots(t *testing.T) {
	bars := []model.OHLCV{
		{High: 10, Low: 4, Close: 8},
		{High: 12, Low: 6, Close: 9},
		{High: 15, Low: 9, Close: 14},
	}
	p, err := ClassicPivot(bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(p, 9) {
		t.Errorf("classic pivot = %v, want 9", p)
	}
	if _, err := ClassicPivot(bars[:1]); err == nil {
		t.Error("expected error with one bar")
	}

	w, err := WindowPivot(bars, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// max high 12, min low 4, last close 9
	if !approx(w, 25.0/3) {
		t.Errorf("window pivot = %v, want %v", w, 25.0/3)
	}
	if _, err := WindowPivot(bars, 3); err == nil {
		t.Error("expected error when window leaves no current bar")
	}
}

func TestVolumeRatio(t *testing.T) {
	bars := barsFromCloses(constant(20, 10)...)
	for i := range bars {
		bars[i].Volume = 100
	}
	bars[19].Volume = 300
	r, err := VolumeRatio(bars, VolumePeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(r, 300.0/110.0) {
		t.Errorf("ratio = %v, want %v", r, 300.0/110.0)
	}

	if _, err := VolumeRatio(bars[:19], VolumePeriod); err == nil {
		t.Error("expected error with 19 bars")
	}

	bars[0].Volume, bars[0].NoVolume = 0, true
	r, err = VolumeRatio(bars, VolumePeriod)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(r, 300.0/(2100.0/19.0)) {
		t.Errorf("ratio = %v, want unreported volume left out of the mean", r)
	}

	bars[19].NoVolume = true
	if _, err := VolumeRatio(bars, VolumePeriod); err == nil {
		t.Error("expected error when the latest volume is unknown")
	}

	for i := range bars {
		bars[i].Volume, bars[i].NoVolume = 0, false
	}
	if _, err := VolumeRatio(bars, VolumePeriod); err == nil {
		t.Error("expected error when average volume is zero")
	}
}

func TestAggregateAnalyst(t *testing.T) {
	ratings := []model.AnalystRating{
		{Category: model.RatingBuy},
		{Category: model.RatingBuy},
		{Category: model.RatingHold},
		{Category: model.RatingSell},
	}
	s := AggregateAnalyst(ratings, nil, nil)
	if s.Total == nil || *s.Total != 4 {
		t.Errorf("total = %v, want 4", s.Total)
	}
	if s.BuyPct == nil || *s.BuyPct != 50 || *s.HoldPct != 25 || *s.SellPct != 25 {
		t.Errorf("pcts = %v/%v/%v, want 50/25/25", s.BuyPct, s.HoldPct, s.SellPct)
	}
	if s.AvgTarget != nil || s.DistToTargetPct != nil {
		t.Error("targets must be null without any target")
	}
}

func TestAggregateAnalyst_Empty(t *testing.T) {
	s := AggregateAnalyst(nil, nil, Float(100))
	if s.Total == nil || *s.Total != 0 {
		t.Errorf("total = %v, want 0", s.Total)
	}
	if s.BuyPct != nil || s.HoldPct != nil || s.SellPct != nil {
		t.Error("percentages must be null with zero ratings")
	}
}

func TestAggregateAnalyst_Targets(t *testing.T) {
	ratings := []model.AnalystRating{
		{Category: model.RatingBuy, Target: Float(100)},
		{Category: model.RatingHold, Target: Float(120)},
		{Category: model.RatingSell},
	}
	s := AggregateAnalyst(ratings, &model.PriceTarget{Mean: Float(500)}, Float(100))
	if s.AvgTarget == nil || *s.AvgTarget != 110 {
		t.Fatalf("avg target = %v, want 110", s.AvgTarget)
	}
	if s.DistToTargetPct == nil || !approx(*s.DistToTargetPct, 10) {
		t.Errorf("dist = %v, want 10", s.DistToTargetPct)
	}
	sum := *s.BuyPct + *s.HoldPct + *s.SellPct
	if !approx(sum, 100) {
		t.Errorf("percentages sum to %v, want 100", sum)
	}

	consensus := AggregateAnalyst(nil, &model.PriceTarget{Mean: Float(150)}, Float(100))
	if consensus.AvgTarget == nil || *consensus.AvgTarget != 150 {
		t.Errorf("consensus avg target = %v, want 150", consensus.AvgTarget)
	}
	mid := AggregateAnalyst(nil, &model.PriceTarget{High: Float(200), Low: Float(100)}, Float(0))
	if mid.AvgTarget == nil || *mid.AvgTarget != 150 {
		t.Errorf("midpoint avg target = %v, want 150", mid.AvgTarget)
	}
	if mid.DistToTargetPct != nil {
		t.Error("distance must be null for zero close")
	}
}

func TestFloatRejectsNonFinite(t *testing.T) {
	if Float(math.NaN()) != nil || Float(math.Inf(1)) != nil {
		t.Error("Float must return nil for NaN and Inf")
	}
	if v := Float(1.5); v == nil || *v != 1.5 {
		t.Errorf("Float(1.5) = %v", v)
	}
	if r := RoundPtr(Float(1.23456), 2); r == nil || *r != 1.23 {
		t.Errorf("RoundPtr = %v, want 1.23", r)
	}
}

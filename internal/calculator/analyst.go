package calculator

import "InvestDash/internal/model"

// AggregateAnalyst summarizes ratings into buy/hold/sell percentages and an
// average target. Individual targets win over the provider's consensus; the
// consensus mean wins over the high/low midpoint. close may be nil.
func AggregateAnalyst(ratings []model.AnalystRating, consensus *model.PriceTarget, close *float64) model.AnalystSummary {
	var s model.AnalystSummary
	var buy, hold, sell int
	var targetSum float64
	var targets int
	for _, r := range ratings {
		switch r.Category {
		case model.RatingBuy:
			buy++
		case model.RatingHold:
			hold++
		case model.RatingSell:
			sell++
		default:
			continue
		}
		if r.Target != nil && IsFinite(*r.Target) {
			targetSum += *r.Target
			targets++
		}
	}
	n := buy + hold + sell
	s.Total = &n
	if n > 0 {
		total := float64(n)
		s.BuyPct = Float(float64(buy) / total * 100)
		s.HoldPct = Float(float64(hold) / total * 100)
		s.SellPct = Float(float64(sell) / total * 100)
	}

	switch {
	case targets > 0:
		s.AvgTarget = Float(targetSum / float64(targets))
	case consensus != nil && consensus.Mean != nil:
		s.AvgTarget = Float(*consensus.Mean)
	case consensus != nil && consensus.High != nil && consensus.Low != nil:
		s.AvgTarget = Float((*consensus.High + *consensus.Low) / 2)
	}

	if s.AvgTarget != nil && close != nil && *close != 0 {
		s.DistToTargetPct = Float((*s.AvgTarget - *close) / *close * 100)
	}
	return s
}

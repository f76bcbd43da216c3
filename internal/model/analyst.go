package model

// RatingCategory is the normalized analyst opinion.
type RatingCategory string

const (
	RatingBuy  RatingCategory = "buy"
	RatingHold RatingCategory = "hold"
	RatingSell RatingCategory = "sell"
)

// AnalystRating is a single analyst opinion with an optional price target.
type AnalystRating struct {
	Category RatingCategory `json:"category"`
	Target   *float64       `json:"target"`
}

// Recommendation holds the provider's rating counts for the latest period.
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

// Ratings expands the counts into individual ratings without targets.
func (r Recommendation) Ratings() []AnalystRating {
	out := make([]AnalystRating, 0, r.StrongBuy+r.Buy+r.Hold+r.Sell+r.StrongSell)
	add := func(n int, c RatingCategory) {
		for i := 0; i < n; i++ {
			out = append(out, AnalystRating{Category: c})
		}
	}
	add(r.StrongBuy+r.Buy, RatingBuy)
	add(r.Hold, RatingHold)
	add(r.Sell+r.StrongSell, RatingSell)
	return out
}

// PriceTarget is the provider's consensus target.
type PriceTarget struct {
	Mean *float64 `json:"mean"`
	High *float64 `json:"high"`
	Low  *float64 `json:"low"`
}

// AnalystSnapshot is everything known about analyst sentiment for one symbol.
type AnalystSnapshot struct {
	Symbol         string          `json:"symbol"`
	Recommendation *Recommendation `json:"recommendation"`
	Ratings        []AnalystRating `json:"ratings,omitempty"`
	Target         *PriceTarget    `json:"price_target"`
	NextEarnings   *string         `json:"next_earnings"`
	Source         string          `json:"source"`
}

// AnalystSummary is the aggregate of a set of ratings.
type AnalystSummary struct {
	Total           *int     `json:"analyst_total"`
	BuyPct          *float64 `json:"buy_pct"`
	HoldPct         *float64 `json:"hold_pct"`
	SellPct         *float64 `json:"sell_pct"`
	AvgTarget       *float64 `json:"avg_target"`
	DistToTargetPct *float64 `json:"dist_to_target_pct"`
}

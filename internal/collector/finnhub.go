package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"time"

	"InvestDash/internal/model"
)

// FinnhubFetcher reads analyst recommendations, price targets and the
// earnings calendar from the Finnhub REST API.
type FinnhubFetcher struct {
	Client  *http.Client
	BaseURL string
	APIKey  string

	now func() time.Time
}

// NewFinnhubFetcher creates a Finnhub client.
func NewFinnhubFetcher(baseURL, apiKey, proxyURL string) *FinnhubFetcher {
	return &FinnhubFetcher{
		Client:  newHTTPClient(proxyURL, 15*time.Second),
		BaseURL: baseURL,
		APIKey:  apiKey,
		now:     time.Now,
	}
}

func (f *FinnhubFetcher) Name() string { return "finnhub" }

type finnhubRecommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

type finnhubPriceTarget struct {
	TargetMean *float64 `json:"targetMean"`
	TargetHigh *float64 `json:"targetHigh"`
	TargetLow  *float64 `json:"targetLow"`
}

type finnhubEarnings struct {
	EarningsCalendar []struct {
		Date   string `json:"date"`
		Symbol string `json:"symbol"`
	} `json:"earningsCalendar"`
}

func (f *FinnhubFetcher) endpoint(path string, params url.Values) string {
	params.Set("token", f.APIKey)
	return f.BaseURL + path + "?" + params.Encode()
}

// FetchAnalyst returns the latest recommendation period. The price target and
// earnings calendar are best effort and left nil when unavailable.
func (f *FinnhubFetcher) FetchAnalyst(ctx context.Context, symbol string) (*model.AnalystSnapshot, error) {
	if f.APIKey == "" {
		return nil, errors.New("finnhub: api key not configured")
	}

	var recs []finnhubRecommendation
	if err := getJSON(ctx, f.Client, "finnhub", f.endpoint("/stock/recommendation", url.Values{"symbol": {symbol}}), &recs); err != nil {
		return nil, err
	}

	snap := &model.AnalystSnapshot{Symbol: symbol, Source: f.Name()}
	if len(recs) > 0 {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Period > recs[j].Period })
		r := recs[0]
		snap.Recommendation = &model.Recommendation{
			Period:     r.Period,
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		}
	}

	var pt finnhubPriceTarget
	if err := getJSON(ctx, f.Client, "finnhub", f.endpoint("/stock/price-target", url.Values{"symbol": {symbol}}), &pt); err == nil {
		if pt.TargetMean != nil || pt.TargetHigh != nil || pt.TargetLow != nil {
			snap.Target = &model.PriceTarget{Mean: pt.TargetMean, High: pt.TargetHigh, Low: pt.TargetLow}
		}
	}

	today := f.now().UTC()
	params := url.Values{
		"symbol": {symbol},
		"from":   {today.Format("2006-01-02")},
		"to":     {today.AddDate(0, 0, 180).Format("2006-01-02")},
	}
	var cal finnhubEarnings
	if err := getJSON(ctx, f.Client, "finnhub", f.endpoint("/calendar/earnings", params), &cal); err == nil {
		snap.NextEarnings = firstFutureDate(cal, today)
	}
	return snap, nil
}

func firstFutureDate(cal finnhubEarnings, today time.Time) *string {
	day := today.Format("2006-01-02")
	var best string
	for _, e := range cal.EarningsCalendar {
		if e.Date < day {
			continue
		}
		if best == "" || e.Date < best {
			best = e.Date
		}
	}
	if best == "" {
		return nil
	}
	return &best
}

package collector

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"InvestDash/internal/model"
)

// YahooFetcher reads the public Yahoo Finance chart and quoteSummary APIs.
// It implements PriceFetcher, FundamentalsFetcher and AnalystFetcher.
type YahooFetcher struct {
	Client    *http.Client
	ChartURL  string
	QuoteURL  string
	SymbolMap map[string]string // maps a tracked symbol to a Yahoo ticker

	now func() time.Time
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, symbolMap map[string]string) *YahooFetcher {
	return &YahooFetcher{
		Client:    newHTTPClient(proxyURL, 30*time.Second),
		ChartURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
		QuoteURL:  "https://query2.finance.yahoo.com/v10/finance/quoteSummary",
		SymbolMap: symbolMap,
		now:       time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}

// quoteBar builds bar i. A null open, high or low is filled from the prices
// the bar does have; a null close drops the bar.
func quoteBar(open, high, low, closes, volume []*float64, i int) (model.OHLCV, bool) {
	c, ok := at(closes, i)
	if !ok || c == 0 {
		return model.OHLCV{}, false
	}
	o, ok := at(open, i)
	if !ok {
		o = c
	}
	h, ok := at(high, i)
	if !ok {
		h = math.Max(o, c)
	}
	l, ok := at(low, i)
	if !ok {
		l = math.Min(o, c)
	}
	v, ok := at(volume, i)
	return model.OHLCV{Open: o, High: h, Low: l, Close: c, Volume: v, NoVolume: !ok}, true
}

// chartRange picks the smallest Yahoo range covering the requested sessions.
func chartRange(days int) string {
	switch {
	case days <= 20:
		return "1mo"
	case days <= 60:
		return "3mo"
	case days <= 120:
		return "6mo"
	case days <= 250:
		return "1y"
	case days <= 500:
		return "2y"
	default:
		return "5y"
	}
}

// FetchDailyBars returns up to days daily bars in ascending order.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	u := fmt.Sprintf("%s/%s?interval=1d&range=%s", f.ChartURL, url.PathEscape(f.yahooSymbol(symbol)), chartRange(days))

	var chart yahooChart
	if err := getJSON(ctx, f.Client, "yahoo", u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar, ok := quoteBar(quote.Open, quote.High, quote.Low, quote.Close, quote.Volume, i)
		if !ok {
			continue // null bars on holidays and halts
		}
		bar.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

type yahooValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				MarketCap yahooValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				MarketCap yahooValue `json:"marketCap"`
			} `json:"summaryDetail"`
			FinancialData struct {
				TargetMeanPrice yahooValue `json:"targetMeanPrice"`
				TargetHighPrice yahooValue `json:"targetHighPrice"`
				TargetLowPrice  yahooValue `json:"targetLowPrice"`
				ProfitMargins   yahooValue `json:"profitMargins"`
				RevenueGrowth   yahooValue `json:"revenueGrowth"`
				TotalRevenue    yahooValue `json:"totalRevenue"`
			} `json:"financialData"`
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []yahooValue `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
			RecommendationTrend struct {
				Trend []struct {
					Period     string `json:"period"`
					StrongBuy  int    `json:"strongBuy"`
					Buy        int    `json:"buy"`
					Hold       int    `json:"hold"`
					Sell       int    `json:"sell"`
					StrongSell int    `json:"strongSell"`
				} `json:"trend"`
			} `json:"recommendationTrend"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (f *YahooFetcher) fetchSummary(ctx context.Context, symbol string) (*yahooSummary, error) {
	u := fmt.Sprintf("%s/%s?modules=price,summaryDetail,financialData,calendarEvents,recommendationTrend",
		f.QuoteURL, url.PathEscape(f.yahooSymbol(symbol)))
	var s yahooSummary
	if err := getJSON(ctx, f.Client, "yahoo", u, &s); err != nil {
		return nil, err
	}
	if s.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", s.QuoteSummary.Error.Description)
	}
	if len(s.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no summary for %s", symbol)
	}
	return &s, nil
}

// FetchFundamentals returns market cap, revenue, margins and the next earnings date.
func (f *YahooFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	s, err := f.fetchSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r := s.QuoteSummary.Result[0]
	fd := r.FinancialData

	out := &model.Fundamentals{
		MarketCap:        r.Price.MarketCap.Raw,
		Revenue:          fd.TotalRevenue.Raw,
		ProfitMarginPct:  scaled(fd.ProfitMargins.Raw, 100),
		RevenueGrowthPct: scaled(fd.RevenueGrowth.Raw, 100),
		NextEarnings:     nextEarnings(r.CalendarEvents.Earnings.EarningsDate, f.now()),
	}
	if out.MarketCap == nil {
		out.MarketCap = r.SummaryDetail.MarketCap.Raw
	}
	return out, nil
}

// FetchAnalyst returns the current recommendation trend and price target.
func (f *YahooFetcher) FetchAnalyst(ctx context.Context, symbol string) (*model.AnalystSnapshot, error) {
	s, err := f.fetchSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	r := s.QuoteSummary.Result[0]
	snap := &model.AnalystSnapshot{
		Symbol: symbol,
		Source: f.Name(),
		Target: &model.PriceTarget{
			Mean: r.FinancialData.TargetMeanPrice.Raw,
			High: r.FinancialData.TargetHighPrice.Raw,
			Low:  r.FinancialData.TargetLowPrice.Raw,
		},
		NextEarnings: nextEarnings(r.CalendarEvents.Earnings.EarningsDate, f.now()),
	}
	for _, t := range r.RecommendationTrend.Trend {
		if t.Period == "0m" {
			snap.Recommendation = &model.Recommendation{
				Period:     t.Period,
				StrongBuy:  t.StrongBuy,
				Buy:        t.Buy,
				Hold:       t.Hold,
				Sell:       t.Sell,
				StrongSell: t.StrongSell,
			}
			break
		}
	}
	return snap, nil
}

func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * factor
	return &s
}

// nextEarnings returns the first earnings date that is not in the past.
func nextEarnings(dates []yahooValue, now time.Time) *string {
	today := now.UTC().Truncate(24 * time.Hour)
	var best *time.Time
	for _, d := range dates {
		if d.Raw == nil {
			continue
		}
		t := time.Unix(int64(*d.Raw), 0).UTC()
		if t.Before(today) {
			continue
		}
		if best == nil || t.Before(*best) {
			tt := t
			best = &tt
		}
	}
	if best == nil {
		return nil
	}
	s := best.Format("2006-01-02")
	return &s
}

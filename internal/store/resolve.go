package store

import (
	"regexp"
	"strings"

	"InvestDash/internal/errs"
	"InvestDash/internal/model"
)

var (
	symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-^=]{0,19}$`)
	isinPattern   = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)
	wknPattern    = regexp.MustCompile(`^[A-Z0-9]{6}$`)
)

// etfSuffixes mark listings that are tracked as ETFs unless told otherwise.
var etfSuffixes = []string{".DE", ".L", ".HK", ".SW"}

// DefaultIdentifierMap resolves identifiers that are not exchange symbols.
var DefaultIdentifierMap = map[string]string{
	"IE00BP3QZ825":     "IS3R.DE",
	"IE00BP3QZ825:GBP": "IWFM.L",
	"IE00BP3QZ825:USD": "IWMO.L",
}

// resolution is the outcome of normalizing user input into a symbol.
type resolution struct {
	Symbol string
	ISIN   string
	WKN    string
}

// resolveSymbol trims and upper-cases input, then maps ISIN and WKN codes
// through ids. An ISIN without a mapping is rejected.
func resolveSymbol(op, input string, ids map[string]string) (resolution, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return resolution{}, errs.Invalid(op, "symbol must not be empty")
	}

	if mapped, ok := ids[s]; ok {
		res := resolution{Symbol: strings.ToUpper(mapped)}
		code := strings.SplitN(s, ":", 2)[0]
		switch {
		case isinPattern.MatchString(code):
			res.ISIN = code
		case wknPattern.MatchString(code):
			res.WKN = code
		}
		if !symbolPattern.MatchString(res.Symbol) {
			return resolution{}, errs.Invalid(op, "identifier maps to malformed symbol "+res.Symbol)
		}
		return res, nil
	}

	if isinPattern.MatchString(s) {
		return resolution{}, errs.Invalid(op, "unknown ISIN "+s)
	}
	if !symbolPattern.MatchString(s) {
		return resolution{}, errs.Invalid(op, "malformed symbol "+s)
	}
	return resolution{Symbol: s}, nil
}

// normalizeSymbol is the lookup form of an already tracked symbol.
func normalizeSymbol(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// normalizeBucket trims a bucket name; names are otherwise case-sensitive.
func normalizeBucket(op, name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", errs.Invalid(op, "bucket name must not be empty")
	}
	if len(n) > 64 {
		return "", errs.Invalid(op, "bucket name must be at most 64 characters")
	}
	return n, nil
}

// inferType picks the ticker type from an explicit hint or the listing suffix.
func inferType(op, symbol, hint string) (model.TickerType, error) {
	if h := strings.ToLower(strings.TrimSpace(hint)); h != "" {
		t := model.TickerType(h)
		if !t.Valid() {
			return "", errs.Invalid(op, "type must be equity or etf")
		}
		return t, nil
	}
	for _, suffix := range etfSuffixes {
		if strings.HasSuffix(symbol, suffix) {
			return model.TickerETF, nil
		}
	}
	return model.TickerEquity, nil
}

package resolver

import (
	"regexp"
	"strings"

	"github.com/aristath/folio/internal/catalog"
	"github.com/aristath/folio/internal/domain"
)

// extraction holds everything the regex fallback could pull out of the raw
// command text. It runs even when the external parser succeeds, to patch
// fields the parser missed.
type extraction struct {
	Quantity    *float64 // number right after a buy/sell verb
	Shares      *float64 // explicit share/unit count
	Price       *float64 // per-unit price after "at" / "@"
	Total       *float64 // total after "for"
	Percent     *float64 // digits-with-% or a percent word
	FirstNumber *float64 // first standalone number, for bare cash commands
	Symbol      string   // known position symbol mentioned in the text
	Currency    string   // fiat currency code mentioned in the text
}

var (
	// Trailing '%' is captured so a percentage is not mistaken for a quantity.
	reVerbQty = regexp.MustCompile(`(?i)\b(?:bought|buy|purchased|sold|sell|selling|added|add)\s+\$?([0-9][0-9,.]*[kmb]?)\s*(%?)`)
	reShares  = regexp.MustCompile(`(?i)\b(?:bought|buy|purchased|sold|sell|selling)\s+\$?([0-9][0-9,.]*)\s+(?:shares?|units?|coins?)\b`)
	rePrice   = regexp.MustCompile(`(?i)(?:\bat\b|@)\s*\$?([0-9][0-9,.]*[kmb]?)\b`)
	reTotal   = regexp.MustCompile(`(?i)\bfor\s+\$?([0-9][0-9,.]*[kmb]?)\b`)
	rePercent = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)
	reNumber  = regexp.MustCompile(`\$?\b([0-9][0-9,.]*[kmb]?)\b`)
)

var fiatCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CHF": true, "JPY": true,
	"AUD": true, "CAD": true, "NZD": true, "SEK": true, "NOK": true,
	"DKK": true, "PLN": true, "CZK": true, "HUF": true, "TRY": true,
}

func parseMatch(s string) *float64 {
	v, ok := catalog.ParseNumber(s)
	if !ok {
		return nil
	}
	return &v
}

// extract runs every fallback pattern over the command text.
func extract(text string, positions []domain.Position) extraction {
	var ex extraction

	if m := reShares.FindStringSubmatch(text); m != nil {
		ex.Shares = parseMatch(m[1])
	}
	if m := reVerbQty.FindStringSubmatch(text); m != nil && m[2] != "%" {
		ex.Quantity = parseMatch(m[1])
	}
	if m := rePrice.FindStringSubmatch(text); m != nil {
		ex.Price = parseMatch(m[1])
	}
	if m := reTotal.FindStringSubmatch(text); m != nil {
		ex.Total = parseMatch(m[1])
	}
	if m := rePercent.FindStringSubmatch(text); m != nil {
		ex.Percent = parseMatch(m[1])
	} else {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			if pct, ok := catalog.ParsePercentWord(strings.Trim(word, ".,!?")); ok && pct < 100 {
				ex.Percent = &pct
				break
			}
		}
	}
	if m := reNumber.FindStringSubmatch(text); m != nil {
		ex.FirstNumber = parseMatch(m[1])
	}

	tokens := map[string]bool{}
	for _, w := range strings.Fields(strings.ToUpper(text)) {
		tokens[strings.Trim(w, ".,!?$")] = true
	}
	for _, p := range positions {
		if tokens[strings.ToUpper(p.Symbol)] {
			ex.Symbol = strings.ToUpper(p.Symbol)
			break
		}
	}
	for code := range fiatCodes {
		if tokens[code] {
			ex.Currency = code
			break
		}
	}

	return ex
}

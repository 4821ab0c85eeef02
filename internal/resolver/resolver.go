package resolver

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
)

const epsilon = 1e-9

// Resolve enriches a candidate action into its final, executable form. The
// steps run in a fixed order so that resolving an already-resolved action is
// a no-op: every derived value, the missing-field list and the confidence are
// functions of the final state, never of the path that produced it.
func Resolve(cand domain.CandidateAction, positions []domain.Position, now time.Time) domain.ResolvedAction {
	act := domain.ResolvedAction{
		Intent:            cand.Intent,
		Text:              cand.Text,
		Symbol:            strings.ToUpper(cand.Symbol),
		Name:              cand.Name,
		AssetClass:        cand.AssetClass,
		MatchedPositionID: cand.MatchedPositionID,
		AccountName:       cand.AccountName,
		Currency:          strings.ToUpper(cand.Currency),
		Date:              cand.Date,
		Amount:            copyFloat(cand.Amount),
		PricePerUnit:      copyFloat(cand.PricePerUnit),
		TotalCost:         copyFloat(cand.TotalCost),
		SellAmount:        copyFloat(cand.SellAmount),
		SellPrice:         copyFloat(cand.SellPrice),
		SellPercent:       copyFloat(cand.SellPercent),
		TotalProceeds:     copyFloat(cand.TotalProceeds),
	}

	// 1. Regex extraction patches whatever the upstream parser left empty.
	applyExtraction(&act, extract(act.Text, positions))

	// 2. Dates are normalized to ISO; anything unparseable or in the future
	// collapses to today.
	act.Date = normalizeDate(act.Date, now)

	// 3. Position matching.
	matched := matchPosition(&act, positions)

	// 4. "Sell all" with an explicit quantity below the full holding is
	// really a partial sell.
	if act.Intent == domain.IntentSellAll && matched != nil &&
		act.SellAmount != nil && *act.SellAmount < matched.Amount-epsilon {
		act.Intent = domain.IntentSellPartial
	}

	// 5. Percentages become absolute quantities once a position is known.
	if act.SellPercent != nil && matched != nil && act.SellAmount == nil {
		act.SellAmount = domain.Float(matched.Amount * *act.SellPercent / 100)
	}

	// 6. Algebraic completion: any one of {qty, unit price, total} is
	// derivable from the other two, and the total is always recomputed so
	// the three never disagree.
	deriveBuy(&act)
	deriveSell(&act)

	// 7. A surviving sell_all always sells the entire current holding.
	if act.Intent == domain.IntentSellAll && matched != nil {
		act.SellAmount = domain.Float(matched.Amount)
		if act.SellPrice != nil {
			act.TotalProceeds = domain.Float(*act.SellAmount * *act.SellPrice)
		}
	}

	// 8. Missing fields and confidence are rebuilt from scratch off the
	// final field values.
	act.MissingFields = missingFields(act)
	act.Confidence = confidence(act, matched)

	// 9. Human-readable summary, also purely from the final values.
	act.Summary = summarize(act, matched)

	return act
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func applyExtraction(act *domain.ResolvedAction, ex extraction) {
	if act.Symbol == "" {
		act.Symbol = ex.Symbol
	}
	switch act.Intent {
	case domain.IntentBuy:
		if act.Amount == nil {
			if ex.Shares != nil {
				act.Amount = ex.Shares
			} else {
				act.Amount = ex.Quantity
			}
		}
		if act.PricePerUnit == nil {
			act.PricePerUnit = ex.Price
		}
		if act.TotalCost == nil {
			act.TotalCost = ex.Total
		}
	case domain.IntentSellPartial, domain.IntentSellAll:
		if act.SellAmount == nil {
			if ex.Shares != nil {
				act.SellAmount = ex.Shares
			} else {
				act.SellAmount = ex.Quantity
			}
		}
		if act.SellPrice == nil {
			act.SellPrice = ex.Price
		}
		if act.TotalProceeds == nil {
			act.TotalProceeds = ex.Total
		}
		if act.SellPercent == nil {
			act.SellPercent = ex.Percent
		}
	case domain.IntentSetPrice:
		if act.PricePerUnit == nil {
			if ex.Price != nil {
				act.PricePerUnit = ex.Price
			} else {
				act.PricePerUnit = ex.FirstNumber
			}
		}
	case domain.IntentAddCash, domain.IntentUpdateCash, domain.IntentTransferCash:
		if act.Amount == nil {
			act.Amount = ex.FirstNumber
		}
		if act.Currency == "" {
			act.Currency = ex.Currency
		}
	}
}

func normalizeDate(raw string, now time.Time) string {
	today := now.Format("2006-01-02")
	if raw == "" {
		return today
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return today
	}
	if d.After(now) {
		return today
	}
	return d.Format("2006-01-02")
}

// matchPosition resolves the action against the live portfolio. An explicit
// match from the parser is honored; otherwise a symbol that names exactly one
// non-debt position matches it automatically. Either way the position's name
// and asset class fill any gaps in the action.
func matchPosition(act *domain.ResolvedAction, positions []domain.Position) *domain.Position {
	var matched *domain.Position

	if act.MatchedPositionID != "" {
		for i := range positions {
			if positions[i].ID == act.MatchedPositionID {
				matched = &positions[i]
				break
			}
		}
	}
	if matched == nil && act.Symbol != "" {
		var hits []*domain.Position
		for i := range positions {
			if positions[i].IsDebt {
				continue
			}
			if strings.EqualFold(positions[i].Symbol, act.Symbol) {
				hits = append(hits, &positions[i])
			}
		}
		if len(hits) == 1 {
			matched = hits[0]
		}
	}

	if matched != nil {
		act.MatchedPositionID = matched.ID
		if act.Symbol == "" {
			act.Symbol = strings.ToUpper(matched.Symbol)
		}
		if act.Name == "" {
			act.Name = matched.Name
		}
		if act.AssetClass == "" {
			act.AssetClass = matched.AssetClass
		}
	}
	return matched
}

func deriveBuy(act *domain.ResolvedAction) {
	if act.Intent != domain.IntentBuy {
		return
	}
	if act.TotalCost != nil {
		if act.PricePerUnit == nil && act.Amount != nil && math.Abs(*act.Amount) > epsilon {
			act.PricePerUnit = domain.Float(*act.TotalCost / *act.Amount)
		}
		if act.Amount == nil && act.PricePerUnit != nil && math.Abs(*act.PricePerUnit) > epsilon {
			act.Amount = domain.Float(*act.TotalCost / *act.PricePerUnit)
		}
	}
	if act.Amount != nil && act.PricePerUnit != nil {
		act.TotalCost = domain.Float(*act.Amount * *act.PricePerUnit)
	}
}

func deriveSell(act *domain.ResolvedAction) {
	if !act.Intent.IsSell() {
		return
	}
	if act.TotalProceeds != nil {
		if act.SellPrice == nil && act.SellAmount != nil && math.Abs(*act.SellAmount) > epsilon {
			act.SellPrice = domain.Float(*act.TotalProceeds / *act.SellAmount)
		}
		if act.SellAmount == nil && act.SellPrice != nil && math.Abs(*act.SellPrice) > epsilon {
			act.SellAmount = domain.Float(*act.TotalProceeds / *act.SellPrice)
		}
	}
	if act.SellAmount != nil && act.SellPrice != nil {
		act.TotalProceeds = domain.Float(*act.SellAmount * *act.SellPrice)
	}
}

func missingFields(act domain.ResolvedAction) []string {
	missing := []string{}
	switch act.Intent {
	case domain.IntentBuy:
		if act.Symbol == "" {
			missing = append(missing, "symbol")
		}
		if act.Amount == nil {
			missing = append(missing, "amount")
		}
		if act.PricePerUnit == nil {
			missing = append(missing, "pricePerUnit")
		}
	case domain.IntentSellPartial:
		if act.MatchedPositionID == "" {
			missing = append(missing, "matchedPositionId")
		}
		if act.SellAmount == nil {
			missing = append(missing, "sellAmount")
		}
		if act.SellPrice == nil {
			missing = append(missing, "sellPrice")
		}
	case domain.IntentSellAll:
		if act.MatchedPositionID == "" {
			missing = append(missing, "matchedPositionId")
		}
		if act.SellPrice == nil {
			missing = append(missing, "sellPrice")
		}
	case domain.IntentSetPrice:
		if act.Symbol == "" {
			missing = append(missing, "symbol")
		}
		if act.PricePerUnit == nil {
			missing = append(missing, "pricePerUnit")
		}
	case domain.IntentRemovePosition, domain.IntentUpdatePosition:
		if act.MatchedPositionID == "" && act.Symbol == "" {
			missing = append(missing, "symbol")
		}
	case domain.IntentAddCash, domain.IntentUpdateCash, domain.IntentTransferCash:
		if act.Amount == nil {
			missing = append(missing, "amount")
		}
		if act.Currency == "" {
			missing = append(missing, "currency")
		}
	}
	return missing
}

func confidence(act domain.ResolvedAction, matched *domain.Position) float64 {
	c := 0.95
	c -= 0.15 * float64(len(act.MissingFields))
	if act.Intent.IsSell() && matched == nil {
		c -= 0.10
	}
	if c < 0.05 {
		c = 0.05
	}
	return math.Round(c*100) / 100
}

func summarize(act domain.ResolvedAction, matched *domain.Position) string {
	label := act.Symbol
	if label == "" {
		label = act.Name
	}
	switch act.Intent {
	case domain.IntentBuy:
		switch {
		case act.Amount != nil && act.PricePerUnit != nil:
			return fmt.Sprintf("Buy %s %s at %s (total %s)", num(*act.Amount), label, num(*act.PricePerUnit), num(*act.TotalCost))
		case act.Amount != nil:
			return fmt.Sprintf("Buy %s %s", num(*act.Amount), label)
		default:
			return fmt.Sprintf("Buy %s", label)
		}
	case domain.IntentSellPartial:
		if act.SellAmount != nil {
			s := fmt.Sprintf("Sell %s %s", num(*act.SellAmount), label)
			if matched != nil && matched.Amount > epsilon {
				s += fmt.Sprintf(" (%s%% of position)", num(*act.SellAmount/matched.Amount*100))
			}
			if act.SellPrice != nil {
				s += fmt.Sprintf(" at %s", num(*act.SellPrice))
			}
			return s
		}
		return fmt.Sprintf("Sell part of %s", label)
	case domain.IntentSellAll:
		if act.SellAmount != nil {
			s := fmt.Sprintf("Sell all %s %s", num(*act.SellAmount), label)
			if act.SellPrice != nil {
				s += fmt.Sprintf(" at %s", num(*act.SellPrice))
			}
			return s
		}
		return fmt.Sprintf("Sell all of %s", label)
	case domain.IntentUpdatePosition:
		return fmt.Sprintf("Update %s", label)
	case domain.IntentRemovePosition:
		return fmt.Sprintf("Remove %s", label)
	case domain.IntentSetPrice:
		if act.PricePerUnit != nil {
			return fmt.Sprintf("Set %s price to %s", label, num(*act.PricePerUnit))
		}
		return fmt.Sprintf("Set price for %s", label)
	case domain.IntentAddCash:
		return cashSummary("Add", act)
	case domain.IntentUpdateCash:
		return cashSummary("Update", act)
	case domain.IntentTransferCash:
		return cashSummary("Transfer", act)
	}
	return act.Text
}

func cashSummary(verb string, act domain.ResolvedAction) string {
	cur := act.Currency
	if cur == "" {
		cur = "cash"
	}
	s := verb
	if act.Amount != nil {
		s += " " + num(*act.Amount)
	}
	s += " " + cur
	if act.AccountName != "" {
		if act.Intent == domain.IntentTransferCash {
			s += " to " + act.AccountName
		} else {
			s += " in " + act.AccountName
		}
	}
	return s
}

// num formats a float without trailing zeros.
func num(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

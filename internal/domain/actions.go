package domain

// Intent enumerates the finite set of mutation kinds a free-text command
// can resolve to.
type Intent string

const (
	IntentBuy            Intent = "buy"
	IntentSellPartial    Intent = "sell_partial"
	IntentSellAll        Intent = "sell_all"
	IntentUpdatePosition Intent = "update_position"
	IntentRemovePosition Intent = "remove_position"
	IntentAddCash        Intent = "add_cash"
	IntentUpdateCash     Intent = "update_cash"
	IntentTransferCash   Intent = "transfer_cash"
	IntentSetPrice       Intent = "set_price"
)

// AllIntents lists every intent in menu order. Menu item IDs are the intent
// strings themselves, so they are unique and stable across calls.
var AllIntents = []Intent{
	IntentBuy,
	IntentSellPartial,
	IntentSellAll,
	IntentUpdatePosition,
	IntentRemovePosition,
	IntentAddCash,
	IntentUpdateCash,
	IntentTransferCash,
	IntentSetPrice,
}

// IsSell reports whether the intent reduces a held position.
func (i Intent) IsSell() bool {
	return i == IntentSellPartial || i == IntentSellAll
}

// CandidateAction is the untrusted, possibly-incomplete output of the
// external parser, decoded into a closed set of typed fields. Pointer
// fields distinguish "absent" from zero. Never applied directly.
type CandidateAction struct {
	Intent            Intent
	Text              string
	Symbol            string
	Name              string
	AssetClass        string
	MatchedPositionID string
	AccountName       string
	Currency          string
	Date              string
	Amount            *float64
	PricePerUnit      *float64
	TotalCost         *float64
	SellAmount        *float64
	SellPrice         *float64
	SellPercent       *float64
	TotalProceeds     *float64
	Confidence        float64
}

// ResolvedAction is the fully-derived, matched, confidence-scored mutation
// preview. Lifecycle: created per user command, discarded on cancel,
// consumed exactly once on confirm.
type ResolvedAction struct {
	Intent            Intent   `json:"intent"`
	Text              string   `json:"text,omitempty"`
	Symbol            string   `json:"symbol,omitempty"`
	Name              string   `json:"name,omitempty"`
	AssetClass        string   `json:"assetClass,omitempty"`
	MatchedPositionID string   `json:"matchedPositionId,omitempty"`
	AccountName       string   `json:"accountName,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	Date              string   `json:"date"`
	Amount            *float64 `json:"amount,omitempty"`
	PricePerUnit      *float64 `json:"pricePerUnit,omitempty"`
	TotalCost         *float64 `json:"totalCost,omitempty"`
	SellAmount        *float64 `json:"sellAmount,omitempty"`
	SellPrice         *float64 `json:"sellPrice,omitempty"`
	SellPercent       *float64 `json:"sellPercent,omitempty"`
	TotalProceeds     *float64 `json:"totalProceeds,omitempty"`
	MissingFields     []string `json:"missingFields"`
	Confidence        float64  `json:"confidence"`
	Summary           string   `json:"summary"`
}

// Candidate converts a resolved action back into candidate form, used to
// verify resolver idempotence and to re-run resolution after user edits.
func (r ResolvedAction) Candidate(text string) CandidateAction {
	return CandidateAction{
		Intent:            r.Intent,
		Text:              text,
		Symbol:            r.Symbol,
		Name:              r.Name,
		AssetClass:        r.AssetClass,
		MatchedPositionID: r.MatchedPositionID,
		AccountName:       r.AccountName,
		Currency:          r.Currency,
		Date:              r.Date,
		Amount:            copyFloat(r.Amount),
		PricePerUnit:      copyFloat(r.PricePerUnit),
		TotalCost:         copyFloat(r.TotalCost),
		SellAmount:        copyFloat(r.SellAmount),
		SellPrice:         copyFloat(r.SellPrice),
		SellPercent:       copyFloat(r.SellPercent),
		TotalProceeds:     copyFloat(r.TotalProceeds),
		Confidence:        r.Confidence,
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for literal optional fields.
func Float(v float64) *float64 { return &v }

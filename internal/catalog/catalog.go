// Package catalog enumerates the mutation intents a free-text command can
// resolve to and derives, per command, the constrained menu, prompt, and
// JSON schema handed to the external parser.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/folio/internal/domain"
	"google.golang.org/genai"
)

// Field describes one intent parameter exposed to the parser.
type Field struct {
	Name        string
	Required    bool
	Description string
}

// MenuItem is one selectable intent. ID equals the intent string, so item
// IDs are unique and stable across calls for the same logical intent.
type MenuItem struct {
	ID     string
	Intent domain.Intent
	Label  string
	Fields []Field
}

// RawCandidate is the untrusted parser output: a menu item id plus a
// string-valued field map.
type RawCandidate struct {
	Tool string            `json:"tool"`
	Args map[string]string `json:"args"`
}

var menuItems = []MenuItem{
	{
		ID: string(domain.IntentBuy), Intent: domain.IntentBuy,
		Label: "Buy or add an asset position",
		Fields: []Field{
			{Name: "symbol", Required: true, Description: "asset ticker or coin symbol"},
			{Name: "amount", Description: "quantity bought"},
			{Name: "pricePerUnit", Description: "price paid per unit"},
			{Name: "totalCost", Description: "total amount spent"},
			{Name: "accountName", Description: "account the asset was bought in"},
			{Name: "date", Description: "trade date, ISO-8601"},
		},
	},
	{
		ID: string(domain.IntentSellPartial), Intent: domain.IntentSellPartial,
		Label: "Sell part of a position",
		Fields: []Field{
			{Name: "symbol", Required: true, Description: "asset ticker or coin symbol"},
			{Name: "sellAmount", Description: "quantity sold"},
			{Name: "sellPercent", Description: "percent of the position sold, 0-100"},
			{Name: "sellPrice", Description: "sale price per unit"},
			{Name: "totalProceeds", Description: "total received"},
			{Name: "date", Description: "trade date, ISO-8601"},
		},
	},
	{
		ID: string(domain.IntentSellAll), Intent: domain.IntentSellAll,
		Label: "Sell an entire position",
		Fields: []Field{
			{Name: "symbol", Required: true, Description: "asset ticker or coin symbol"},
			{Name: "sellPrice", Description: "sale price per unit"},
			{Name: "date", Description: "trade date, ISO-8601"},
		},
	},
	{
		ID: string(domain.IntentUpdatePosition), Intent: domain.IntentUpdatePosition,
		Label: "Update a position's quantity or cost basis",
		Fields: []Field{
			{Name: "symbol", Required: true, Description: "asset ticker or coin symbol"},
			{Name: "amount", Description: "new quantity"},
			{Name: "totalCost", Description: "new total cost basis"},
		},
	},
	{
		ID: string(domain.IntentRemovePosition), Intent: domain.IntentRemovePosition,
		Label: "Remove a position without recording a sale",
		Fields: []Field{
			{Name: "symbol", Required: true, Description: "asset ticker or coin symbol"},
		},
	},
	{
		ID: string(domain.IntentAddCash), Intent: domain.IntentAddCash,
		Label: "Add a cash balance",
		Fields: []Field{
			{Name: "amount", Required: true, Description: "cash amount"},
			{Name: "currency", Required: true, Description: "fiat currency code, e.g. EUR"},
			{Name: "accountName", Description: "account holding the cash"},
		},
	},
	{
		ID: string(domain.IntentUpdateCash), Intent: domain.IntentUpdateCash,
		Label: "Set a cash balance to a new value",
		Fields: []Field{
			{Name: "amount", Required: true, Description: "new cash amount"},
			{Name: "currency", Required: true, Description: "fiat currency code"},
			{Name: "accountName", Description: "account holding the cash"},
		},
	},
	{
		ID: string(domain.IntentTransferCash), Intent: domain.IntentTransferCash,
		Label: "Move cash to another account",
		Fields: []Field{
			{Name: "amount", Required: true, Description: "cash amount moved"},
			{Name: "currency", Required: true, Description: "fiat currency code"},
			{Name: "accountName", Required: true, Description: "destination account"},
			{Name: "date", Description: "transfer date, ISO-8601"},
		},
	},
	{
		ID: string(domain.IntentSetPrice), Intent: domain.IntentSetPrice,
		Label: "Pin a manual price for an asset",
		Fields: []Field{
			{Name: "symbol", Required: true, Description: "asset ticker or coin symbol"},
			{Name: "pricePerUnit", Required: true, Description: "price per unit"},
		},
	},
}

// FullMenu returns every menu item.
func FullMenu() []MenuItem {
	out := make([]MenuItem, len(menuItems))
	copy(out, menuItems)
	return out
}

var positionIntents = map[domain.Intent]bool{
	domain.IntentBuy:            true,
	domain.IntentSellPartial:    true,
	domain.IntentSellAll:        true,
	domain.IntentUpdatePosition: true,
	domain.IntentRemovePosition: true,
	domain.IntentSetPrice:       true,
}

var cashIntents = map[domain.Intent]bool{
	domain.IntentAddCash:      true,
	domain.IntentUpdateCash:   true,
	domain.IntentTransferCash: true,
	domain.IntentBuy:          true, // "bought X on Kraken" mentions an account too
}

// Menu returns the candidate intents for a command, filtered down by what
// the text actually mentions so the parser has fewer ways to go wrong.
// A command matching zero positions and zero accounts gets the full
// unfiltered menu: graceful degradation, not an error.
func Menu(text string, positions []domain.Position, accounts []domain.Account) []MenuItem {
	words := tokenize(text)

	positionHit := false
	for _, p := range positions {
		if words[strings.ToLower(p.Symbol)] || (p.Name != "" && containsName(text, p.Name)) {
			positionHit = true
			break
		}
	}
	accountHit := false
	for _, a := range accounts {
		if a.Name != "" && containsName(text, a.Name) {
			accountHit = true
			break
		}
	}

	if !positionHit && !accountHit {
		return FullMenu()
	}

	var out []MenuItem
	for _, item := range menuItems {
		if positionHit && positionIntents[item.Intent] {
			out = append(out, item)
			continue
		}
		if accountHit && cashIntents[item.Intent] {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return FullMenu()
	}
	return out
}

func tokenize(text string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.')
	}) {
		out[strings.Trim(w, ".")] = true
	}
	return out
}

func containsName(text, name string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(name))
}

// Prompt renders the menu and the micro-grammar rules for the external
// parser. The parser returns JSON only; all derivation happens locally.
func Prompt(items []MenuItem, text string) string {
	var b strings.Builder
	b.WriteString("You translate a portfolio command into exactly one tool call.\n")
	b.WriteString("Pick the single best matching tool and fill in only the fields the command states.\n")
	b.WriteString("Leave unknown fields out entirely. Do not guess numbers.\n\n")
	b.WriteString("Number shorthand: '50k' means 50000, '1.5m' means 1500000, '1b' means 1000000000.\n")
	b.WriteString("Percent words: 'half' means 50, 'third' means 33.33, 'quarter' means 25.\n")
	b.WriteString("A fiat amount moving to a named account ('5000 EUR to Revolut') is a cash operation,\n")
	b.WriteString("not a buy of that currency. Buying an asset always names a non-fiat symbol.\n\n")
	b.WriteString("Tools:\n")
	for _, item := range items {
		var req, opt []string
		for _, f := range item.Fields {
			spec := fmt.Sprintf("%s (%s)", f.Name, f.Description)
			if f.Required {
				req = append(req, spec)
			} else {
				opt = append(opt, spec)
			}
		}
		fmt.Fprintf(&b, "- %s: %s\n", item.ID, item.Label)
		if len(req) > 0 {
			fmt.Fprintf(&b, "    required: %s\n", strings.Join(req, ", "))
		}
		if len(opt) > 0 {
			fmt.Fprintf(&b, "    optional: %s\n", strings.Join(opt, ", "))
		}
	}
	fmt.Fprintf(&b, "\nCommand: %q\n", text)
	return b.String()
}

// Schema returns the genai schema constraining the parser's output to one
// of the menu's intent identifiers plus a string-valued field map.
func Schema(items []MenuItem) *genai.Schema {
	ids := make([]string, 0, len(items))
	argProps := map[string]*genai.Schema{}
	for _, item := range items {
		ids = append(ids, item.ID)
		for _, f := range item.Fields {
			if _, ok := argProps[f.Name]; !ok {
				argProps[f.Name] = &genai.Schema{
					Type:        genai.TypeString,
					Description: f.Description,
				}
			}
		}
	}

	// Stable property order for prompt caching.
	names := make([]string, 0, len(argProps))
	for n := range argProps {
		names = append(names, n)
	}
	sort.Strings(names)

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"tool": {
				Type:        genai.TypeString,
				Enum:        ids,
				Description: "the selected tool id",
			},
			"args": {
				Type:             genai.TypeObject,
				Properties:       argProps,
				Description:      "field values as strings, omitting anything not stated",
				PropertyOrdering: names,
			},
		},
		Required:         []string{"tool"},
		PropertyOrdering: []string{"tool", "args"},
	}
}

// Decode converts untrusted parser output into a typed candidate. Unknown
// tools fall back to update_position with nothing filled in; malformed
// numbers are dropped rather than guessed.
func Decode(raw RawCandidate, text string) domain.CandidateAction {
	cand := domain.CandidateAction{
		Intent: domain.Intent(raw.Tool),
		Text:   text,
	}
	known := false
	for _, item := range menuItems {
		if item.ID == raw.Tool {
			known = true
			break
		}
	}
	if !known {
		cand.Intent = domain.IntentUpdatePosition
	}

	get := func(key string) string { return strings.TrimSpace(raw.Args[key]) }
	num := func(key string) *float64 {
		v, ok := ParseNumber(get(key))
		if !ok {
			return nil
		}
		return &v
	}

	cand.Symbol = strings.ToUpper(get("symbol"))
	cand.AccountName = get("accountName")
	cand.Currency = strings.ToUpper(get("currency"))
	cand.Date = get("date")
	cand.MatchedPositionID = get("matchedPositionId")
	cand.Amount = num("amount")
	cand.PricePerUnit = num("pricePerUnit")
	cand.TotalCost = num("totalCost")
	cand.SellAmount = num("sellAmount")
	cand.SellPrice = num("sellPrice")
	cand.SellPercent = num("sellPercent")
	cand.TotalProceeds = num("totalProceeds")
	if pct, ok := ParsePercentWord(get("sellPercent")); ok && cand.SellPercent == nil {
		cand.SellPercent = &pct
	}
	return cand
}

package catalog

import (
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPositions() []domain.Position {
	return []domain.Position{
		{ID: "p1", Symbol: "GOOG", Name: "Alphabet"},
		{ID: "p2", Symbol: "BTC", Name: "Bitcoin"},
	}
}

func testAccounts() []domain.Account {
	return []domain.Account{
		{ID: "a1", Name: "Revolut"},
		{ID: "a2", Name: "Kraken"},
	}
}

func TestMenuIDsAreStable(t *testing.T) {
	first := FullMenu()
	second := FullMenu()
	require.Equal(t, len(first), len(second))

	seen := map[string]bool{}
	for i, item := range first {
		assert.Equal(t, item.ID, second[i].ID)
		assert.Equal(t, string(item.Intent), item.ID, "menu id equals the intent string")
		assert.False(t, seen[item.ID], "menu ids are unique")
		seen[item.ID] = true
	}
}

func TestMenuFiltersToPositionIntents(t *testing.T) {
	items := Menu("sold half of my GOOG at 195", testPositions(), testAccounts())
	require.NotEmpty(t, items)
	for _, item := range items {
		assert.True(t, positionIntents[item.Intent], "unexpected intent %s", item.Intent)
	}
	ids := map[string]bool{}
	for _, item := range items {
		ids[item.ID] = true
	}
	assert.True(t, ids["sell_partial"])
	assert.True(t, ids["sell_all"])
}

func TestMenuFiltersToCashIntents(t *testing.T) {
	items := Menu("5000 EUR to Revolut", testPositions(), testAccounts())
	require.NotEmpty(t, items)
	ids := map[string]bool{}
	for _, item := range items {
		ids[item.ID] = true
	}
	assert.True(t, ids["transfer_cash"])
	assert.True(t, ids["add_cash"])
	assert.False(t, ids["sell_all"], "position intents filtered out when only an account matched")
}

func TestMenuFallsBackToFullMenu(t *testing.T) {
	items := Menu("do something unclear", testPositions(), testAccounts())
	assert.Len(t, items, len(FullMenu()))
}

func TestMenuWithNoState(t *testing.T) {
	items := Menu("sold GOOG", nil, nil)
	assert.Len(t, items, len(FullMenu()))
}

func TestSchemaConstrainsTools(t *testing.T) {
	items := Menu("sold GOOG at 195", testPositions(), nil)
	schema := Schema(items)

	require.NotNil(t, schema.Properties["tool"])
	assert.Len(t, schema.Properties["tool"].Enum, len(items))
	require.NotNil(t, schema.Properties["args"])
	assert.Contains(t, schema.Properties["args"].Properties, "sellPrice")
	assert.Contains(t, schema.Properties["args"].Properties, "symbol")
}

func TestPromptMentionsMicroGrammar(t *testing.T) {
	p := Prompt(FullMenu(), "sold 50k of BTC")
	assert.Contains(t, p, "50k")
	assert.Contains(t, p, "half")
	assert.Contains(t, p, "sell_partial")
	assert.Contains(t, p, `"sold 50k of BTC"`)
}

func TestDecode(t *testing.T) {
	raw := RawCandidate{
		Tool: "buy",
		Args: map[string]string{
			"symbol":    "goog",
			"amount":    "10",
			"totalCost": "1.85k",
		},
	}
	cand := Decode(raw, "bought 10 goog for 1.85k")
	assert.Equal(t, domain.IntentBuy, cand.Intent)
	assert.Equal(t, "GOOG", cand.Symbol)
	require.NotNil(t, cand.Amount)
	assert.Equal(t, 10.0, *cand.Amount)
	require.NotNil(t, cand.TotalCost)
	assert.Equal(t, 1850.0, *cand.TotalCost)
	assert.Nil(t, cand.PricePerUnit)
}

func TestDecodeUnknownTool(t *testing.T) {
	cand := Decode(RawCandidate{Tool: "launch_missiles"}, "whatever")
	assert.Equal(t, domain.IntentUpdatePosition, cand.Intent)
}

func TestDecodePercentWord(t *testing.T) {
	raw := RawCandidate{Tool: "sell_partial", Args: map[string]string{
		"symbol":      "BTC",
		"sellPercent": "half",
	}}
	cand := Decode(raw, "sold half my btc")
	require.NotNil(t, cand.SellPercent)
	assert.Equal(t, 50.0, *cand.SellPercent)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"50k", 50000, true},
		{"1.5m", 1500000, true},
		{"1b", 1e9, true},
		{"1,850", 1850, true},
		{"$195", 195, true},
		{"195.5", 195.5, true},
		{"", 0, false},
		{"ten", 0, false},
		{"k", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestParsePercentWord(t *testing.T) {
	v, ok := ParsePercentWord("half")
	require.True(t, ok)
	assert.Equal(t, 50.0, v)

	v, ok = ParsePercentWord("Third")
	require.True(t, ok)
	assert.InDelta(t, 33.33, v, 1e-9)

	_, ok = ParsePercentWord("most")
	assert.False(t, ok)
}

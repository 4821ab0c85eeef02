package command

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/catalog"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/store"
)

// stubParser returns a canned answer, or an error, and records the prompt.
type stubParser struct {
	raw    catalog.RawCandidate
	err    error
	prompt string
	tools  []string
}

func (p *stubParser) Parse(_ context.Context, prompt string, schema *genai.Schema) (catalog.RawCandidate, error) {
	p.prompt = prompt
	if schema != nil {
		if props, ok := schema.Properties["tool"]; ok {
			p.tools = props.Enum
		}
	}
	if p.err != nil {
		return catalog.RawCandidate{}, p.err
	}
	return p.raw, nil
}

func newTestService(t *testing.T, parser Parser) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	_, err = st.Update(func(data *domain.PortfolioData) (interface{}, error) {
		data.Positions = append(data.Positions,
			domain.Position{ID: "pos-goog", Symbol: "GOOG", Name: "Alphabet", AssetClass: "equity", Amount: 100},
		)
		data.Accounts = append(data.Accounts, domain.Account{ID: "acc-1", Name: "Revolut"})
		return nil, nil
	})
	require.NoError(t, err)

	return NewService(st, parser, nil, zerolog.Nop())
}

func TestResolveWithParser(t *testing.T) {
	parser := &stubParser{raw: catalog.RawCandidate{
		Tool: "sell_partial",
		Args: map[string]string{"symbol": "GOOG", "sellPercent": "half"},
	}}
	s := newTestService(t, parser)

	res, err := s.Resolve(context.Background(), "sold half of my GOOG at 195")
	require.NoError(t, err)

	assert.Equal(t, "sell_partial", res.Tool)
	assert.Equal(t, "pos-goog", res.Action.MatchedPositionID)
	require.NotNil(t, res.Action.SellAmount)
	assert.InDelta(t, 50, *res.Action.SellAmount, 1e-6)
	require.NotNil(t, res.Action.SellPrice)
	assert.InDelta(t, 195, *res.Action.SellPrice, 1e-6)
	assert.Equal(t, res.Action.Confidence, res.Confidence)

	// The parser saw the filtered menu and the raw command.
	assert.Contains(t, parser.prompt, "sold half of my GOOG at 195")
	assert.Contains(t, parser.tools, "sell_partial")
	assert.NotContains(t, parser.tools, "transfer_cash", "cash tools are filtered out for position commands")
}

func TestResolveParserFailureIsUpstream(t *testing.T) {
	parser := &stubParser{err: apperr.Upstreamf(errors.New("timeout"), "gemini request failed")}
	s := newTestService(t, parser)

	_, err := s.Resolve(context.Background(), "sell GOOG")
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
}

func TestResolveWithoutParserFallsBackToKeywords(t *testing.T) {
	s := newTestService(t, nil)

	res, err := s.Resolve(context.Background(), "bought 10 GOOG at 185")
	require.NoError(t, err)

	assert.Equal(t, "buy", res.Tool)
	assert.Equal(t, "GOOG", res.Action.Symbol)
	require.NotNil(t, res.Action.TotalCost)
	assert.InDelta(t, 1850, *res.Action.TotalCost, 1e-6)
}

func TestResolveEmptyTextRejected(t *testing.T) {
	s := newTestService(t, nil)

	_, err := s.Resolve(context.Background(), "   ")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestGuessIntent(t *testing.T) {
	cases := map[string]domain.Intent{
		"sell everything in GOOG":  domain.IntentSellAll,
		"sold 10 GOOG":             domain.IntentSellPartial,
		"moved 5k EUR to Revolut":  domain.IntentTransferCash,
		"GOOG is at 195 now":       domain.IntentSetPrice,
		"remove the GOOG position": domain.IntentRemovePosition,
		"bought 10 GOOG":           domain.IntentBuy,
		"got my salary today":      domain.IntentAddCash,
		"correct my GOOG holding":  domain.IntentUpdatePosition,
	}
	for text, want := range cases {
		assert.Equal(t, want, guessIntent(text), text)
	}
}

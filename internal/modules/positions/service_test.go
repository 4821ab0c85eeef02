package positions

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return NewService(st, zerolog.Nop())
}

func seed(t *testing.T, s *Service, positions ...domain.Position) {
	t.Helper()
	_, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		data.Positions = append(data.Positions, positions...)
		return nil, nil
	})
	require.NoError(t, err)
}

func TestAddPosition(t *testing.T) {
	s := newTestService(t)

	pos, err := s.Add(AddRequest{Symbol: "goog", Name: "Alphabet", Type: "stock", Amount: 10, CostBasis: domain.Float(1850)})
	require.NoError(t, err)

	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, "GOOG", pos.Symbol)
	assert.Equal(t, "equity", pos.AssetClass)

	txs, err := s.Transactions()
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionBuy, txs[0].Type)
	assert.InDelta(t, 185, txs[0].Price, 1e-6)
}

func TestAddPositionValidation(t *testing.T) {
	s := newTestService(t)

	_, err := s.Add(AddRequest{Symbol: "", Amount: 1})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = s.Add(AddRequest{Symbol: "X", Amount: 0})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestAddNegativeAmountBecomesDebt(t *testing.T) {
	s := newTestService(t)

	pos, err := s.Add(AddRequest{Symbol: "LOAN", Type: "loan", Amount: -5000})
	require.NoError(t, err)

	assert.True(t, pos.IsDebt)
	assert.InDelta(t, 5000, pos.Amount, 1e-6)
}

func TestUpdateScopedToID(t *testing.T) {
	s := newTestService(t)
	seed(t, s,
		domain.Position{ID: "a", Symbol: "GOOG", Amount: 10},
		domain.Position{ID: "b", Symbol: "GOOG", Amount: 20},
	)

	_, err := s.Update("a", UpdateRequest{Amount: domain.Float(15)})
	require.NoError(t, err)

	list, err := s.List()
	require.NoError(t, err)
	byID := map[string]domain.Position{}
	for _, p := range list {
		byID[p.ID] = p
	}
	assert.InDelta(t, 15, byID["a"].Amount, 1e-6)
	assert.InDelta(t, 20, byID["b"].Amount, 1e-6, "sibling with the same symbol must be untouched")
}

func TestUpdateMissing(t *testing.T) {
	s := newTestService(t)
	_, err := s.Update("nope", UpdateRequest{})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestDeletePosition(t *testing.T) {
	s := newTestService(t)
	seed(t, s, domain.Position{ID: "a", Symbol: "GOOG", Amount: 10})

	require.NoError(t, s.Delete("a"))

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, apperr.NotFound, apperr.KindOf(s.Delete("a")))
}

func TestSellPartialKeepsCostBasisProportional(t *testing.T) {
	s := newTestService(t)
	seed(t, s, domain.Position{ID: "a", Symbol: "GOOG", Amount: 100, CostBasis: domain.Float(1000)})

	res, err := s.Sell("a", SellRequest{Amount: domain.Float(40), Price: domain.Float(15)})
	require.NoError(t, err)

	assert.False(t, res.Removed)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 60, res.Position.Amount, 1e-6)
	require.NotNil(t, res.Position.CostBasis)
	assert.InDelta(t, 600, *res.Position.CostBasis, 1e-6)
	require.NotNil(t, res.Proceeds)
	assert.InDelta(t, 600, *res.Proceeds, 1e-6)
}

func TestSellByPercent(t *testing.T) {
	s := newTestService(t)
	seed(t, s, domain.Position{ID: "a", Symbol: "GOOG", Amount: 100, CostBasis: domain.Float(1000)})

	res, err := s.Sell("a", SellRequest{Percent: domain.Float(40), Price: domain.Float(15)})
	require.NoError(t, err)

	assert.False(t, res.Removed)
	assert.InDelta(t, 40, res.Sold, 1e-6)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 60, res.Position.Amount, 1e-6)
	require.NotNil(t, res.Proceeds)
	assert.InDelta(t, 600, *res.Proceeds, 1e-6)

	// 100% behaves like selling all.
	res, err = s.Sell("a", SellRequest{Percent: domain.Float(100)})
	require.NoError(t, err)
	assert.True(t, res.Removed)

	seed(t, s, domain.Position{ID: "b", Symbol: "BTC", Amount: 2})
	for _, pct := range []float64{0, -5, 100.5} {
		_, err := s.Sell("b", SellRequest{Percent: domain.Float(pct)})
		assert.Equal(t, apperr.Validation, apperr.KindOf(err), "percent %g", pct)
	}
}

func TestSellAllRemovesPosition(t *testing.T) {
	s := newTestService(t)
	seed(t, s, domain.Position{ID: "a", Symbol: "GOOG", Amount: 100})

	res, err := s.Sell("a", SellRequest{All: true, Price: domain.Float(195)})
	require.NoError(t, err)

	assert.True(t, res.Removed)
	assert.Nil(t, res.Position)
	assert.InDelta(t, 100, res.Sold, 1e-6)

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	txs, err := s.Transactions()
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionSell, txs[0].Type)
	assert.InDelta(t, 19500, txs[0].TotalValue, 1e-6)
}

func TestSellValidation(t *testing.T) {
	s := newTestService(t)
	seed(t, s,
		domain.Position{ID: "a", Symbol: "GOOG", Amount: 10},
		domain.Position{ID: "d", Symbol: "LOAN", Amount: 100, IsDebt: true},
	)

	_, err := s.Sell("a", SellRequest{Amount: domain.Float(11)})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "overselling")

	_, err = s.Sell("a", SellRequest{})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "no amount and not all")

	_, err = s.Sell("d", SellRequest{All: true})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "debt is not sellable")

	_, err = s.Sell("missing", SellRequest{All: true})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestSyncedAccountIsReadOnly(t *testing.T) {
	s := newTestService(t)
	_, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		data.Accounts = append(data.Accounts,
			domain.Account{ID: "acc-w", Name: "Ledger", Connection: domain.Connection{DataSource: domain.DataSourceWallet}},
			domain.Account{ID: "acc-m", Name: "Broker"},
		)
		data.Positions = append(data.Positions,
			domain.Position{ID: "p-w", Symbol: "ETH", Amount: 2, AccountID: "acc-w"},
		)
		return nil, nil
	})
	require.NoError(t, err)

	_, err = s.Add(AddRequest{Symbol: "BTC", Amount: 1, AccountID: "acc-w"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = s.Update("p-w", UpdateRequest{Amount: domain.Float(3)})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	assert.Equal(t, apperr.Validation, apperr.KindOf(s.Delete("p-w")))

	_, err = s.Sell("p-w", SellRequest{All: true})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	// Manual accounts stay writable.
	_, err = s.Add(AddRequest{Symbol: "BTC", Amount: 1, AccountID: "acc-m"})
	assert.NoError(t, err)
}

package accounts

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

func TestAddAccountDefaultsToManual(t *testing.T) {
	s := newTestService(t)

	acc, err := s.Add(AddRequest{Name: "Broker"})
	require.NoError(t, err)

	assert.NotEmpty(t, acc.ID)
	assert.True(t, acc.IsActive)
	assert.Equal(t, domain.DataSourceManual, acc.Connection.DataSource)
	assert.False(t, acc.IsSynced())
	assert.Equal(t, "broker", acc.Slug)
}

func TestAddAccountRejectsDuplicateName(t *testing.T) {
	s := newTestService(t)

	_, err := s.Add(AddRequest{Name: "Revolut"})
	require.NoError(t, err)

	_, err = s.Add(AddRequest{Name: "revolut"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestUpdateAccount(t *testing.T) {
	s := newTestService(t)
	acc, err := s.Add(AddRequest{Name: "Old"})
	require.NoError(t, err)

	inactive := false
	updated, err := s.Update(acc.ID, UpdateRequest{Name: strPtr("New"), IsActive: &inactive})
	require.NoError(t, err)

	assert.Equal(t, "New", updated.Name)
	assert.False(t, updated.IsActive)

	_, err = s.Update("missing", UpdateRequest{})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestDeleteAccountCascadesPositions(t *testing.T) {
	s := newTestService(t)
	acc, err := s.Add(AddRequest{Name: "Kraken", DataSource: domain.DataSourceExchange})
	require.NoError(t, err)

	_, err = s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		data.Positions = append(data.Positions,
			domain.Position{ID: "p1", Symbol: "BTC", Amount: 1, AccountID: acc.ID},
			domain.Position{ID: "p2", Symbol: "ETH", Amount: 2, AccountID: acc.ID},
			domain.Position{ID: "p3", Symbol: "GOOG", Amount: 10},
		)
		return nil, nil
	})
	require.NoError(t, err)

	res, err := s.Delete(acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PositionsRemoved)

	remaining, err := s.store.View(func(data *domain.PortfolioData) (interface{}, error) {
		return len(data.Positions), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, remaining.(int))

	_, err = s.Delete(acc.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func strPtr(s string) *string { return &s }

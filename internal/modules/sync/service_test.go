package sync

import (
	"encoding/json"
	"fmt"
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
	return NewService(st, nil, zerolog.Nop())
}

func snapshot(ordinary, debt int) domain.PortfolioData {
	data := domain.EmptyPortfolio()
	for i := 0; i < ordinary; i++ {
		data.Positions = append(data.Positions, domain.Position{
			ID: fmt.Sprintf("pos-%d", i), Symbol: fmt.Sprintf("SYM%d", i), Amount: 1,
		})
	}
	for i := 0; i < debt; i++ {
		data.Positions = append(data.Positions, domain.Position{
			ID: fmt.Sprintf("debt-%d", i), Symbol: fmt.Sprintf("LOAN%d", i), Amount: 100, IsDebt: true,
		})
	}
	data.Accounts = append(data.Accounts, domain.Account{ID: "acc", Name: "Wallet"})
	return data
}

func seed(t *testing.T, s *Service, data domain.PortfolioData) {
	t.Helper()
	_, err := s.store.Update(func(cur *domain.PortfolioData) (interface{}, error) {
		*cur = data
		return nil, nil
	})
	require.NoError(t, err)
}

func TestSyncReplacesDocument(t *testing.T) {
	s := newTestService(t)
	seed(t, s, snapshot(20, 0))

	res, err := s.Sync(snapshot(15, 0))
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Equal(t, 15, res.Positions)
	assert.Len(t, s.store.Snapshot().Positions, 15)
}

func TestSyncRejectionLeavesDocumentUntouched(t *testing.T) {
	s := newTestService(t)
	seed(t, s, snapshot(100, 0))

	_, err := s.Sync(snapshot(30, 0))
	require.Error(t, err)
	assert.Equal(t, apperr.AdmissionRejected, apperr.KindOf(err))
	assert.Len(t, s.store.Snapshot().Positions, 100, "rejected sync must not mutate")
}

func TestSyncPartialLossIncident(t *testing.T) {
	// The shape that motivated the guard stack: a connector briefly returns
	// a fraction of the portfolio and no debt.
	s := newTestService(t)
	seed(t, s, snapshot(681, 7))

	_, err := s.Sync(snapshot(270, 0))
	require.Error(t, err)
	assert.Equal(t, apperr.AdmissionRejected, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "270 of 688")
}

func TestSyncPreservesValuationHistory(t *testing.T) {
	s := newTestService(t)
	existing := snapshot(20, 0)
	existing.Snapshots = []domain.Snapshot{{Date: "2026-08-01", TotalValue: 100, PositionCount: 20}}
	seed(t, s, existing)

	_, err := s.Sync(snapshot(20, 0))
	require.NoError(t, err)

	assert.Len(t, s.store.Snapshot().Snapshots, 1)
}

func TestImportBypassesGuards(t *testing.T) {
	s := newTestService(t)
	seed(t, s, snapshot(100, 5))

	res, err := s.Import(json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.True(t, res.Accepted)
	assert.Empty(t, s.store.Snapshot().Positions, "raw import may clear everything")
}

func TestImportAcceptsBothDocumentShapes(t *testing.T) {
	flat := `{"positions":[{"id":"a","symbol":"GOOG","amount":10}]}`
	wrapped := `{"state":` + flat + `,"version":2}`

	for name, payload := range map[string]string{"flat": flat, "wrapped": wrapped} {
		t.Run(name, func(t *testing.T) {
			s := newTestService(t)
			_, err := s.Import(json.RawMessage(payload))
			require.NoError(t, err)
			positions := s.store.Snapshot().Positions
			require.Len(t, positions, 1)
			assert.Equal(t, "GOOG", positions[0].Symbol)
		})
	}
}

func TestExportWrapsState(t *testing.T) {
	s := newTestService(t)
	seed(t, s, snapshot(3, 0))

	doc := s.Export()
	assert.Equal(t, store.DocumentVersion, doc.Version)
	assert.Len(t, doc.State.Positions, 3)
}

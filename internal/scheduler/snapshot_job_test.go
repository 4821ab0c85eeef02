package scheduler

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/store"
)

func TestSnapshotJobRecordsValuation(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	_, err = st.Update(func(data *domain.PortfolioData) (interface{}, error) {
		data.Positions = append(data.Positions,
			domain.Position{ID: "a", Symbol: "GOOG", Amount: 10},
			domain.Position{ID: "b", Symbol: "BTC", Amount: 1},
		)
		data.Prices = map[string]float64{"GOOG": 100, "BTC": 50000}
		return nil, nil
	})
	require.NoError(t, err)

	job := NewSnapshotJob(st, nil, zerolog.Nop())
	job.now = func() time.Time { return time.Date(2026, 8, 31, 0, 5, 0, 0, time.UTC) }

	require.NoError(t, job.Run())

	snaps := st.Snapshot().Snapshots
	require.Len(t, snaps, 1)
	assert.Equal(t, "2026-08-31", snaps[0].Date)
	assert.Equal(t, 2, snaps[0].PositionCount)
	assert.InDelta(t, 51000, snaps[0].TotalValue, 1e-6)
}

func TestSnapshotJobOverwritesSameDay(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	job := NewSnapshotJob(st, nil, zerolog.Nop())
	job.now = func() time.Time { return time.Date(2026, 8, 31, 0, 5, 0, 0, time.UTC) }

	require.NoError(t, job.Run())

	_, err = st.Update(func(data *domain.PortfolioData) (interface{}, error) {
		data.Positions = append(data.Positions, domain.Position{ID: "a", Symbol: "GOOG", Amount: 1})
		return nil, nil
	})
	require.NoError(t, err)

	require.NoError(t, job.Run())

	snaps := st.Snapshot().Snapshots
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].PositionCount)
}

func TestSnapshotJobSkipsCommitWhenUnchanged(t *testing.T) {
	var commits atomic.Int32
	st, err := store.Open(filepath.Join(t.TempDir(), "db.json"), zerolog.Nop(),
		store.WithCommitHook(func() { commits.Add(1) }))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	job := NewSnapshotJob(st, nil, zerolog.Nop())
	job.now = func() time.Time { return time.Date(2026, 8, 31, 0, 5, 0, 0, time.UTC) }

	require.NoError(t, job.Run())
	require.Equal(t, int32(1), commits.Load())

	// An identical re-run must not commit, or a post-commit trigger would
	// reschedule the job forever.
	require.NoError(t, job.Run())
	assert.Equal(t, int32(1), commits.Load())

	snaps := st.Snapshot().Snapshots
	require.Len(t, snaps, 1)
}

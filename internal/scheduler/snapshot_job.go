package scheduler

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/observability"
	"github.com/aristath/folio/internal/store"
)

// SnapshotJob appends a daily valuation record to the document. Running it
// twice on the same day overwrites that day's entry instead of duplicating it.
type SnapshotJob struct {
	store   *store.Store
	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewSnapshotJob(st *store.Store, metrics *observability.Metrics, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		store:   st,
		metrics: metrics,
		log:     log.With().Str("job", "snapshot").Logger(),
		now:     time.Now,
	}
}

func (j *SnapshotJob) Name() string { return "daily-snapshot" }

// errUnchanged aborts the transaction when today's snapshot already matches,
// so a no-op run never commits. A commit would fire the post-commit hook and
// schedule this job again, endlessly.
var errUnchanged = errors.New("snapshot unchanged")

func (j *SnapshotJob) Run() error {
	date := j.now().UTC().Format("2006-01-02")

	_, err := j.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		snap := domain.Snapshot{
			Date:          date,
			TotalValue:    data.TotalValue(),
			PositionCount: len(data.Positions),
		}
		for i := range data.Snapshots {
			if data.Snapshots[i].Date == date {
				if data.Snapshots[i] == snap {
					return nil, errUnchanged
				}
				data.Snapshots[i] = snap
				return nil, nil
			}
		}
		data.Snapshots = append(data.Snapshots, snap)
		return nil, nil
	})
	if errors.Is(err, errUnchanged) {
		return nil
	}
	if err != nil {
		return err
	}
	if j.metrics != nil {
		j.metrics.SnapshotsRecorded.Inc()
	}
	j.log.Info().Str("date", date).Msg("snapshot recorded")
	return nil
}

// Package sync ingests full portfolio snapshots from external fetchers.
// Every incoming snapshot passes the admission guards before it replaces
// the document; the raw import path bypasses them for deliberate restores.
package sync

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/guards"
	"github.com/aristath/folio/internal/observability"
	"github.com/aristath/folio/internal/store"
)

// Service applies snapshot replacements through serialized transactions.
type Service struct {
	store   *store.Store
	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(st *store.Store, metrics *observability.Metrics, log zerolog.Logger) *Service {
	return &Service{
		store:   st,
		metrics: metrics,
		log:     log.With().Str("service", "sync").Logger(),
		now:     time.Now,
	}
}

// Result summarizes an accepted snapshot.
type Result struct {
	Accepted  bool `json:"accepted"`
	Positions int  `json:"positions"`
	Accounts  int  `json:"accounts"`
}

// Sync replaces the whole document with the incoming snapshot, but only if
// the admission guards allow it. A rejection leaves the document untouched
// and surfaces the guard's reason verbatim.
func (s *Service) Sync(incoming domain.PortfolioData) (Result, error) {
	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		verdict := guards.Admit(data, &incoming)
		if !verdict.Allowed {
			if s.metrics != nil {
				s.metrics.GuardRejections.WithLabelValues(verdict.Guard).Inc()
			}
			s.log.Warn().Str("guard", verdict.Guard).Str("reason", verdict.Reason).Msg("sync rejected")
			return nil, apperr.Admission(verdict.Reason)
		}

		next := incoming
		next.Normalize(s.now())
		// Valuation history survives a snapshot that does not carry its own.
		if len(next.Snapshots) == 0 {
			next.Snapshots = data.Snapshots
		}
		*data = next
		return Result{Accepted: true, Positions: len(next.Positions), Accounts: len(next.Accounts)}, nil
	})
	if err != nil {
		return Result{}, err
	}
	out := res.(Result)
	s.log.Info().Int("positions", out.Positions).Int("accounts", out.Accounts).Msg("sync accepted")
	return out, nil
}

// Export returns the document in its on-disk envelope.
func (s *Service) Export() store.Document {
	return store.Document{State: s.store.Snapshot(), Version: store.DocumentVersion}
}

// Import replaces the document without consulting the guards. This is the
// deliberate-restore escape hatch: an empty object clears everything.
func (s *Service) Import(raw json.RawMessage) (Result, error) {
	incoming, _ := store.Decode(raw)
	incoming.Normalize(s.now())

	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		*data = incoming
		return Result{Accepted: true, Positions: len(incoming.Positions), Accounts: len(incoming.Accounts)}, nil
	})
	if err != nil {
		return Result{}, err
	}
	s.log.Info().Int("positions", len(incoming.Positions)).Msg("document imported")
	return res.(Result), nil
}

// Package accounts manages the account list and its cascade rules.
package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/store"
	"github.com/aristath/folio/internal/utils"
)

// Service mutates accounts through serialized store transactions.
type Service struct {
	store *store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(st *store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With().Str("service", "accounts").Logger(),
		now:   time.Now,
	}
}

// AddRequest describes a new account.
type AddRequest struct {
	Name       string            `json:"name"`
	DataSource domain.DataSource `json:"dataSource,omitempty"`
	Slug       string            `json:"slug,omitempty"`
}

// UpdateRequest patches an account. Nil fields are left alone.
type UpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	Slug     *string `json:"slug,omitempty"`
}

// DeleteResult reports the cascade outcome.
type DeleteResult struct {
	Deleted          bool `json:"deleted"`
	PositionsRemoved int  `json:"positionsRemoved"`
}

// List returns every account.
func (s *Service) List() ([]domain.Account, error) {
	res, err := s.store.View(func(data *domain.PortfolioData) (interface{}, error) {
		out := make([]domain.Account, len(data.Accounts))
		copy(out, data.Accounts)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Account), nil
}

// Add creates an account. Names must be unique, case-insensitively.
func (s *Service) Add(req AddRequest) (domain.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Account{}, apperr.Validationf("account name is required")
	}
	source := req.DataSource
	if source == "" {
		source = domain.DataSourceManual
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(name)
	}

	acc := domain.Account{
		ID:         uuid.NewString(),
		Name:       name,
		IsActive:   true,
		Connection: domain.Connection{DataSource: source},
		Slug:       slug,
		AddedAt:    s.now().UTC().Format(time.RFC3339),
	}

	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		for _, existing := range data.Accounts {
			if strings.EqualFold(existing.Name, name) {
				return nil, apperr.Validationf("account %q already exists", name)
			}
		}
		data.Accounts = append(data.Accounts, acc)
		return acc, nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	s.log.Info().Str("account", name).Str("source", string(source)).Msg("Account added")
	return res.(domain.Account), nil
}

// Update patches an account by id.
func (s *Service) Update(id string, req UpdateRequest) (domain.Account, error) {
	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		acc := data.FindAccount(id)
		if acc == nil {
			return nil, apperr.NotFoundf("account %s not found", id)
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return nil, apperr.Validationf("account name is required")
			}
			for _, other := range data.Accounts {
				if other.ID != id && strings.EqualFold(other.Name, name) {
					return nil, apperr.Validationf("account %q already exists", name)
				}
			}
			acc.Name = name
		}
		if req.IsActive != nil {
			acc.IsActive = *req.IsActive
		}
		if req.Slug != nil {
			acc.Slug = *req.Slug
		}
		return *acc, nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return res.(domain.Account), nil
}

// Delete removes an account and every position that belonged to it.
func (s *Service) Delete(id string) (DeleteResult, error) {
	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		idx := -1
		for i := range data.Accounts {
			if data.Accounts[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, apperr.NotFoundf("account %s not found", id)
		}
		data.Accounts = append(data.Accounts[:idx], data.Accounts[idx+1:]...)

		kept := data.Positions[:0]
		removed := 0
		for _, pos := range data.Positions {
			if pos.AccountID == id {
				removed++
				continue
			}
			kept = append(kept, pos)
		}
		data.Positions = kept
		return DeleteResult{Deleted: true, PositionsRemoved: removed}, nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	out := res.(DeleteResult)
	s.log.Info().Str("account", id).Int("positions_removed", out.PositionsRemoved).Msg("Account deleted")
	return out, nil
}

// Package positions implements manual position management over the
// portfolio document.
package positions

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/apperr"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/store"
)

const epsilon = 1e-9

// Service mutates positions through serialized store transactions.
type Service struct {
	store *store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewService(st *store.Store, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		log:   log.With().Str("service", "positions").Logger(),
		now:   time.Now,
	}
}

// AddRequest describes a new manual position.
type AddRequest struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	AssetClass string   `json:"assetClass"`
	Amount     float64  `json:"amount"`
	CostBasis  *float64 `json:"costBasis,omitempty"`
	AccountID  string   `json:"accountId,omitempty"`
	IsDebt     bool     `json:"isDebt,omitempty"`
	Chain      string   `json:"chain,omitempty"`
	Protocol   string   `json:"protocol,omitempty"`
}

// UpdateRequest patches an existing position. Nil fields are left alone.
type UpdateRequest struct {
	Name       *string  `json:"name,omitempty"`
	AssetClass *string  `json:"assetClass,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
	CostBasis  *float64 `json:"costBasis,omitempty"`
	AccountID  *string  `json:"accountId,omitempty"`
}

// SellRequest sells part or all of a position, by absolute amount or as a
// percentage of the current holding.
type SellRequest struct {
	Amount  *float64 `json:"amount,omitempty"`
	Percent *float64 `json:"percent,omitempty"`
	Price   *float64 `json:"price,omitempty"`
	All     bool     `json:"all,omitempty"`
}

// SellResult reports what the sale did to the position.
type SellResult struct {
	Position *domain.Position   `json:"position,omitempty"` // nil when the whole position was sold
	Removed  bool               `json:"removed"`
	Sold     float64            `json:"sold"`
	Proceeds *float64           `json:"proceeds,omitempty"`
	Tx       domain.Transaction `json:"transaction"`
}

// List returns every position in the document.
func (s *Service) List() ([]domain.Position, error) {
	res, err := s.store.View(func(data *domain.PortfolioData) (interface{}, error) {
		out := make([]domain.Position, len(data.Positions))
		copy(out, data.Positions)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Position), nil
}

// Transactions returns the recorded transaction history.
func (s *Service) Transactions() ([]domain.Transaction, error) {
	res, err := s.store.View(func(data *domain.PortfolioData) (interface{}, error) {
		out := make([]domain.Transaction, len(data.Transactions))
		copy(out, data.Transactions)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.Transaction), nil
}

// Add creates a manual position. Positions cannot be added to synced
// accounts; those are owned by their connector.
func (s *Service) Add(req AddRequest) (domain.Position, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return domain.Position{}, apperr.Validationf("symbol is required")
	}
	if math.Abs(req.Amount) < epsilon {
		return domain.Position{}, apperr.Validationf("amount must be non-zero")
	}

	now := s.now().UTC()
	pos := domain.Position{
		ID:         uuid.NewString(),
		Symbol:     strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Name:       req.Name,
		Type:       req.Type,
		AssetClass: string(domain.DeriveAssetClass(req.Type, req.AssetClass)),
		Amount:     req.Amount,
		CostBasis:  req.CostBasis,
		AccountID:  req.AccountID,
		IsDebt:     req.IsDebt || req.Amount < 0,
		Chain:      req.Chain,
		Protocol:   req.Protocol,
		AddedAt:    now.Format(time.RFC3339),
		UpdatedAt:  now.Format(time.RFC3339),
	}
	if pos.IsDebt {
		pos.Amount = math.Abs(pos.Amount)
	}

	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		if err := s.requireManual(data, pos.AccountID); err != nil {
			return nil, err
		}
		data.Positions = append(data.Positions, pos)
		tx := domain.Transaction{
			ID:         uuid.NewString(),
			Type:       domain.TransactionBuy,
			PositionID: pos.ID,
			Symbol:     pos.Symbol,
			Amount:     pos.Amount,
			Date:       now.Format("2006-01-02"),
			CreatedAt:  now.Format(time.RFC3339),
		}
		if pos.CostBasis != nil {
			tx.TotalValue = *pos.CostBasis
			tx.Price = *pos.CostBasis / pos.Amount
		}
		data.Transactions = append(data.Transactions, tx)
		return pos, nil
	})
	if err != nil {
		return domain.Position{}, err
	}
	s.log.Info().Str("symbol", pos.Symbol).Float64("amount", pos.Amount).Msg("Position added")
	return res.(domain.Position), nil
}

// Update patches exactly the position with the given id. Positions sharing a
// symbol are never touched.
func (s *Service) Update(id string, req UpdateRequest) (domain.Position, error) {
	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		pos := data.FindPosition(id)
		if pos == nil {
			return nil, apperr.NotFoundf("position %s not found", id)
		}
		if err := s.requireManual(data, pos.AccountID); err != nil {
			return nil, err
		}
		if req.Name != nil {
			pos.Name = *req.Name
		}
		if req.AssetClass != nil {
			pos.AssetClass = string(domain.DeriveAssetClass(pos.Type, *req.AssetClass))
		}
		if req.Amount != nil {
			if math.Abs(*req.Amount) < epsilon {
				return nil, apperr.Validationf("amount must be non-zero")
			}
			pos.Amount = math.Abs(*req.Amount)
			pos.IsDebt = pos.IsDebt || *req.Amount < 0
		}
		if req.CostBasis != nil {
			pos.CostBasis = req.CostBasis
		}
		if req.AccountID != nil {
			if err := s.requireManual(data, *req.AccountID); err != nil {
				return nil, err
			}
			pos.AccountID = *req.AccountID
		}
		pos.UpdatedAt = s.now().UTC().Format(time.RFC3339)
		return *pos, nil
	})
	if err != nil {
		return domain.Position{}, err
	}
	return res.(domain.Position), nil
}

// Delete removes a position outright, without recording a sale.
func (s *Service) Delete(id string) error {
	_, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		for i := range data.Positions {
			if data.Positions[i].ID == id {
				if err := s.requireManual(data, data.Positions[i].AccountID); err != nil {
					return nil, err
				}
				data.Positions = append(data.Positions[:i], data.Positions[i+1:]...)
				return nil, nil
			}
		}
		return nil, apperr.NotFoundf("position %s not found", id)
	})
	return err
}

// Sell reduces or closes a position. A partial sale keeps the cost basis
// proportional to the remaining amount; selling everything removes the
// position. Either way a transaction is recorded.
func (s *Service) Sell(id string, req SellRequest) (SellResult, error) {
	now := s.now().UTC()

	res, err := s.store.Update(func(data *domain.PortfolioData) (interface{}, error) {
		idx := -1
		for i := range data.Positions {
			if data.Positions[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, apperr.NotFoundf("position %s not found", id)
		}
		pos := data.Positions[idx]
		if err := s.requireManual(data, pos.AccountID); err != nil {
			return nil, err
		}
		if pos.IsDebt {
			return nil, apperr.Validationf("cannot sell a debt position")
		}

		sellAmt := pos.Amount
		switch {
		case req.All:
		case req.Percent != nil:
			if *req.Percent <= 0 || *req.Percent > 100 {
				return nil, apperr.Validationf("percent must be in (0, 100], got %g", *req.Percent)
			}
			sellAmt = pos.Amount * *req.Percent / 100
		case req.Amount != nil:
			sellAmt = *req.Amount
		default:
			return nil, apperr.Validationf("amount or percent is required unless selling all")
		}
		if sellAmt <= epsilon {
			return nil, apperr.Validationf("sell amount must be positive")
		}
		if sellAmt > pos.Amount+epsilon {
			return nil, apperr.Validationf("cannot sell %g of %g held", sellAmt, pos.Amount)
		}

		tx := domain.Transaction{
			ID:         uuid.NewString(),
			Type:       domain.TransactionSell,
			PositionID: pos.ID,
			Symbol:     pos.Symbol,
			Amount:     sellAmt,
			Date:       now.Format("2006-01-02"),
			CreatedAt:  now.Format(time.RFC3339),
		}
		result := SellResult{Sold: sellAmt}
		if req.Price != nil {
			tx.Price = *req.Price
			tx.TotalValue = sellAmt * *req.Price
			result.Proceeds = domain.Float(tx.TotalValue)
		}
		data.Transactions = append(data.Transactions, tx)
		result.Tx = tx

		remaining := pos.Amount - sellAmt
		if remaining <= epsilon {
			data.Positions = append(data.Positions[:idx], data.Positions[idx+1:]...)
			result.Removed = true
			return result, nil
		}

		if pos.CostBasis != nil {
			data.Positions[idx].CostBasis = domain.Float(*pos.CostBasis * (remaining / pos.Amount))
		}
		data.Positions[idx].Amount = remaining
		data.Positions[idx].UpdatedAt = now.Format(time.RFC3339)
		kept := data.Positions[idx]
		result.Position = &kept
		return result, nil
	})
	if err != nil {
		return SellResult{}, err
	}
	out := res.(SellResult)
	s.log.Info().Str("position", id).Float64("sold", out.Sold).Bool("removed", out.Removed).Msg("Position sold")
	return out, nil
}

// requireManual rejects writes against positions that belong to a synced
// account; those are owned by the sync pipeline.
func (s *Service) requireManual(data *domain.PortfolioData, accountID string) error {
	if accountID == "" {
		return nil
	}
	acc := data.FindAccount(accountID)
	if acc == nil {
		return apperr.Validationf("account %s does not exist", accountID)
	}
	if acc.IsSynced() {
		return apperr.Validationf("account %q is synced; its positions cannot be edited manually", acc.Name)
	}
	return nil
}

// Package guards implements the admission checks run before a bulk
// state-replacement may overwrite the persisted portfolio document.
//
// Each guard is a pure function over (existing, incoming) snapshots with no
// side effects. The pipeline short-circuits on the first failing guard and
// returns its reason verbatim; it never partially applies anything.
package guards

import (
	"fmt"

	"github.com/aristath/folio/internal/domain"
)

// PartialLossThreshold is the minimum allowed incoming/existing position
// ratio. Exactly the boundary passes.
const PartialLossThreshold = 0.5

// PartialLossMinExisting is the existing-position count below which the
// partial-loss guard stays inactive. Small portfolios churn legitimately.
const PartialLossMinExisting = 10

// Result is the outcome of one guard, or of the whole pipeline.
type Result struct {
	Allowed bool   `json:"allowed"`
	Guard   string `json:"guard,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Result { return Result{Allowed: true} }

func reject(guard, reason string) Result {
	return Result{Allowed: false, Guard: guard, Reason: reason}
}

// Guard is a named admission check over two whole-state snapshots.
// Guards must not mutate either argument.
type Guard struct {
	Name  string
	Check func(existing, incoming *domain.PortfolioData) Result
}

// Pipeline returns the guard list in evaluation order. Order matters: the
// first failing guard's reason is the one surfaced to the user.
func Pipeline() []Guard {
	return []Guard{
		{Name: "total_wipe", Check: checkTotalWipe},
		{Name: "partial_loss", Check: checkPartialLoss},
		{Name: "debt_loss", Check: checkDebtLoss},
	}
}

// Run evaluates guards in order, returning the first failure or an allow.
func Run(pipeline []Guard, existing, incoming *domain.PortfolioData) Result {
	for _, g := range pipeline {
		if res := g.Check(existing, incoming); !res.Allowed {
			return res
		}
	}
	return allow()
}

// Admit runs the default pipeline.
func Admit(existing, incoming *domain.PortfolioData) Result {
	return Run(Pipeline(), existing, incoming)
}

// checkTotalWipe rejects an incoming snapshot that would erase a populated
// portfolio entirely: data present before, nothing at all after.
func checkTotalWipe(existing, incoming *domain.PortfolioData) Result {
	if len(existing.Positions) > 0 && len(incoming.Positions) == 0 && len(incoming.Accounts) == 0 {
		return reject("total_wipe", fmt.Sprintf(
			"sync would wipe all data: existing has %d positions, incoming has 0 positions and 0 accounts",
			len(existing.Positions)))
	}
	return allow()
}

// checkPartialLoss rejects an incoming snapshot that silently drops more
// than half of the existing positions. Only active once the portfolio is
// large enough for the ratio to be meaningful.
func checkPartialLoss(existing, incoming *domain.PortfolioData) Result {
	e := len(existing.Positions)
	if e < PartialLossMinExisting {
		return allow()
	}
	i := len(incoming.Positions)
	ratio := float64(i) / float64(e)
	if ratio < PartialLossThreshold {
		return reject("partial_loss", fmt.Sprintf(
			"sync would drop too many positions: incoming has %d of %d existing (%.0f%%, below the %.0f%% threshold)",
			i, e, ratio*100, PartialLossThreshold*100))
	}
	return allow()
}

// checkDebtLoss rejects an incoming snapshot that drops every debt
// (liability) position. Losing some but not all is tolerated: the user may
// have genuinely closed a loan.
func checkDebtLoss(existing, incoming *domain.PortfolioData) Result {
	existingDebt := existing.DebtCount()
	if existingDebt == 0 {
		return allow()
	}
	if incoming.DebtCount() == 0 {
		return reject("debt_loss", fmt.Sprintf(
			"sync would drop all debt positions: existing has %d, incoming has 0",
			existingDebt))
	}
	return allow()
}

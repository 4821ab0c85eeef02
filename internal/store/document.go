package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/aristath/folio/internal/domain"
)

// DocumentVersion is the envelope version stamped on every write.
const DocumentVersion = 2

// Document is the on-disk envelope. Legacy files carry the PortfolioData
// fields at top level with no envelope; both shapes normalize to the same
// in-memory aggregate on read and are re-wrapped on write.
type Document struct {
	State   domain.PortfolioData `json:"state"`
	Version int                  `json:"version"`
}

// decodeDocument normalizes raw file bytes into an aggregate. A missing,
// empty, or unparsable document yields the empty aggregate: first-run and
// corruption are treated identically and non-fatally.
func decodeDocument(raw []byte) (domain.PortfolioData, bool) {
	if len(raw) == 0 {
		return domain.EmptyPortfolio(), false
	}

	// Wrapped shape first: {"state": {...}, "version": n}.
	var probe struct {
		State   *json.RawMessage `json:"state"`
		Version *int             `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return domain.EmptyPortfolio(), false
	}
	if probe.State != nil {
		var state domain.PortfolioData
		if err := json.Unmarshal(*probe.State, &state); err != nil {
			return domain.EmptyPortfolio(), false
		}
		fillDefaults(&state)
		return state, true
	}

	// Flat legacy shape: PortfolioData fields at top level.
	var flat domain.PortfolioData
	if err := json.Unmarshal(raw, &flat); err != nil {
		return domain.EmptyPortfolio(), false
	}
	fillDefaults(&flat)
	return flat, true
}

// Decode parses raw bytes in either document shape, for callers that accept
// uploaded documents. The second return is false when the payload was empty
// or unparsable and the empty aggregate was substituted.
func Decode(raw []byte) (domain.PortfolioData, bool) {
	return decodeDocument(raw)
}

func fillDefaults(p *domain.PortfolioData) {
	if p.Positions == nil {
		p.Positions = []domain.Position{}
	}
	if p.Accounts == nil {
		p.Accounts = []domain.Account{}
	}
	if p.Prices == nil {
		p.Prices = map[string]float64{}
	}
	if p.CustomPrices == nil {
		p.CustomPrices = map[string]float64{}
	}
	if p.FxRates == nil {
		p.FxRates = map[string]float64{}
	}
	if p.Transactions == nil {
		p.Transactions = []domain.Transaction{}
	}
	if p.Snapshots == nil {
		p.Snapshots = []domain.Snapshot{}
	}
}

// readDocument loads the aggregate from path, tolerating absence and
// corruption.
func readDocument(path string) domain.PortfolioData {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			// Unreadable is handled like unparsable: empty aggregate.
			return domain.EmptyPortfolio()
		}
		return domain.EmptyPortfolio()
	}
	state, _ := decodeDocument(raw)
	return state
}

// encodeDocument wraps the aggregate with the current envelope version.
func encodeDocument(state domain.PortfolioData) ([]byte, error) {
	return json.MarshalIndent(Document{State: state, Version: DocumentVersion}, "", "  ")
}

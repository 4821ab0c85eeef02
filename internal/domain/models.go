// Package domain provides core domain models and types.
package domain

import (
	"strings"
	"time"
)

// DataSource identifies how an account's positions are maintained.
type DataSource string

const (
	// DataSourceManual marks accounts whose positions the user edits directly.
	DataSourceManual DataSource = "manual"
	// DataSourceWallet marks accounts synced from an on-chain wallet.
	DataSourceWallet DataSource = "wallet"
	// DataSourceExchange marks accounts synced from an exchange API.
	DataSourceExchange DataSource = "exchange"
)

// AssetClass buckets positions for allocation and exposure reporting.
type AssetClass string

const (
	AssetClassCrypto     AssetClass = "crypto"
	AssetClassEquity     AssetClass = "equity"
	AssetClassCash       AssetClass = "cash"
	AssetClassDerivative AssetClass = "derivative"
	AssetClassMetal      AssetClass = "metal"
	AssetClassOther      AssetClass = "other"
)

// Position represents a single held (or owed, if IsDebt) quantity of an asset.
// Identity is ID: opaque, globally unique, assigned at creation, never reused.
// Amount is always non-negative; IsDebt carries the semantic sign.
type Position struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name,omitempty"`
	Type       string   `json:"type,omitempty"`
	AssetClass string   `json:"assetClass"`
	Amount     float64  `json:"amount"`
	CostBasis  *float64 `json:"costBasis,omitempty"`
	AccountID  string   `json:"accountId,omitempty"`
	IsDebt     bool     `json:"isDebt"`
	Chain      string   `json:"chain,omitempty"`
	Protocol   string   `json:"protocol,omitempty"`
	AddedAt    string   `json:"addedAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

// Connection describes where an account's data comes from.
type Connection struct {
	DataSource DataSource `json:"dataSource"`
}

// Account groups positions under a named source (exchange, wallet, broker, bank).
type Account struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"isActive"`
	Connection Connection `json:"connection"`
	Slug       string     `json:"slug,omitempty"`
	AddedAt    string     `json:"addedAt"`
}

// IsSynced reports whether the account's positions are maintained by an
// external fetcher and therefore read-only from the editing paths.
func (a Account) IsSynced() bool {
	return a.Connection.DataSource != "" && a.Connection.DataSource != DataSourceManual
}

// TransactionType enumerates the committed mutation kinds that produce
// an append-only log entry.
type TransactionType string

const (
	TransactionBuy      TransactionType = "buy"
	TransactionSell     TransactionType = "sell"
	TransactionTransfer TransactionType = "transfer"
)

// Transaction is an append-only log entry created when a resolved mutation
// of type buy/sell/transfer is committed. Never mutated or deleted.
type Transaction struct {
	ID         string          `json:"id"`
	Type       TransactionType `json:"type"`
	Symbol     string          `json:"symbol"`
	Amount     float64         `json:"amount"`
	Price      float64         `json:"price,omitempty"`
	TotalValue float64         `json:"totalValue,omitempty"`
	PositionID string          `json:"positionId,omitempty"`
	AccountID  string          `json:"accountId,omitempty"`
	Date       string          `json:"date"`
	CreatedAt  string          `json:"createdAt"`
}

// Snapshot is a point-in-time valuation record appended by the snapshot job.
type Snapshot struct {
	Date          string  `json:"date"`
	TotalValue    float64 `json:"totalValue"`
	PositionCount int     `json:"positionCount"`
}

// PortfolioData is the persisted aggregate. Reads and writes always operate
// on the whole aggregate, never on a sub-document.
type PortfolioData struct {
	Positions    []Position         `json:"positions"`
	Accounts     []Account          `json:"accounts"`
	Prices       map[string]float64 `json:"prices"`
	CustomPrices map[string]float64 `json:"customPrices"`
	FxRates      map[string]float64 `json:"fxRates"`
	Transactions []Transaction      `json:"transactions"`
	Snapshots    []Snapshot         `json:"snapshots"`
	LastRefresh  string             `json:"lastRefresh"`
	HideBalances bool               `json:"hideBalances"`
	HideDust     bool               `json:"hideDust"`
	RiskFreeRate float64            `json:"riskFreeRate"`
}

// EmptyPortfolio returns the well-defined empty aggregate used for first-run
// and corrupt-document recovery.
func EmptyPortfolio() PortfolioData {
	return PortfolioData{
		Positions:    []Position{},
		Accounts:     []Account{},
		Prices:       map[string]float64{},
		CustomPrices: map[string]float64{},
		FxRates:      map[string]float64{},
		Transactions: []Transaction{},
		Snapshots:    []Snapshot{},
	}
}

// DebtCount returns the number of debt (liability) positions.
func (p *PortfolioData) DebtCount() int {
	n := 0
	for _, pos := range p.Positions {
		if pos.IsDebt {
			n++
		}
	}
	return n
}

// FindPosition returns a pointer into Positions for the given id, or nil.
func (p *PortfolioData) FindPosition(id string) *Position {
	for i := range p.Positions {
		if p.Positions[i].ID == id {
			return &p.Positions[i]
		}
	}
	return nil
}

// FindAccount returns a pointer into Accounts for the given id, or nil.
func (p *PortfolioData) FindAccount(id string) *Account {
	for i := range p.Accounts {
		if p.Accounts[i].ID == id {
			return &p.Accounts[i]
		}
	}
	return nil
}

// DeriveAssetClass returns the asset class for a position, derived
// deterministically from its type/assetClass fields. Every position must
// carry a non-empty assetClass at write time; positions without one are
// a data-integrity defect.
func DeriveAssetClass(typ, assetClass string) AssetClass {
	if c := normalizeClass(assetClass); c != "" {
		return c
	}
	if c := normalizeClass(typ); c != "" {
		return c
	}
	return AssetClassOther
}

func normalizeClass(s string) AssetClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crypto", "cryptocurrency", "token", "coin", "nft", "defi":
		return AssetClassCrypto
	case "equity", "stock", "etf", "share", "shares", "fund":
		return AssetClassEquity
	case "cash", "fiat", "currency", "stablecoin", "deposit":
		return AssetClassCash
	case "derivative", "option", "future", "futures", "perp", "perpetual":
		return AssetClassDerivative
	case "metal", "gold", "silver", "commodity":
		return AssetClassMetal
	case "other":
		return AssetClassOther
	}
	return ""
}

// Normalize derives missing asset classes and stamps lastRefresh. It is
// applied to every aggregate admitted for persistence.
func (p *PortfolioData) Normalize(now time.Time) {
	for i := range p.Positions {
		pos := &p.Positions[i]
		pos.AssetClass = string(DeriveAssetClass(pos.Type, pos.AssetClass))
		if pos.Amount < 0 {
			// Sign never encodes debt; the flag does.
			pos.Amount = -pos.Amount
			pos.IsDebt = true
		}
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
	if p.Positions == nil {
		p.Positions = []Position{}
	}
	if p.Accounts == nil {
		p.Accounts = []Account{}
	}
	if p.Transactions == nil {
		p.Transactions = []Transaction{}
	}
	if p.Snapshots == nil {
		p.Snapshots = []Snapshot{}
	}
	p.LastRefresh = now.UTC().Format(time.RFC3339)
}

// PriceOf returns the effective unit price for a symbol. Custom (user-pinned)
// prices win over fetched ones.
func (p *PortfolioData) PriceOf(symbol string) float64 {
	key := strings.ToUpper(symbol)
	if v, ok := p.CustomPrices[key]; ok {
		return v
	}
	return p.Prices[key]
}

// TotalValue values every position at its effective price. Debt positions
// subtract from the total.
func (p *PortfolioData) TotalValue() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		v := pos.Amount * p.PriceOf(pos.Symbol)
		if pos.IsDebt {
			total -= v
		} else {
			total += v
		}
	}
	return total
}

// Package models defines data structures for Folio
package models

import (
	"math"
	"strings"
	"time"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
)

const (
	// MaxPortfolioNameLen caps the portfolio name length.
	MaxPortfolioNameLen = 30
	// MaxPortfolioDescLen caps the portfolio description length.
	MaxPortfolioDescLen = 160
	// MaxStrategyTagLen caps a strategy tag length.
	MaxStrategyTagLen = 20
	// MaxStrategyDescLen caps a strategy description length.
	MaxStrategyDescLen = 400
	// NetValueRetention is the number of net-value points retained,
	// newest-first; older entries are pruned from the tail.
	NetValueRetention = 365
)

// Sentiment marks a strategy as bullish or bearish. Empty means unset.
type Sentiment string

const (
	SentimentBull Sentiment = "bull"
	SentimentBear Sentiment = "bear"
)

// ValidSentiment returns true for bull, bear, or unset.
func ValidSentiment(s Sentiment) bool {
	return s == "" || s == SentimentBull || s == SentimentBear
}

// Position is a portfolio's aggregated holding in one stock: signed share
// count and volume-weighted average entry cost. A position with zero
// shares is never stored.
type Position struct {
	StockID     string  `json:"stock_id"`
	AverageCost float64 `json:"average_cost"`
	ShareCount  int64   `json:"share_count"`
}

// Strategy groups stocks within a portfolio under a tag.
type Strategy struct {
	Tag         string    `json:"tag"`
	Description string    `json:"description"`
	Sentiment   Sentiment `json:"sentiment,omitempty"`
	StockIDs    []string  `json:"stock_ids"`
}

// Validate checks the strategy's field constraints.
func (s *Strategy) Validate() error {
	if strings.TrimSpace(s.Tag) == "" {
		return domain.Validation("strategy tag is required")
	}
	if len(s.Tag) > MaxStrategyTagLen {
		return domain.Validation("strategy tag exceeds %d characters", MaxStrategyTagLen)
	}
	if len(s.Description) > MaxStrategyDescLen {
		return domain.Validation("strategy description exceeds %d characters", MaxStrategyDescLen)
	}
	if !ValidSentiment(s.Sentiment) {
		return domain.Validation("sentiment must be 'bull' or 'bear'")
	}
	return nil
}

// Contribution is a single cash deposit (positive) or withdrawal
// (negative) on a portfolio's ledger. Contributions are append-only:
// once recorded they are never mutated or deleted.
type Contribution struct {
	Timestamp time.Time `json:"timestamp"`
	Amount    float64   `json:"amount"`
}

// Ledger holds a portfolio's contribution history and the derived
// net-value time series (newest-first, index 0 = current).
type Ledger struct {
	Contributions []Contribution `json:"contributions"`
	NetValues     []float64      `json:"net_values"`
}

// CurrentNetValue returns the head of the net-value series, 0 when empty.
func (l *Ledger) CurrentNetValue() float64 {
	if len(l.NetValues) == 0 {
		return 0
	}
	return l.NetValues[0]
}

// Portfolio is the root document for one investor portfolio. It owns its
// positions, watched stocks, strategies, targets, and contribution ledger;
// stock-level aggregates live on the Stock document and are mutated only
// through ledger operations.
type Portfolio struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	OwnerID       string              `json:"owner_id"`
	Public        bool                `json:"public"`
	Description   string              `json:"description,omitempty"`
	FollowerCount int64               `json:"follower_count"`
	Positions     map[string]Position `json:"positions"`
	WatchedStocks map[string]bool     `json:"watched_stocks"`
	Strategies    map[string]Strategy `json:"strategies"`
	Targets       map[string]float64  `json:"targets"`
	Ledger        Ledger              `json:"ledger"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewPortfolio creates an empty portfolio owned by ownerID.
func NewPortfolio(id, name, ownerID, description string, public bool) *Portfolio {
	now := time.Now()
	return &Portfolio{
		ID:            id,
		Name:          name,
		OwnerID:       ownerID,
		Public:        public,
		Description:   description,
		Positions:     make(map[string]Position),
		WatchedStocks: make(map[string]bool),
		Strategies:    make(map[string]Strategy),
		Targets:       make(map[string]float64),
		Ledger:        Ledger{NetValues: []float64{0}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks the portfolio's own field constraints.
func (p *Portfolio) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return domain.Validation("portfolio name is required")
	}
	if len(name) > MaxPortfolioNameLen {
		return domain.Validation("portfolio name exceeds %d characters", MaxPortfolioNameLen)
	}
	if len(p.Description) > MaxPortfolioDescLen {
		return domain.Validation("portfolio description exceeds %d characters", MaxPortfolioDescLen)
	}
	return nil
}

// EnsureMaps initializes nil sub-maps after unmarshalling.
func (p *Portfolio) EnsureMaps() {
	if p.Positions == nil {
		p.Positions = make(map[string]Position)
	}
	if p.WatchedStocks == nil {
		p.WatchedStocks = make(map[string]bool)
	}
	if p.Strategies == nil {
		p.Strategies = make(map[string]Strategy)
	}
	if p.Targets == nil {
		p.Targets = make(map[string]float64)
	}
	if len(p.Ledger.NetValues) == 0 {
		p.Ledger.NetValues = []float64{0}
	}
}

// --- Capability gate ---

// CanRead reports whether the principal may read this portfolio: public
// portfolios always, private ones only to their owner.
func (p *Portfolio) CanRead(principal *common.Principal) bool {
	if p.Public {
		return true
	}
	return principal != nil && principal.UserID == p.OwnerID
}

// CanWrite reports whether the principal may mutate this portfolio.
func (p *Portfolio) CanWrite(principal *common.Principal) bool {
	return principal != nil && principal.UserID == p.OwnerID
}

// --- Position ledger ---

// ApplyBuy folds a buy or sell into the position for stockID and returns
// the resulting position (removed=true when the position closed flat).
//
// The average cost is a volume-weighted mean, not realized P&L accounting:
// closing part of a position at a different price does not realize gains,
// it only re-weights the remaining cost basis. That is a deliberate
// modeling simplification carried over from the ledger design.
func (p *Portfolio) ApplyBuy(stockID string, price float64, deltaCount int64) (Position, bool, error) {
	if deltaCount == 0 {
		return Position{}, false, domain.Validation("delta count must not be zero")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return Position{}, false, domain.Validation("price must be a non-negative finite number")
	}

	existing, ok := p.Positions[stockID]
	if !ok {
		if price == 0 && deltaCount < 0 {
			return Position{}, false, domain.Validation("cannot reduce a position that does not exist")
		}
		pos := Position{StockID: stockID, AverageCost: price, ShareCount: deltaCount}
		p.Positions[stockID] = pos
		p.touch()
		return pos, false, nil
	}

	newCount := existing.ShareCount + deltaCount
	if newCount == 0 {
		// Flat position: no average is defined, so the entry is removed.
		delete(p.Positions, stockID)
		p.touch()
		return Position{StockID: stockID}, true, nil
	}

	newCost := (float64(existing.ShareCount)*existing.AverageCost + float64(deltaCount)*price) / float64(newCount)
	pos := Position{StockID: stockID, AverageCost: newCost, ShareCount: newCount}
	p.Positions[stockID] = pos
	p.touch()
	return pos, false, nil
}

// --- Watch registry ---

// ToggleWatch flips watch-list membership for stockID and returns true
// when the stock was added, false when removed. Two toggles restore the
// prior state exactly.
func (p *Portfolio) ToggleWatch(stockID string) bool {
	if p.WatchedStocks[stockID] {
		delete(p.WatchedStocks, stockID)
		p.touch()
		return false
	}
	p.WatchedStocks[stockID] = true
	p.touch()
	return true
}

// IsWatching reports watch-list membership.
func (p *Portfolio) IsWatching(stockID string) bool {
	return p.WatchedStocks[stockID]
}

// --- Target price aggregator ---

// SetTarget records a target price for stockID, returning the replaced
// price when one existed so the caller can fold the swap into the stock's
// running target statistics.
func (p *Portfolio) SetTarget(stockID string, price float64) (oldPrice float64, replaced bool, err error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, false, domain.Validation("target price must be a positive finite number")
	}
	oldPrice, replaced = p.Targets[stockID]
	p.Targets[stockID] = price
	p.touch()
	return oldPrice, replaced, nil
}

// RemoveTarget deletes the target for stockID, returning the removed
// price. It is an error when no target exists for the pair.
func (p *Portfolio) RemoveTarget(stockID string) (float64, error) {
	price, ok := p.Targets[stockID]
	if !ok {
		return 0, domain.NotFound("no target exists for stock %s", stockID)
	}
	delete(p.Targets, stockID)
	p.touch()
	return price, nil
}

// --- Contribution ledger ---

// RecordContribution appends a contribution to the ledger and pushes the
// projected net value as the new series head. A withdrawal that would
// drive the net value negative is rejected with no mutation.
func (p *Portfolio) RecordContribution(amount float64, timestamp time.Time) (*Contribution, error) {
	if amount == 0 {
		return nil, domain.Validation("contribution amount must not be zero")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, domain.Validation("contribution amount must be finite")
	}

	projected := p.Ledger.CurrentNetValue() + amount
	if amount < 0 && projected < 0 {
		return nil, domain.InsufficientFunds("withdrawal of %.2f exceeds available funds %.2f", -amount, p.Ledger.CurrentNetValue())
	}

	contr := Contribution{Timestamp: timestamp, Amount: amount}
	p.Ledger.Contributions = append(p.Ledger.Contributions, contr)

	// Prepend the new head; history is retained up to the window.
	values := make([]float64, 0, len(p.Ledger.NetValues)+1)
	values = append(values, projected)
	values = append(values, p.Ledger.NetValues...)
	if len(values) > NetValueRetention {
		values = values[:NetValueRetention]
	}
	p.Ledger.NetValues = values
	p.touch()
	return &contr, nil
}

// --- Strategy registry ---

// UpsertStrategy replaces any strategy with the same tag (last-write-wins
// on the full record). Stock-ID existence is validated by the caller
// before this is invoked, so a failed validation never disturbs the
// prior strategy.
func (p *Portfolio) UpsertStrategy(strat Strategy) error {
	if err := strat.Validate(); err != nil {
		return err
	}
	p.Strategies[strat.Tag] = strat
	p.touch()
	return nil
}

// DeleteStrategy removes the strategy with the given tag. Deleting an
// absent tag is a no-op, not an error; the return reports whether a
// strategy was actually removed.
func (p *Portfolio) DeleteStrategy(tag string) bool {
	if _, ok := p.Strategies[tag]; !ok {
		return false
	}
	delete(p.Strategies, tag)
	p.touch()
	return true
}

func (p *Portfolio) touch() {
	p.UpdatedAt = time.Now()
}

// PortfolioSummary is the compact read model for list and summary views.
type PortfolioSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	OwnerID  string  `json:"owner_id"`
	NetValue float64 `json:"net_value"`
}

// Summary returns the compact read model for this portfolio.
func (p *Portfolio) Summary() PortfolioSummary {
	return PortfolioSummary{
		ID:       p.ID,
		Name:     p.Name,
		OwnerID:  p.OwnerID,
		NetValue: p.Ledger.CurrentNetValue(),
	}
}

package models

import (
	"strings"
	"time"

	"github.com/foliohq/folio/internal/domain"
)

// TargetStats is the running mean of target prices set on a stock across
// all portfolios. Average is always Sum / max(1, Count); with no live
// targets it is 0, never a division by zero.
type TargetStats struct {
	Sum     float64 `json:"sum"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// Stock is the shared per-stock document. Its aggregate fields
// (NetPosition, WatchCount, TargetStats) are contributed to by every
// portfolio referencing the stock and are mutated only through ledger
// operations, never directly by a client. Version is the compare-and-swap
// stamp: every aggregate save must match the loaded version.
type Stock struct {
	ID          string      `json:"id"`
	Ticker      string      `json:"ticker"`
	Name        string      `json:"name"`
	Industry    string      `json:"industry"`
	NetPosition []int64     `json:"net_position"` // newest-first, index 0 = current
	WatchCount  int64       `json:"watch_count"`
	TargetStats TargetStats `json:"target_stats"`
	Version     int64       `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewStock creates a stock with zeroed aggregates.
func NewStock(id, ticker, name, industry string) *Stock {
	now := time.Now()
	return &Stock{
		ID:          id,
		Ticker:      strings.ToUpper(strings.TrimSpace(ticker)),
		Name:        name,
		Industry:    industry,
		NetPosition: []int64{0},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the stock's field constraints.
func (s *Stock) Validate() error {
	if strings.TrimSpace(s.Ticker) == "" {
		return domain.Validation("stock ticker is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return domain.Validation("stock name is required")
	}
	if strings.TrimSpace(s.Industry) == "" {
		return domain.Validation("stock industry is required")
	}
	return nil
}

// CurrentNetPosition returns the head of the net-position series.
func (s *Stock) CurrentNetPosition() int64 {
	if len(s.NetPosition) == 0 {
		return 0
	}
	return s.NetPosition[0]
}

// StockDelta is one portfolio operation's contribution to a stock's
// aggregates. Deltas are applied under CAS and reversed to compensate
// when the paired portfolio write fails.
type StockDelta struct {
	NetPosition int64
	WatchCount  int64
	TargetSum   float64
	TargetCount int64
}

// IsZero reports whether the delta changes nothing.
func (d StockDelta) IsZero() bool {
	return d.NetPosition == 0 && d.WatchCount == 0 && d.TargetSum == 0 && d.TargetCount == 0
}

// Reverse returns the compensating delta.
func (d StockDelta) Reverse() StockDelta {
	return StockDelta{
		NetPosition: -d.NetPosition,
		WatchCount:  -d.WatchCount,
		TargetSum:   -d.TargetSum,
		TargetCount: -d.TargetCount,
	}
}

// Apply folds the delta into the stock's aggregates and recomputes the
// target average. The watch count never goes below zero and the target
// sum is reset when the last target is removed so repeated add/remove
// cycles cannot accumulate float residue.
func (s *Stock) Apply(d StockDelta) {
	if len(s.NetPosition) == 0 {
		s.NetPosition = []int64{0}
	}
	s.NetPosition[0] += d.NetPosition

	s.WatchCount += d.WatchCount
	if s.WatchCount < 0 {
		s.WatchCount = 0
	}

	s.TargetStats.Sum += d.TargetSum
	s.TargetStats.Count += d.TargetCount
	if s.TargetStats.Count <= 0 {
		s.TargetStats.Count = 0
		s.TargetStats.Sum = 0
		s.TargetStats.Average = 0
	} else {
		s.TargetStats.Average = s.TargetStats.Sum / float64(s.TargetStats.Count)
	}

	s.UpdatedAt = time.Now()
}

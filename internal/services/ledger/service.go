// Package ledger implements the portfolio ledger engine: position
// buys/sells, watch toggles, target prices, contributions, and
// strategies. Operations touching a stock's shared aggregates write the
// stock first under CAS, then the portfolio, and compensate the stock
// with a reverse delta when the portfolio write fails, so a caller never
// observes a half-applied operation.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.LedgerService = (*Service)(nil)

// Service implements LedgerService
type Service struct {
	storage interfaces.StorageManager
	stocks  interfaces.StockService
	logger  *common.Logger
}

// NewService creates a new ledger service
func NewService(storage interfaces.StorageManager, stocks interfaces.StockService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		stocks:  stocks,
		logger:  logger,
	}
}

// loadForWrite fetches the portfolio and enforces the write capability.
func (s *Service) loadForWrite(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	portfolio, err := s.storage.PortfolioStore().Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if !portfolio.CanWrite(common.PrincipalFromContext(ctx)) {
		return nil, domain.Unauthorized("not authorized to modify portfolio %s", portfolioID)
	}
	return portfolio, nil
}

// savePortfolioOrCompensate writes the portfolio after the stock
// aggregate has already absorbed delta. On failure the stock delta is
// reversed so the aggregate invariants keep holding; the caller can then
// safely retry the whole operation.
func (s *Service) savePortfolioOrCompensate(ctx context.Context, portfolio *models.Portfolio, stockID string, delta models.StockDelta) error {
	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		if _, rerr := s.stocks.ApplyDelta(ctx, stockID, delta.Reverse()); rerr != nil {
			s.logger.Error().
				Err(rerr).
				Str("portfolio", portfolio.ID).
				Str("stock", stockID).
				Msg("Failed to reverse stock delta after portfolio save failure")
		}
		return fmt.Errorf("failed to save portfolio %s: %w", portfolio.ID, err)
	}
	return nil
}

// ApplyBuy folds a buy or sell into the portfolio position and mirrors
// the share delta into the stock's net position aggregate.
func (s *Service) ApplyBuy(ctx context.Context, portfolioID, stockID string, price float64, deltaCount int64) (*interfaces.BuyResult, error) {
	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	exists, err := s.stocks.Exists(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NotFound("stock %s not found", stockID)
	}

	position, removed, err := portfolio.ApplyBuy(stockID, price, deltaCount)
	if err != nil {
		return nil, err
	}

	delta := models.StockDelta{NetPosition: deltaCount}
	stock, err := s.stocks.ApplyDelta(ctx, stockID, delta)
	if err != nil {
		return nil, err
	}

	if err := s.savePortfolioOrCompensate(ctx, portfolio, stockID, delta); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("portfolio", portfolioID).
		Str("stock", stockID).
		Int64("delta", deltaCount).
		Bool("removed", removed).
		Msg("Buy applied")

	return &interfaces.BuyResult{
		Portfolio: portfolio,
		Position:  position,
		Removed:   removed,
		Stock:     stock,
	}, nil
}

// ToggleWatch flips watch membership and mirrors the change into the
// stock's watch count. The operation is its own inverse.
func (s *Service) ToggleWatch(ctx context.Context, portfolioID, stockID string) (*interfaces.WatchResult, error) {
	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	exists, err := s.stocks.Exists(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NotFound("stock %s not found", stockID)
	}

	watching := portfolio.ToggleWatch(stockID)
	delta := models.StockDelta{WatchCount: -1}
	if watching {
		delta.WatchCount = 1
	}

	stock, err := s.stocks.ApplyDelta(ctx, stockID, delta)
	if err != nil {
		return nil, err
	}

	if err := s.savePortfolioOrCompensate(ctx, portfolio, stockID, delta); err != nil {
		return nil, err
	}

	return &interfaces.WatchResult{
		Portfolio: portfolio,
		Watching:  watching,
		Stock:     stock,
	}, nil
}

// SetTarget records a target price and folds it into the stock's running
// target statistics, first backing out any replaced target.
func (s *Service) SetTarget(ctx context.Context, portfolioID, stockID string, price float64) (*interfaces.TargetResult, error) {
	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	exists, err := s.stocks.Exists(ctx, stockID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.NotFound("stock %s not found", stockID)
	}

	oldPrice, replaced, err := portfolio.SetTarget(stockID, price)
	if err != nil {
		return nil, err
	}

	// A replacement swaps the contribution in place: count is unchanged,
	// only the sum moves by the price difference.
	delta := models.StockDelta{TargetSum: price, TargetCount: 1}
	if replaced {
		delta = models.StockDelta{TargetSum: price - oldPrice}
	}

	stock, err := s.stocks.ApplyDelta(ctx, stockID, delta)
	if err != nil {
		return nil, err
	}

	if err := s.savePortfolioOrCompensate(ctx, portfolio, stockID, delta); err != nil {
		return nil, err
	}

	return &interfaces.TargetResult{Portfolio: portfolio, Stock: stock}, nil
}

// RemoveTarget deletes the portfolio's target for the stock and backs it
// out of the stock's running statistics. Removing an absent target is an
// error.
func (s *Service) RemoveTarget(ctx context.Context, portfolioID, stockID string) (*interfaces.TargetResult, error) {
	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	price, err := portfolio.RemoveTarget(stockID)
	if err != nil {
		return nil, err
	}

	delta := models.StockDelta{TargetSum: -price, TargetCount: -1}
	stock, err := s.stocks.ApplyDelta(ctx, stockID, delta)
	if err != nil {
		return nil, err
	}

	if err := s.savePortfolioOrCompensate(ctx, portfolio, stockID, delta); err != nil {
		return nil, err
	}

	return &interfaces.TargetResult{Portfolio: portfolio, Stock: stock}, nil
}

// RecordContribution appends a deposit or withdrawal to the contribution
// ledger. Withdrawals violating solvency are rejected with no mutation.
// This is a single-document operation; no stock is involved.
func (s *Service) RecordContribution(ctx context.Context, portfolioID string, amount float64) (*interfaces.ContributionResult, error) {
	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	contribution, err := portfolio.RecordContribution(amount, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio %s: %w", portfolioID, err)
	}

	s.logger.Debug().
		Str("portfolio", portfolioID).
		Float64("amount", amount).
		Float64("net_value", portfolio.Ledger.CurrentNetValue()).
		Msg("Contribution recorded")

	return &interfaces.ContributionResult{
		Contribution: contribution,
		Portfolio:    portfolio,
		NetValue:     portfolio.Ledger.CurrentNetValue(),
	}, nil
}

// UpsertStrategy replaces any strategy with the same tag. Every stock id
// is validated before the portfolio is touched, so a failed validation
// leaves the prior strategy intact.
func (s *Service) UpsertStrategy(ctx context.Context, portfolioID string, strategy models.Strategy) (*models.Portfolio, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}

	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	for _, stockID := range strategy.StockIDs {
		exists, err := s.stocks.Exists(ctx, stockID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.NotFound("stock %s not found", stockID)
		}
	}

	if err := portfolio.UpsertStrategy(strategy); err != nil {
		return nil, err
	}

	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio %s: %w", portfolioID, err)
	}

	s.logger.Debug().
		Str("portfolio", portfolioID).
		Str("tag", strategy.Tag).
		Msg("Strategy upserted")

	return portfolio, nil
}

// DeleteStrategy removes the strategy with the given tag. Deleting an
// absent tag is a deliberate no-op.
func (s *Service) DeleteStrategy(ctx context.Context, portfolioID, tag string) (*models.Portfolio, error) {
	portfolio, err := s.loadForWrite(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	if !portfolio.DeleteStrategy(tag) {
		return portfolio, nil
	}

	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio %s: %w", portfolioID, err)
	}

	return portfolio, nil
}

// Package portfolio manages portfolio lifecycle and read models.
// Reads are gated on CanRead (public or owner), writes on CanWrite
// (owner only).
package portfolio

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.PortfolioService = (*Service)(nil)

// Service implements PortfolioService
type Service struct {
	storage interfaces.StorageManager
	stocks  interfaces.StockService
	logger  *common.Logger
}

// NewService creates a new portfolio service
func NewService(storage interfaces.StorageManager, stocks interfaces.StockService, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		stocks:  stocks,
		logger:  logger,
	}
}

// Create builds a new portfolio owned by the calling principal.
func (s *Service) Create(ctx context.Context, name, description string, public bool) (*models.Portfolio, error) {
	principal := common.PrincipalFromContext(ctx)
	if principal == nil {
		return nil, domain.Unauthorized("authentication required to create a portfolio")
	}

	portfolio := models.NewPortfolio(fmt.Sprintf("pf_%s", uuid.New().String()[:8]), name, principal.UserID, description, public)
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.Info().
		Str("portfolio", portfolio.ID).
		Str("owner", principal.UserID).
		Bool("public", public).
		Msg("Portfolio created")

	return portfolio, nil
}

// Get returns the portfolio if the principal may read it.
func (s *Service) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	portfolio, err := s.storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !portfolio.CanRead(common.PrincipalFromContext(ctx)) {
		return nil, domain.Unauthorized("not authorized to read portfolio %s", id)
	}
	return portfolio, nil
}

// List returns the public directory of portfolio summaries.
func (s *Service) List(ctx context.Context) ([]models.PortfolioSummary, error) {
	return s.storage.PortfolioStore().List(ctx)
}

// ListOwned returns summaries of the calling principal's own portfolios,
// public and private alike.
func (s *Service) ListOwned(ctx context.Context) ([]models.PortfolioSummary, error) {
	principal := common.PrincipalFromContext(ctx)
	if principal == nil {
		return nil, domain.Unauthorized("authentication required to list owned portfolios")
	}
	return s.storage.PortfolioStore().ListByOwner(ctx, principal.UserID)
}

// Update replaces the mutable top-level fields. Positions, watches,
// targets, strategies and the ledger only change through their own
// operations.
func (s *Service) Update(ctx context.Context, id string, update interfaces.PortfolioUpdate) (*models.Portfolio, error) {
	portfolio, err := s.storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !portfolio.CanWrite(common.PrincipalFromContext(ctx)) {
		return nil, domain.Unauthorized("not authorized to modify portfolio %s", id)
	}

	portfolio.Name = update.Name
	portfolio.Public = update.Public
	portfolio.Description = update.Description
	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio %s: %w", id, err)
	}

	return portfolio, nil
}

// Delete removes the portfolio. Only the owner may delete. The
// portfolio's contributions to shared stock aggregates (net position,
// watch count, target stats) are backed out after the document delete;
// a stock that no longer exists is skipped.
func (s *Service) Delete(ctx context.Context, id string) error {
	portfolio, err := s.storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return err
	}
	if !portfolio.CanWrite(common.PrincipalFromContext(ctx)) {
		return domain.Unauthorized("not authorized to delete portfolio %s", id)
	}

	if err := s.storage.PortfolioStore().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}

	for stockID, delta := range aggregateBackout(portfolio) {
		if _, err := s.stocks.ApplyDelta(ctx, stockID, delta); err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				continue
			}
			s.logger.Error().Err(err).
				Str("portfolio", id).
				Str("stock", stockID).
				Msg("Failed to back out stock aggregates on portfolio delete")
		}
	}

	s.logger.Info().Str("portfolio", id).Msg("Portfolio deleted")
	return nil
}

// aggregateBackout folds the portfolio's positions, watches, and targets
// into one reversing delta per stock.
func aggregateBackout(portfolio *models.Portfolio) map[string]models.StockDelta {
	deltas := make(map[string]models.StockDelta)

	for stockID, position := range portfolio.Positions {
		d := deltas[stockID]
		d.NetPosition -= position.ShareCount
		deltas[stockID] = d
	}
	for stockID, watched := range portfolio.WatchedStocks {
		if !watched {
			continue
		}
		d := deltas[stockID]
		d.WatchCount--
		deltas[stockID] = d
	}
	for stockID, price := range portfolio.Targets {
		d := deltas[stockID]
		d.TargetSum -= price
		d.TargetCount--
		deltas[stockID] = d
	}
	return deltas
}

// Summary returns the condensed read model for the portfolio.
func (s *Service) Summary(ctx context.Context, id string) (*models.PortfolioSummary, error) {
	portfolio, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := portfolio.Summary()
	return &summary, nil
}

// ToggleFollow adds or removes the calling principal as a follower of
// the portfolio. The follow set lives on the user record; the portfolio
// carries only the derived follower count.
func (s *Service) ToggleFollow(ctx context.Context, id string) (*interfaces.FollowResult, error) {
	principal := common.PrincipalFromContext(ctx)
	if principal == nil {
		return nil, domain.Unauthorized("authentication required to follow a portfolio")
	}

	portfolio, err := s.storage.PortfolioStore().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !portfolio.CanRead(principal) {
		return nil, domain.Unauthorized("not authorized to read portfolio %s", id)
	}

	user, err := s.storage.InternalStore().GetUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	following := user.ToggleFollow(id)
	if following {
		portfolio.FollowerCount++
	} else if portfolio.FollowerCount > 0 {
		portfolio.FollowerCount--
	}

	if err := s.storage.InternalStore().SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}
	if err := s.storage.PortfolioStore().Save(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio %s: %w", id, err)
	}

	s.logger.Debug().
		Str("portfolio", id).
		Str("user", user.ID).
		Bool("following", following).
		Msg("Follow toggled")

	return &interfaces.FollowResult{
		Following:     following,
		FollowerCount: portfolio.FollowerCount,
	}, nil
}

// RenderNetValueChart renders the portfolio's net value history as a PNG.
func (s *Service) RenderNetValueChart(ctx context.Context, id string) ([]byte, error) {
	portfolio, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return RenderNetValueChart(portfolio)
}

// Package stock manages the shared stock records and their
// reference-counted aggregates. Aggregate mutation goes through a CAS
// retry loop so concurrent portfolio operations never lose updates.
package stock

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
)

// casAttempts bounds the CAS retry loop. Contention on a single stock is
// short-lived, so a handful of reload-and-retry rounds is enough.
const casAttempts = 3

// Compile-time interface check
var _ interfaces.StockService = (*Service)(nil)

// Service implements StockService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new stock service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Create registers a new stock. Tickers are unique; a duplicate is a
// validation failure, not a silent upsert.
func (s *Service) Create(ctx context.Context, ticker, name, industry string) (*models.Stock, error) {
	stock := models.NewStock(fmt.Sprintf("st_%s", uuid.New().String()[:8]), ticker, name, industry)
	if err := stock.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.storage.StockStore().GetByTicker(ctx, stock.Ticker)
	if err != nil && domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Validation("stock with ticker %s already exists", stock.Ticker)
	}

	if err := s.storage.StockStore().Create(ctx, stock); err != nil {
		return nil, fmt.Errorf("failed to create stock %s: %w", stock.Ticker, err)
	}

	s.logger.Info().
		Str("stock", stock.ID).
		Str("ticker", stock.Ticker).
		Msg("Stock created")

	return stock, nil
}

// Get returns the stock by id
func (s *Service) Get(ctx context.Context, id string) (*models.Stock, error) {
	return s.storage.StockStore().Get(ctx, id)
}

// GetByTicker returns the stock with the given ticker, case-insensitive.
func (s *Service) GetByTicker(ctx context.Context, ticker string) (*models.Stock, error) {
	return s.storage.StockStore().GetByTicker(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
}

// List returns all stocks, optionally filtered by industry.
func (s *Service) List(ctx context.Context, industry string) ([]*models.Stock, error) {
	if industry != "" {
		return s.storage.StockStore().ListByIndustry(ctx, industry)
	}
	return s.storage.StockStore().List(ctx)
}

// Exists reports whether a stock with the given id is registered.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.storage.StockStore().Get(ctx, id)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ApplyDelta folds delta into the stock's aggregates. Each attempt
// reloads the stock, applies the delta in memory, and writes back
// conditioned on the loaded version; a version miss means another writer
// got there first and the attempt is retried against fresh state.
func (s *Service) ApplyDelta(ctx context.Context, stockID string, delta models.StockDelta) (*models.Stock, error) {
	if delta.IsZero() {
		return s.storage.StockStore().Get(ctx, stockID)
	}

	var lastErr error
	for attempt := 1; attempt <= casAttempts; attempt++ {
		stock, err := s.storage.StockStore().Get(ctx, stockID)
		if err != nil {
			return nil, err
		}

		expected := stock.Version
		stock.Apply(delta)

		if err := s.storage.StockStore().SaveVersioned(ctx, stock, expected); err != nil {
			if domain.KindOf(err) == domain.KindConflict {
				s.logger.Debug().
					Str("stock", stockID).
					Int64("expected_version", expected).
					Int("attempt", attempt).
					Msg("Stock aggregate version conflict, retrying")
				lastErr = err
				continue
			}
			return nil, err
		}
		return stock, nil
	}

	return nil, domain.Wrap(domain.KindConflict, lastErr, "stock %s aggregate contended after %d attempts", stockID, casAttempts)
}

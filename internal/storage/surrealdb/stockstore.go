package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/models"
)

// StockStore implements interfaces.StockStore using SurrealDB. Stock
// documents carry cross-portfolio aggregates, so every save after create
// goes through SaveVersioned: the update lands only when the stored
// version still matches the version the caller loaded. Lost updates
// surface as Conflict errors instead of silently overwriting.
type StockStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewStockStore creates a new StockStore.
func NewStockStore(db *surrealdb.DB, logger *common.Logger) *StockStore {
	return &StockStore{db: db, logger: logger}
}

func (s *StockStore) Get(ctx context.Context, id string) (*models.Stock, error) {
	rec, err := surrealdb.Select[models.StockRecord](ctx, s.db, surrealmodels.NewRecordID("stock", id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.NotFound("stock %s not found", id)
		}
		return nil, fmt.Errorf("failed to select stock: %w", err)
	}
	if rec == nil || rec.Value == "" {
		return nil, domain.NotFound("stock %s not found", id)
	}
	return unmarshalStock(rec)
}

func (s *StockStore) GetByTicker(ctx context.Context, ticker string) (*models.Stock, error) {
	sql := "SELECT * FROM stock WHERE ticker = $ticker LIMIT 1"
	vars := map[string]any{"ticker": strings.ToUpper(strings.TrimSpace(ticker))}

	results, err := surrealdb.Query[[]models.StockRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock by ticker: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, domain.NotFound("stock with ticker %s not found", ticker)
	}
	return unmarshalStock(&(*results)[0].Result[0])
}

func (s *StockStore) List(ctx context.Context) ([]*models.Stock, error) {
	sql := "SELECT * FROM stock ORDER BY ticker ASC"
	return s.listStocks(ctx, sql, nil)
}

func (s *StockStore) ListByIndustry(ctx context.Context, industry string) ([]*models.Stock, error) {
	sql := "SELECT * FROM stock WHERE industry = $industry ORDER BY ticker ASC"
	vars := map[string]any{"industry": industry}
	return s.listStocks(ctx, sql, vars)
}

func (s *StockStore) listStocks(ctx context.Context, sql string, vars map[string]any) ([]*models.Stock, error) {
	results, err := surrealdb.Query[[]models.StockRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	var stocks []*models.Stock
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			stock, err := unmarshalStock(&(*results)[0].Result[i])
			if err != nil {
				return nil, err
			}
			stocks = append(stocks, stock)
		}
	}
	return stocks, nil
}

// Create stores a brand-new stock with version 1. It fails when a record
// with the same id already exists.
func (s *StockStore) Create(ctx context.Context, stock *models.Stock) error {
	stock.Version = 1
	rec, err := stockRecord(stock)
	if err != nil {
		return err
	}

	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("stock", stock.ID),
		"record": rec,
	}
	if _, err := surrealdb.Query[[]models.StockRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to create stock %s: %w", stock.ID, err)
	}
	return nil
}

// SaveVersioned performs the compare-and-swap write: the update applies
// only where the stored version equals expectedVersion. An empty result
// means another writer won the race; the caller reloads and retries.
func (s *StockStore) SaveVersioned(ctx context.Context, stock *models.Stock, expectedVersion int64) error {
	stock.Version = expectedVersion + 1
	rec, err := stockRecord(stock)
	if err != nil {
		stock.Version = expectedVersion
		return err
	}

	sql := "UPDATE $rid CONTENT $record WHERE version = $expected"
	vars := map[string]any{
		"rid":      surrealmodels.NewRecordID("stock", stock.ID),
		"record":   rec,
		"expected": expectedVersion,
	}

	results, err := surrealdb.Query[[]models.StockRecord](ctx, s.db, sql, vars)
	if err != nil {
		stock.Version = expectedVersion
		return fmt.Errorf("failed to save stock %s: %w", stock.ID, err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		stock.Version = expectedVersion
		return domain.Conflict("stock %s was modified concurrently", stock.ID)
	}
	return nil
}

func (s *StockStore) Delete(ctx context.Context, id string) error {
	if _, err := surrealdb.Delete[models.StockRecord](ctx, s.db, surrealmodels.NewRecordID("stock", id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete stock %s: %w", id, err)
	}
	return nil
}

func stockRecord(stock *models.Stock) (*models.StockRecord, error) {
	data, err := json.Marshal(stock)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stock %s: %w", stock.ID, err)
	}
	return &models.StockRecord{
		StockID:  stock.ID,
		Ticker:   stock.Ticker,
		Industry: stock.Industry,
		Version:  stock.Version,
		Value:    string(data),
		DateTime: time.Now(),
	}, nil
}

func unmarshalStock(rec *models.StockRecord) (*models.Stock, error) {
	var stock models.Stock
	if err := json.Unmarshal([]byte(rec.Value), &stock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stock %s: %w", rec.StockID, err)
	}
	// The envelope version is authoritative; the embedded copy may lag
	// one CAS round behind.
	stock.Version = rec.Version
	return &stock, nil
}

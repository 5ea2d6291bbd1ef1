package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/models"
)

// PortfolioStore implements interfaces.PortfolioStore using SurrealDB.
// Portfolio writes are last-write-wins; the document is owned by a single
// user and carries no cross-entity aggregates.
type PortfolioStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewPortfolioStore creates a new PortfolioStore.
func NewPortfolioStore(db *surrealdb.DB, logger *common.Logger) *PortfolioStore {
	return &PortfolioStore{db: db, logger: logger}
}

func (s *PortfolioStore) Get(ctx context.Context, id string) (*models.Portfolio, error) {
	rec, err := surrealdb.Select[models.PortfolioRecord](ctx, s.db, surrealmodels.NewRecordID("portfolio", id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, domain.NotFound("portfolio %s not found", id)
		}
		return nil, fmt.Errorf("failed to select portfolio: %w", err)
	}
	if rec == nil || rec.Value == "" {
		return nil, domain.NotFound("portfolio %s not found", id)
	}

	var portfolio models.Portfolio
	if err := json.Unmarshal([]byte(rec.Value), &portfolio); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio %s: %w", id, err)
	}
	portfolio.EnsureMaps()
	return &portfolio, nil
}

func (s *PortfolioStore) Save(ctx context.Context, portfolio *models.Portfolio) error {
	data, err := json.Marshal(portfolio)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio %s: %w", portfolio.ID, err)
	}

	rec := &models.PortfolioRecord{
		PortfolioID: portfolio.ID,
		OwnerID:     portfolio.OwnerID,
		Name:        portfolio.Name,
		Public:      portfolio.Public,
		NetValue:    portfolio.Ledger.CurrentNetValue(),
		Value:       string(data),
		DateTime:    time.Now(),
	}

	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("portfolio", portfolio.ID),
		"record": rec,
	}
	if _, err := surrealdb.Query[[]models.PortfolioRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save portfolio %s: %w", portfolio.ID, err)
	}
	return nil
}

func (s *PortfolioStore) Delete(ctx context.Context, id string) error {
	if _, err := surrealdb.Delete[models.PortfolioRecord](ctx, s.db, surrealmodels.NewRecordID("portfolio", id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	return nil
}

// List returns the public directory; private portfolios never appear.
func (s *PortfolioStore) List(ctx context.Context) ([]models.PortfolioSummary, error) {
	sql := "SELECT * FROM portfolio WHERE public = true ORDER BY name ASC"
	return s.listSummaries(ctx, sql, nil)
}

func (s *PortfolioStore) ListByOwner(ctx context.Context, ownerID string) ([]models.PortfolioSummary, error) {
	sql := "SELECT * FROM portfolio WHERE owner_id = $owner_id ORDER BY name ASC"
	vars := map[string]any{"owner_id": ownerID}
	return s.listSummaries(ctx, sql, vars)
}

// listSummaries reads envelope fields only; the JSON document is never
// unmarshalled on list paths.
func (s *PortfolioStore) listSummaries(ctx context.Context, sql string, vars map[string]any) ([]models.PortfolioSummary, error) {
	results, err := surrealdb.Query[[]models.PortfolioRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	var summaries []models.PortfolioSummary
	if results != nil && len(*results) > 0 {
		for _, rec := range (*results)[0].Result {
			summaries = append(summaries, models.PortfolioSummary{
				ID:       rec.PortfolioID,
				Name:     rec.Name,
				OwnerID:  rec.OwnerID,
				NetValue: rec.NetValue,
			})
		}
	}
	return summaries, nil
}

// Package interfaces defines service and storage contracts for Folio
package interfaces

import (
	"context"

	"github.com/foliohq/folio/internal/models"
)

// StorageManager coordinates the storage backends: the document store for
// portfolio and stock documents, and the internal store for accounts.
type StorageManager interface {
	PortfolioStore() PortfolioStore
	StockStore() StockStore
	InternalStore() InternalStore

	// Lifecycle
	Close() error
}

// PortfolioStore persists portfolio documents. Portfolio writes are
// last-write-wins: each document is owned by one user and operations on
// it are not concurrently interleaved in the baseline design.
type PortfolioStore interface {
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	Save(ctx context.Context, portfolio *models.Portfolio) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.PortfolioSummary, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.PortfolioSummary, error)
}

// StockStore persists stock documents. Aggregate-bearing saves go through
// SaveVersioned: the write succeeds only when the stored version still
// matches expectedVersion, otherwise a Conflict error is returned and the
// caller reloads and retries.
type StockStore interface {
	Get(ctx context.Context, id string) (*models.Stock, error)
	GetByTicker(ctx context.Context, ticker string) (*models.Stock, error)
	List(ctx context.Context) ([]*models.Stock, error)
	ListByIndustry(ctx context.Context, industry string) ([]*models.Stock, error)
	Create(ctx context.Context, stock *models.Stock) error
	SaveVersioned(ctx context.Context, stock *models.Stock, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}

// InternalStore manages user accounts and system-level KV.
type InternalStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context) ([]string, error)

	GetSystemKV(ctx context.Context, key string) (string, error)
	SetSystemKV(ctx context.Context, key, value string) error

	Close() error
}

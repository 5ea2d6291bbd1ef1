// Package storage wires the concrete stores into a single StorageManager.
package storage

import (
	"fmt"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/storage/internaldb"
	"github.com/foliohq/folio/internal/storage/surrealdb"
)

// Manager combines the SurrealDB document stores (portfolio, stock) with
// the BadgerHold internal store (accounts, system KV).
type Manager struct {
	documents *surrealdb.Manager
	internal  *internaldb.Store
	logger    *common.Logger
}

// NewStorageManager initializes both backends from config.
func NewStorageManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	documents, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	internal, err := internaldb.NewStore(logger, config.Storage.InternalPath)
	if err != nil {
		documents.Close()
		return nil, fmt.Errorf("failed to initialize internal store: %w", err)
	}

	return &Manager{
		documents: documents,
		internal:  internal,
		logger:    logger,
	}, nil
}

func (m *Manager) PortfolioStore() interfaces.PortfolioStore {
	return m.documents.PortfolioStore()
}

func (m *Manager) StockStore() interfaces.StockStore {
	return m.documents.StockStore()
}

func (m *Manager) InternalStore() interfaces.InternalStore {
	return m.internal
}

func (m *Manager) Close() error {
	err := m.internal.Close()
	if derr := m.documents.Close(); derr != nil && err == nil {
		err = derr
	}
	return err
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)

// Package app wires configuration, storage, and services into a single
// application core shared by the server binary and tests.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/services/ledger"
	"github.com/foliohq/folio/internal/services/portfolio"
	"github.com/foliohq/folio/internal/services/stock"
	"github.com/foliohq/folio/internal/services/user"
	"github.com/foliohq/folio/internal/storage"
)

// App holds all initialized services and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	PortfolioService interfaces.PortfolioService
	LedgerService    interfaces.LedgerService
	StockService     interfaces.StockService
	UserService      interfaces.UserService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, and all services.
// configPath may be empty, in which case the default resolution logic is
// used: FOLIO_CONFIG, then folio.toml beside the binary, then
// config/folio.toml.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative internal storage path to binary directory
	if config.Storage.InternalPath != "" && !filepath.IsAbs(config.Storage.InternalPath) {
		config.Storage.InternalPath = filepath.Join(binDir, config.Storage.InternalPath)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	stockService := stock.NewService(storageManager, logger)
	ledgerService := ledger.NewService(storageManager, stockService, logger)
	portfolioService := portfolio.NewService(storageManager, stockService, logger)
	userService := user.NewService(storageManager, logger)

	logger.Info().
		Dur("startup", time.Since(startupStart)).
		Str("environment", config.Environment).
		Msg("Application initialized")

	return &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		PortfolioService: portfolioService,
		LedgerService:    ledgerService,
		StockService:     stockService,
		UserService:      userService,
		StartupTime:      startupStart,
	}, nil
}

// Close releases storage resources.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

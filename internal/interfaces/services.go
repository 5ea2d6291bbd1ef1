package interfaces

import (
	"context"

	"github.com/foliohq/folio/internal/models"
)

// PortfolioService manages portfolio lifecycle and read models. All
// operations resolve the principal from context and enforce the
// capability gate before touching state.
type PortfolioService interface {
	Create(ctx context.Context, name, description string, public bool) (*models.Portfolio, error)
	Get(ctx context.Context, id string) (*models.Portfolio, error)
	List(ctx context.Context) ([]models.PortfolioSummary, error)
	ListOwned(ctx context.Context) ([]models.PortfolioSummary, error)
	Update(ctx context.Context, id string, update PortfolioUpdate) (*models.Portfolio, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, id string) (*models.PortfolioSummary, error)
	ToggleFollow(ctx context.Context, id string) (*FollowResult, error)
	RenderNetValueChart(ctx context.Context, id string) ([]byte, error)
}

// FollowResult is the outcome of a ToggleFollow operation.
type FollowResult struct {
	Following     bool  `json:"following"`
	FollowerCount int64 `json:"follower_count"`
}

// PortfolioUpdate carries the only mutable top-level portfolio fields.
type PortfolioUpdate struct {
	Name        string `json:"name"`
	Public      bool   `json:"public"`
	Description string `json:"description"`
}

// LedgerService is the portfolio ledger engine: every operation is a
// coupled read-modify-write across one Portfolio and zero-or-one Stock
// records, with the stock aggregate written first under CAS and a
// compensating reverse delta applied when the portfolio write fails.
type LedgerService interface {
	ApplyBuy(ctx context.Context, portfolioID, stockID string, price float64, deltaCount int64) (*BuyResult, error)
	ToggleWatch(ctx context.Context, portfolioID, stockID string) (*WatchResult, error)
	SetTarget(ctx context.Context, portfolioID, stockID string, price float64) (*TargetResult, error)
	RemoveTarget(ctx context.Context, portfolioID, stockID string) (*TargetResult, error)
	RecordContribution(ctx context.Context, portfolioID string, amount float64) (*ContributionResult, error)
	UpsertStrategy(ctx context.Context, portfolioID string, strategy models.Strategy) (*models.Portfolio, error)
	DeleteStrategy(ctx context.Context, portfolioID, tag string) (*models.Portfolio, error)
}

// BuyResult is the outcome of an ApplyBuy operation.
type BuyResult struct {
	Portfolio *models.Portfolio `json:"portfolio"`
	Position  models.Position   `json:"position"`
	Removed   bool              `json:"removed"`
	Stock     *models.Stock     `json:"stock"`
}

// WatchResult is the outcome of a ToggleWatch operation.
type WatchResult struct {
	Portfolio *models.Portfolio `json:"portfolio"`
	Watching  bool              `json:"watching"`
	Stock     *models.Stock     `json:"stock"`
}

// TargetResult is the outcome of a SetTarget or RemoveTarget operation.
type TargetResult struct {
	Portfolio *models.Portfolio `json:"portfolio"`
	Stock     *models.Stock     `json:"stock"`
}

// ContributionResult is the outcome of a RecordContribution operation.
type ContributionResult struct {
	Contribution *models.Contribution `json:"contribution"`
	Portfolio    *models.Portfolio    `json:"portfolio"`
	NetValue     float64              `json:"net_value"`
}

// StockService manages the shared stock records and their reference-
// counted aggregates.
type StockService interface {
	Create(ctx context.Context, ticker, name, industry string) (*models.Stock, error)
	Get(ctx context.Context, id string) (*models.Stock, error)
	GetByTicker(ctx context.Context, ticker string) (*models.Stock, error)
	List(ctx context.Context, industry string) ([]*models.Stock, error)
	Exists(ctx context.Context, id string) (bool, error)

	// ApplyDelta folds one portfolio operation's contribution into the
	// stock's aggregates under a CAS retry loop. The returned stock is
	// the post-apply state.
	ApplyDelta(ctx context.Context, stockID string, delta models.StockDelta) (*models.Stock, error)
}

// UserService manages registration and authentication.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	Get(ctx context.Context, userID string) (*models.User, error)
}

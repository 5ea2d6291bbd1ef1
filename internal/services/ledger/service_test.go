package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
)

// --- Mock storage ---

type mockPortfolioStore struct {
	portfolios map[string]*models.Portfolio
	saveErr    error
	saves      int
}

func (m *mockPortfolioStore) Get(_ context.Context, id string) (*models.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok {
		return nil, domain.NotFound("portfolio %s not found", id)
	}
	return p, nil
}

func (m *mockPortfolioStore) Save(_ context.Context, p *models.Portfolio) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.portfolios[p.ID] = p
	m.saves++
	return nil
}

func (m *mockPortfolioStore) Delete(_ context.Context, id string) error {
	delete(m.portfolios, id)
	return nil
}

func (m *mockPortfolioStore) List(_ context.Context) ([]models.PortfolioSummary, error) {
	return nil, nil
}

func (m *mockPortfolioStore) ListByOwner(_ context.Context, _ string) ([]models.PortfolioSummary, error) {
	return nil, nil
}

type mockStorageManager struct {
	portfolioStore *mockPortfolioStore
}

func (m *mockStorageManager) PortfolioStore() interfaces.PortfolioStore { return m.portfolioStore }
func (m *mockStorageManager) StockStore() interfaces.StockStore         { return nil }
func (m *mockStorageManager) InternalStore() interfaces.InternalStore   { return nil }
func (m *mockStorageManager) Close() error                              { return nil }

// --- Mock stock service ---

type mockStockService struct {
	stocks   map[string]*models.Stock
	applied  []models.StockDelta
	applyErr error
}

func (m *mockStockService) Create(_ context.Context, _, _, _ string) (*models.Stock, error) {
	return nil, nil
}

func (m *mockStockService) Get(_ context.Context, id string) (*models.Stock, error) {
	s, ok := m.stocks[id]
	if !ok {
		return nil, domain.NotFound("stock %s not found", id)
	}
	return s, nil
}

func (m *mockStockService) GetByTicker(_ context.Context, _ string) (*models.Stock, error) {
	return nil, nil
}

func (m *mockStockService) List(_ context.Context, _ string) ([]*models.Stock, error) {
	return nil, nil
}

func (m *mockStockService) Exists(_ context.Context, id string) (bool, error) {
	_, ok := m.stocks[id]
	return ok, nil
}

func (m *mockStockService) ApplyDelta(_ context.Context, stockID string, delta models.StockDelta) (*models.Stock, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	s, ok := m.stocks[stockID]
	if !ok {
		return nil, domain.NotFound("stock %s not found", stockID)
	}
	s.Apply(delta)
	m.applied = append(m.applied, delta)
	return s, nil
}

// --- Fixture ---

func newFixture() (*Service, *mockPortfolioStore, *mockStockService) {
	portfolios := &mockPortfolioStore{portfolios: map[string]*models.Portfolio{
		"pf_1": models.NewPortfolio("pf_1", "Growth", "u_alice", "", true),
	}}
	stocks := &mockStockService{stocks: map[string]*models.Stock{
		"st_bhp": models.NewStock("st_bhp", "BHP", "BHP Group", "Materials"),
	}}
	svc := NewService(&mockStorageManager{portfolioStore: portfolios}, stocks, common.NewSilentLogger())
	return svc, portfolios, stocks
}

func ownerCtx() context.Context {
	return common.WithPrincipal(context.Background(), &common.Principal{UserID: "u_alice", Username: "alice"})
}

// --- ApplyBuy ---

func TestApplyBuy_UpdatesPortfolioAndStock(t *testing.T) {
	svc, portfolios, stocks := newFixture()

	result, err := svc.ApplyBuy(ownerCtx(), "pf_1", "st_bhp", 50.0, 100)
	if err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}
	if result.Position.ShareCount != 100 || result.Position.AverageCost != 50.0 {
		t.Errorf("position = %+v, want 100 @ 50", result.Position)
	}
	if result.Removed {
		t.Error("buy reported removed")
	}
	if result.Stock.CurrentNetPosition() != 100 {
		t.Errorf("stock net position = %d, want 100", result.Stock.CurrentNetPosition())
	}
	if portfolios.saves != 1 {
		t.Errorf("portfolio saves = %d, want 1", portfolios.saves)
	}
	if len(stocks.applied) != 1 || stocks.applied[0].NetPosition != 100 {
		t.Errorf("applied deltas = %+v, want one net-position 100", stocks.applied)
	}
}

func TestApplyBuy_UnknownStock(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.ApplyBuy(ownerCtx(), "pf_1", "st_missing", 50.0, 100)
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestApplyBuy_UnknownPortfolio(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.ApplyBuy(ownerCtx(), "pf_missing", "st_bhp", 50.0, 100)
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestApplyBuy_NonOwnerRejected(t *testing.T) {
	svc, _, stocks := newFixture()

	ctx := common.WithPrincipal(context.Background(), &common.Principal{UserID: "u_bob"})
	_, err := svc.ApplyBuy(ctx, "pf_1", "st_bhp", 50.0, 100)
	if domain.KindOf(err) != domain.KindUnauthorized {
		t.Errorf("non-owner: err = %v, want unauthorized", err)
	}

	_, err = svc.ApplyBuy(context.Background(), "pf_1", "st_bhp", 50.0, 100)
	if domain.KindOf(err) != domain.KindUnauthorized {
		t.Errorf("anonymous: err = %v, want unauthorized", err)
	}

	if len(stocks.applied) != 0 {
		t.Errorf("rejected buys reached the stock aggregate: %+v", stocks.applied)
	}
}

func TestApplyBuy_CompensatesOnPortfolioSaveFailure(t *testing.T) {
	svc, portfolios, stocks := newFixture()
	portfolios.saveErr = errors.New("datastore unavailable")

	_, err := svc.ApplyBuy(ownerCtx(), "pf_1", "st_bhp", 50.0, 100)
	if err == nil {
		t.Fatal("expected error when portfolio save fails")
	}

	// The stock delta must have been reversed.
	if got := stocks.stocks["st_bhp"].CurrentNetPosition(); got != 0 {
		t.Errorf("stock net position after compensation = %d, want 0", got)
	}
	if len(stocks.applied) != 2 {
		t.Fatalf("applied deltas = %d, want apply + reverse", len(stocks.applied))
	}
	if stocks.applied[1].NetPosition != -stocks.applied[0].NetPosition {
		t.Errorf("second delta %+v is not the reverse of %+v", stocks.applied[1], stocks.applied[0])
	}
}

// --- ToggleWatch ---

func TestToggleWatch_RoundTrip(t *testing.T) {
	svc, portfolios, stocks := newFixture()
	ctx := ownerCtx()

	result, err := svc.ToggleWatch(ctx, "pf_1", "st_bhp")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !result.Watching {
		t.Error("first toggle should watch")
	}
	if result.Stock.WatchCount != 1 {
		t.Errorf("watch count = %d, want 1", result.Stock.WatchCount)
	}

	result, err = svc.ToggleWatch(ctx, "pf_1", "st_bhp")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if result.Watching {
		t.Error("second toggle should unwatch")
	}
	if result.Stock.WatchCount != 0 {
		t.Errorf("watch count = %d, want 0", result.Stock.WatchCount)
	}

	p := portfolios.portfolios["pf_1"]
	if len(p.WatchedStocks) != 0 {
		t.Errorf("watch set = %v, want empty", p.WatchedStocks)
	}
	if len(stocks.applied) != 2 {
		t.Errorf("applied deltas = %d, want 2", len(stocks.applied))
	}
}

// --- Targets ---

func TestSetTarget_SwapFoldsDifference(t *testing.T) {
	svc, _, stocks := newFixture()
	ctx := ownerCtx()

	if _, err := svc.SetTarget(ctx, "pf_1", "st_bhp", 10.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	result, err := svc.SetTarget(ctx, "pf_1", "st_bhp", 25.0)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	stats := result.Stock.TargetStats
	if stats.Count != 1 || stats.Sum != 25.0 || stats.Average != 25.0 {
		t.Errorf("stats = %+v, want count 1 sum 25 avg 25", stats)
	}

	// The replacement delta moves only the sum.
	last := stocks.applied[len(stocks.applied)-1]
	if last.TargetCount != 0 || last.TargetSum != 15.0 {
		t.Errorf("swap delta = %+v, want sum 15 count 0", last)
	}
}

func TestRemoveTarget_BacksOutContribution(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := ownerCtx()

	svc.SetTarget(ctx, "pf_1", "st_bhp", 10.0)
	result, err := svc.RemoveTarget(ctx, "pf_1", "st_bhp")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	stats := result.Stock.TargetStats
	if stats.Count != 0 || stats.Sum != 0 || stats.Average != 0 {
		t.Errorf("stats = %+v, want zeroed", stats)
	}
}

func TestRemoveTarget_AbsentIsNotFound(t *testing.T) {
	svc, _, stocks := newFixture()

	_, err := svc.RemoveTarget(ownerCtx(), "pf_1", "st_bhp")
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("err = %v, want not found", err)
	}
	if len(stocks.applied) != 0 {
		t.Errorf("absent removal touched the stock aggregate: %+v", stocks.applied)
	}
}

// --- Contributions ---

func TestRecordContribution_SolvencyGate(t *testing.T) {
	svc, portfolios, _ := newFixture()
	ctx := ownerCtx()

	result, err := svc.RecordContribution(ctx, "pf_1", 100)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if result.NetValue != 100 {
		t.Errorf("net value = %v, want 100", result.NetValue)
	}

	_, err = svc.RecordContribution(ctx, "pf_1", -150)
	if domain.KindOf(err) != domain.KindInsufficientFunds {
		t.Fatalf("overdraw: err = %v, want insufficient funds", err)
	}

	p := portfolios.portfolios["pf_1"]
	if got := p.Ledger.CurrentNetValue(); got != 100 {
		t.Errorf("net value after rejected overdraw = %v, want 100", got)
	}
}

// --- Strategies ---

func TestUpsertStrategy_ValidatesStockIDsFirst(t *testing.T) {
	svc, portfolios, _ := newFixture()
	ctx := ownerCtx()

	good := models.Strategy{Tag: "materials", Sentiment: models.SentimentBull, StockIDs: []string{"st_bhp"}}
	if _, err := svc.UpsertStrategy(ctx, "pf_1", good); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	bad := models.Strategy{Tag: "materials", Sentiment: models.SentimentBear, StockIDs: []string{"st_missing"}}
	_, err := svc.UpsertStrategy(ctx, "pf_1", bad)
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("unknown stock: err = %v, want not found", err)
	}

	// The prior strategy is untouched.
	p := portfolios.portfolios["pf_1"]
	if got := p.Strategies["materials"]; got.Sentiment != models.SentimentBull {
		t.Errorf("strategy = %+v, want original bull record", got)
	}
}

func TestDeleteStrategy_AbsentIsNoop(t *testing.T) {
	svc, portfolios, _ := newFixture()

	before := portfolios.saves
	p, err := svc.DeleteStrategy(ownerCtx(), "pf_1", "missing")
	if err != nil {
		t.Fatalf("delete absent: %v", err)
	}
	if p == nil {
		t.Fatal("expected portfolio back")
	}
	if portfolios.saves != before {
		t.Errorf("no-op delete persisted the portfolio")
	}
}

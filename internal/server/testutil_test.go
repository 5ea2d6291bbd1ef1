package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foliohq/folio/internal/app"
	"github.com/foliohq/folio/internal/common"
	"github.com/foliohq/folio/internal/domain"
	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
	"github.com/foliohq/folio/internal/services/ledger"
	"github.com/foliohq/folio/internal/services/portfolio"
	"github.com/foliohq/folio/internal/services/stock"
	"github.com/foliohq/folio/internal/services/user"
)

// --- In-memory storage backing the real services ---

type memPortfolioStore struct {
	portfolios map[string]*models.Portfolio
}

func (m *memPortfolioStore) Get(_ context.Context, id string) (*models.Portfolio, error) {
	p, ok := m.portfolios[id]
	if !ok {
		return nil, domain.NotFound("portfolio %s not found", id)
	}
	return p, nil
}

func (m *memPortfolioStore) Save(_ context.Context, p *models.Portfolio) error {
	m.portfolios[p.ID] = p
	return nil
}

func (m *memPortfolioStore) Delete(_ context.Context, id string) error {
	delete(m.portfolios, id)
	return nil
}

func (m *memPortfolioStore) List(_ context.Context) ([]models.PortfolioSummary, error) {
	out := []models.PortfolioSummary{}
	for _, p := range m.portfolios {
		if p.Public {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

func (m *memPortfolioStore) ListByOwner(_ context.Context, ownerID string) ([]models.PortfolioSummary, error) {
	out := []models.PortfolioSummary{}
	for _, p := range m.portfolios {
		if p.OwnerID == ownerID {
			out = append(out, p.Summary())
		}
	}
	return out, nil
}

type memStockStore struct {
	stocks map[string]*models.Stock
}

func (m *memStockStore) Get(_ context.Context, id string) (*models.Stock, error) {
	s, ok := m.stocks[id]
	if !ok {
		return nil, domain.NotFound("stock %s not found", id)
	}
	copied := *s
	return &copied, nil
}

func (m *memStockStore) GetByTicker(_ context.Context, ticker string) (*models.Stock, error) {
	for _, s := range m.stocks {
		if s.Ticker == ticker {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.NotFound("stock with ticker %s not found", ticker)
}

func (m *memStockStore) List(_ context.Context) ([]*models.Stock, error) {
	out := []*models.Stock{}
	for _, s := range m.stocks {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStockStore) ListByIndustry(_ context.Context, industry string) ([]*models.Stock, error) {
	out := []*models.Stock{}
	for _, s := range m.stocks {
		if s.Industry == industry {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStockStore) Create(_ context.Context, s *models.Stock) error {
	s.Version = 1
	copied := *s
	m.stocks[s.ID] = &copied
	return nil
}

func (m *memStockStore) SaveVersioned(_ context.Context, s *models.Stock, expectedVersion int64) error {
	current, ok := m.stocks[s.ID]
	if !ok {
		return domain.NotFound("stock %s not found", s.ID)
	}
	if current.Version != expectedVersion {
		return domain.Conflict("stock %s version mismatch", s.ID)
	}
	s.Version = expectedVersion + 1
	copied := *s
	m.stocks[s.ID] = &copied
	return nil
}

func (m *memStockStore) Delete(_ context.Context, id string) error {
	delete(m.stocks, id)
	return nil
}

type memInternalStore struct {
	users map[string]*models.User
	kv    map[string]string
}

func (m *memInternalStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.NotFound("user %s not found", userID)
	}
	return u, nil
}

func (m *memInternalStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.NotFound("user %s not found", username)
}

func (m *memInternalStore) SaveUser(_ context.Context, u *models.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memInternalStore) DeleteUser(_ context.Context, userID string) error {
	delete(m.users, userID)
	return nil
}

func (m *memInternalStore) ListUsers(_ context.Context) ([]string, error) { return nil, nil }

func (m *memInternalStore) GetSystemKV(_ context.Context, key string) (string, error) {
	return m.kv[key], nil
}

func (m *memInternalStore) SetSystemKV(_ context.Context, key, value string) error {
	m.kv[key] = value
	return nil
}

func (m *memInternalStore) Close() error { return nil }

type memStorage struct {
	portfolioStore *memPortfolioStore
	stockStore     *memStockStore
	internalStore  *memInternalStore
}

func (m *memStorage) PortfolioStore() interfaces.PortfolioStore { return m.portfolioStore }
func (m *memStorage) StockStore() interfaces.StockStore         { return m.stockStore }
func (m *memStorage) InternalStore() interfaces.InternalStore   { return m.internalStore }
func (m *memStorage) Close() error                              { return nil }

// --- Test server ---

func newTestServer(t *testing.T) *Server {
	t.Helper()

	storage := &memStorage{
		portfolioStore: &memPortfolioStore{portfolios: make(map[string]*models.Portfolio)},
		stockStore:     &memStockStore{stocks: make(map[string]*models.Stock)},
		internalStore:  &memInternalStore{users: make(map[string]*models.User), kv: make(map[string]string)},
	}

	// Stock creation is admin-only, so every test server carries a
	// seeded admin account.
	admin := &models.User{ID: "u_admin", Username: "admin", Email: "admin@example.com", Role: "admin"}
	if err := admin.SetPassword("hunter2hunter2"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	storage.internalStore.users[admin.ID] = admin

	config := common.NewDefaultConfig()
	config.Auth.JWTSecret = "test-secret"
	config.Auth.TokenExpiry = "1h"
	config.Server.RateLimit = 0 // not under test

	logger := common.NewSilentLogger()
	stockService := stock.NewService(storage, logger)

	a := &app.App{
		Config:           config,
		Logger:           logger,
		Storage:          storage,
		PortfolioService: portfolio.NewService(storage, stockService, logger),
		LedgerService:    ledger.NewService(storage, stockService, logger),
		StockService:     stockService,
		UserService:      user.NewService(storage, logger),
		StartupTime:      time.Now(),
	}

	return NewServer(a)
}

// doJSON sends a request with an optional JSON body and bearer token,
// returning the recorder.
func doJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the "data" field of a standard response envelope.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			t.Fatalf("decode data: %v (body %s)", err, rec.Body.String())
		}
	}
}

// registerAndLogin creates an account through the API and returns a
// bearer token for it.
func registerAndLogin(t *testing.T, handler http.Handler, username string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/users", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}

	token := loginAs(t, handler, username)
	if token == "" {
		t.Fatal("empty token from login")
	}
	return token
}

// loginAs logs an existing account in and returns its bearer token.
func loginAs(t *testing.T, handler http.Handler, username string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}

	var data struct {
		Token string `json:"token"`
	}
	decodeData(t, rec, &data)
	return data.Token
}

// createStock registers a stock through the API as the seeded admin and
// returns its id.
func createStock(t *testing.T, handler http.Handler, ticker string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/stocks", loginAs(t, handler, "admin"), map[string]string{
		"ticker":   ticker,
		"name":     ticker + " Test Co",
		"industry": "Materials",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stock %s: status %d body %s", ticker, rec.Code, rec.Body.String())
	}

	var s models.Stock
	decodeData(t, rec, &s)
	return s.ID
}

// createPortfolio creates a portfolio through the API and returns its id.
func createPortfolio(t *testing.T, handler http.Handler, token, name string, public bool) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/portfolios", token, map[string]interface{}{
		"name":   name,
		"public": public,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create portfolio %s: status %d body %s", name, rec.Code, rec.Body.String())
	}

	var p models.Portfolio
	decodeData(t, rec, &p)
	return p.ID
}

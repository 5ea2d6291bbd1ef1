package server

import (
	"net/http"

	"github.com/foliohq/folio/internal/common"
)

// requireAdmin checks that the caller is an authenticated admin. Writes
// the error response and returns false otherwise.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	principal := common.PrincipalFromContext(r.Context())
	if principal == nil {
		WriteError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if !principal.IsAdmin() {
		WriteError(w, http.StatusForbidden, "Admin access required")
		return false
	}
	return true
}

// handleStockRoot handles /api/stocks — list and create. Creation is
// admin-only; the stock universe is curated, not user-contributed.
func (s *Server) handleStockRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		stocks, err := s.app.StockService.List(r.Context(), r.URL.Query().Get("industry"))
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"data":   stocks,
		})

	case http.MethodPost:
		if !s.requireAdmin(w, r) {
			return
		}
		var req struct {
			Ticker   string `json:"ticker"`
			Name     string `json:"name"`
			Industry string `json:"industry"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		stock, err := s.app.StockService.Create(r.Context(), req.Ticker, req.Name, req.Industry)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"status": "ok",
			"data":   stock,
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleStockGet handles GET /api/stocks/{id}.
func (s *Server) handleStockGet(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := PathParam(r, "/api/stocks/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "stock id is required in path")
		return
	}

	stock, err := s.app.StockService.Get(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   stock,
	})
}

// handleStockByTicker handles GET /api/stocks/ticker/{ticker}.
func (s *Server) handleStockByTicker(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/stocks/ticker/", "")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required in path")
		return
	}

	stock, err := s.app.StockService.GetByTicker(r.Context(), ticker)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   stock,
	})
}

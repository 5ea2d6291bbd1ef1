package server

import (
	"net/http"

	"github.com/foliohq/folio/internal/interfaces"
	"github.com/foliohq/folio/internal/models"
)

// handlePortfolioRoot handles /api/portfolios — list and create.
func (s *Server) handlePortfolioRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlePortfolioList(w, r)
	case http.MethodPost:
		s.handlePortfolioCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handlePortfolioList handles GET /api/portfolios — public directory,
// or the caller's own portfolios with ?owner=me.
func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	var summaries []models.PortfolioSummary
	var err error
	if r.URL.Query().Get("owner") == "me" {
		summaries, err = s.app.PortfolioService.ListOwned(r.Context())
	} else {
		summaries, err = s.app.PortfolioService.List(r.Context())
	}
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   summaries,
	})
}

// handlePortfolioCreate handles POST /api/portfolios.
func (s *Server) handlePortfolioCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	portfolio, err := s.app.PortfolioService.Create(r.Context(), req.Name, req.Description, req.Public)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "ok",
		"data":   portfolio,
	})
}

// handlePortfolioByID handles GET/PUT/DELETE /api/portfolios/{id}.
func (s *Server) handlePortfolioByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		portfolio, err := s.app.PortfolioService.Get(r.Context(), id)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"data":   portfolio,
		})

	case http.MethodPut:
		var update interfaces.PortfolioUpdate
		if !DecodeJSON(w, r, &update) {
			return
		}
		portfolio, err := s.app.PortfolioService.Update(r.Context(), id, update)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"data":   portfolio,
		})

	case http.MethodDelete:
		if err := s.app.PortfolioService.Delete(r.Context(), id); err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
		})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

// handlePortfolioSummary handles GET /api/portfolios/{id}/summary.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := s.app.PortfolioService.Summary(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   summary,
	})
}

// handlePortfolioChart handles GET /api/portfolios/{id}/chart — net value PNG.
func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	png, err := s.app.PortfolioService.RenderNetValueChart(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handlePositions handles POST /api/portfolios/{id}/positions — apply a
// buy (positive count) or sell (negative count) against a stock.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		StockID string  `json:"stock_id"`
		Price   float64 `json:"price"`
		Count   int64   `json:"count"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.LedgerService.ApplyBuy(r.Context(), id, req.StockID, req.Price, req.Count)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   result,
	})
}

// handleWatchToggle handles POST /api/portfolios/{id}/watches/{stockID}.
func (s *Server) handleWatchToggle(w http.ResponseWriter, r *http.Request, id, stockID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.app.LedgerService.ToggleWatch(r.Context(), id, stockID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   result,
	})
}

// handleFollowToggle handles POST /api/portfolios/{id}/follow.
func (s *Server) handleFollowToggle(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result, err := s.app.PortfolioService.ToggleFollow(r.Context(), id)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   result,
	})
}

// handleTarget handles PUT/DELETE /api/portfolios/{id}/targets/{stockID}.
func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request, id, stockID string) {
	switch r.Method {
	case http.MethodPut:
		var req struct {
			Price float64 `json:"price"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		result, err := s.app.LedgerService.SetTarget(r.Context(), id, stockID, req.Price)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"data":   result,
		})

	case http.MethodDelete:
		result, err := s.app.LedgerService.RemoveTarget(r.Context(), id, stockID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"data":   result,
		})

	default:
		RequireMethod(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleContributions handles POST /api/portfolios/{id}/contributions.
func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.LedgerService.RecordContribution(r.Context(), id, req.Amount)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   result,
	})
}

// handleStrategies handles PUT /api/portfolios/{id}/strategies — upsert
// a strategy, keyed on its tag.
func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPut, http.MethodPost) {
		return
	}

	var strategy models.Strategy
	if !DecodeJSON(w, r, &strategy) {
		return
	}

	portfolio, err := s.app.LedgerService.UpsertStrategy(r.Context(), id, strategy)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   portfolio,
	})
}

// handleStrategyByTag handles DELETE /api/portfolios/{id}/strategies/{tag}.
func (s *Server) handleStrategyByTag(w http.ResponseWriter, r *http.Request, id, tag string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	portfolio, err := s.app.LedgerService.DeleteStrategy(r.Context(), id, tag)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   portfolio,
	})
}

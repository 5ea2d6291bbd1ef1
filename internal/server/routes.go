package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/foliohq/folio/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Users and auth
	mux.HandleFunc("/api/users", s.handleUserRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/me", s.handleAuthMe)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolioRoot)

	// Stocks
	mux.HandleFunc("/api/stocks/ticker/", s.handleStockByTicker)
	mux.HandleFunc("/api/stocks/", s.handleStockGet)
	mux.HandleFunc("/api/stocks", s.handleStockRoot)
}

// routePortfolios dispatches /api/portfolios/{id}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		s.handlePortfolioRoot(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = parts[1]
	}

	switch subpath {
	case "":
		s.handlePortfolioByID(w, r, id)
	case "summary":
		s.handlePortfolioSummary(w, r, id)
	case "chart":
		s.handlePortfolioChart(w, r, id)
	case "follow":
		s.handleFollowToggle(w, r, id)
	case "positions":
		s.handlePositions(w, r, id)
	case "contributions":
		s.handleContributions(w, r, id)
	case "strategies":
		s.handleStrategies(w, r, id)
	default:
		if stockID := strings.TrimPrefix(subpath, "watches/"); stockID != subpath && stockID != "" {
			s.handleWatchToggle(w, r, id, stockID)
			return
		}
		if stockID := strings.TrimPrefix(subpath, "targets/"); stockID != subpath && stockID != "" {
			s.handleTarget(w, r, id, stockID)
			return
		}
		if tag := strings.TrimPrefix(subpath, "strategies/"); tag != subpath && tag != "" {
			s.handleStrategyByTag(w, r, id, tag)
			return
		}
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

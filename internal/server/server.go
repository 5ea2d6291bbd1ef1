// Package server exposes the folio REST API over a stdlib net/http mux
// with a hand-applied middleware chain.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/foliohq/folio/internal/app"
	"github.com/foliohq/folio/internal/common"
)

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 60 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server owns the mux, the middleware chain, and the listener lifecycle.
// Everything else lives on the app it wraps.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// NewServer builds the route table and middleware chain for the app.
func NewServer(a *app.App) *Server {
	s := &Server{app: a, logger: a.Logger}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler:      applyMiddleware(mux, a.Logger, a.Config, a.Storage.InternalStore()),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

// SetShutdownChannel registers the channel signalled when a shutdown is
// requested over HTTP.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// Handler returns the fully wrapped handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

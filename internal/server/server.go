// Package server implements the web channel adapter: the JSON chat API,
// per-user history, form-based auth, the messaging-webhook endpoint,
// and the operator endpoints. All channels funnel into the same session
// router; only the transport framing differs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hoteldesk/conciergebot/internal/config"
	"github.com/hoteldesk/conciergebot/internal/database"
	"github.com/hoteldesk/conciergebot/internal/logger"
	"github.com/hoteldesk/conciergebot/internal/session"
)

// Deps provides dependencies for all HTTP handlers.
type Deps struct {
	Logger *slog.Logger
	Store  database.Store
	Router *session.Router
	Config *config.Config
}

// Server wraps the HTTP server hosting the web channel.
type Server struct {
	deps       Deps
	httpServer *http.Server
}

// NewServer builds the route table and returns a server ready to run.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With("component", "http_server")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", newChatHandler(deps))
	mux.HandleFunc("GET /chat/history", newHistoryHandler(deps))
	mux.HandleFunc("POST /signup", newSignupHandler(deps))
	mux.HandleFunc("POST /login", newLoginHandler(deps))
	mux.HandleFunc("POST /webhook/whatsapp", newWhatsAppHandler(deps))
	mux.HandleFunc("POST /admin/users/{username}/ai", newAdminAIToggleHandler(deps))
	mux.HandleFunc("GET /healthz", newHealthHandler(deps))

	srv := &http.Server{
		Addr:         deps.Config.Server.Addr,
		Handler:      logger.HTTPMiddleware(deps.Logger, mux),
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
	}

	return &Server{deps: deps, httpServer: srv}
}

// Handler exposes the configured handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.deps.Logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.deps.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	s.deps.Logger.Info("HTTP server stopped gracefully.")
	return <-errCh
}

// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api assembles the Quill HTTP surface: the middleware chain, the
health checks and the auth, account and post routes under [APIPrefix].

Only this package and cmd/api construct an [http.Server].
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/quill/internal/content"
	"github.com/taibuivan/quill/internal/platform/apperr"
	"github.com/taibuivan/quill/internal/platform/config"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/middleware"
	"github.com/taibuivan/quill/internal/platform/respond"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/auth"
)

// APIPrefix is the versioned prefix every domain route is mounted under.
const APIPrefix = "/api/v1"

var (
	errRouteNotFound    = apperr.NotFound("Route")
	errMethodNotAllowed = apperr.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. It answers 200 while the process runs.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It answers 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles the session lifecycle (login, refresh, logout, profile).
	Auth *auth.Handler

	// Account handles withdrawal.
	Account *account.Handler

	// Posts handles posts and their comments.
	Posts *content.Handler
}

// Gate is what the authentication middleware needs to resolve a bearer token.
type Gate struct {
	Verifier   middleware.TokenVerifier
	Identities middleware.IdentityLoader
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// CORS runs before the gate so that 401 answers still carry CORS headers.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, gate Gate, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)
	r.Use(middleware.Authenticate(gate.Verifier, gate.Identities))

	r.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, errRouteNotFound)
	})
	r.MethodNotAllowed(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, errMethodNotAllowed)
	})

	// # Infrastructure Endpoints
	// Unauthenticated health checks for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route(APIPrefix, func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes())
		api.Mount("/users", h.Account.Routes())
		api.Mount("/posts", h.Posts.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the root handler with the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}

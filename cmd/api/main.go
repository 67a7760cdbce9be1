// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Quill HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis when configured.
//  5. Run database migrations (idempotent).
//  6. Build the token codec.
//  7. Wire repositories, services and handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/quill/internal/api"
	"github.com/taibuivan/quill/internal/content"
	"github.com/taibuivan/quill/internal/platform/config"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/migration"
	pgstore "github.com/taibuivan/quill/internal/platform/postgres"
	redisstore "github.com/taibuivan/quill/internal/platform/redis"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/auth"
	"github.com/taibuivan/quill/internal/users/oauth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("redis_enabled", cfg.RedisURL != ""),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis (optional) ───────────────────────────────────────────────
	var (
		rdb   *goredis.Client
		guard oauth.CodeGuard = oauth.NopCodeGuard{}
	)
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
		guard = oauth.NewRedisCodeGuard(rdb, constants.OAuthCodeTTL)
	}

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, cfg.Debug, log), "run migrations")

	// ── 6. Token Codec ────────────────────────────────────────────────────
	var codecOptions []sec.CodecOption
	if cfg.HasPreviousSigningKey() {
		codecOptions = append(codecOptions, sec.WithVerificationKey(cfg.JWTPreviousKeyID, []byte(cfg.JWTPreviousSecret)))
		log.Info("previous_signing_key_accepted", slog.String("key_id", cfg.JWTPreviousKeyID))
	}
	codec, err := sec.NewTokenCodec(cfg.JWTKeyID, []byte(cfg.JWTSecret), constants.AuthIssuer, codecOptions...)
	must(log, err, "initialize token codec")

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	transactor := pgstore.NewTransactor(pool)
	userRepository := auth.NewUserRepository(pool)
	contentRepository := content.NewPostgresRepository(pool)

	provider := oauth.NewGoogleProvider(oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURI:  cfg.GoogleRedirectURI,
		Timeout:      cfg.OAuthTimeout,
	}, guard)

	authService := auth.NewService(userRepository, provider, codec, transactor, auth.Settings{
		AccessTokenTTL:  cfg.AccessTokenTTL(),
		RefreshTokenTTL: cfg.RefreshTokenTTL(),
	})
	_, err = authService.EnsureSentinel(startupCtx)
	must(log, err, "ensure sentinel account")

	cookies := auth.CookieSettings{Secure: cfg.CookieSecure, MaxAge: cfg.RefreshTokenTTL()}
	accountService := account.NewService(authService, userRepository, contentRepository, transactor)
	contentService := content.NewService(contentRepository)

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	health := api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
	}
	if rdb != nil {
		health.CheckCache = func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}
	}
	liveness, readiness := api.NewHealthHandlers(health, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, cookies),
		Account:   account.NewHandler(accountService, cookies),
		Posts:     content.NewHandler(contentService),
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, api.Gate{Verifier: codec, Identities: authService}, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger tagged with the application name and version.
func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With(
		slog.String(constants.FieldApp, constants.AppName),
		slog.String(constants.FieldVersion, constants.AppVersion),
	)
	slog.SetDefault(log)
	return log
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

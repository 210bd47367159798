package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-auth-service/internal/config"
	"go-auth-service/internal/database"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/mailer"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/router"
	"go-auth-service/internal/service"
	"go-auth-service/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

// New wires the credential store, token issuer/verifier and session lifecycle
// manager together. Everything is constructed here and passed down
// explicitly; there is no ambient global state.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	refreshRepo := repository.NewRefreshTokenRepository(pool)
	revokedRepo := repository.NewRevokedTokenRepository(pool)
	resetRepo := repository.NewResetTokenRepository(pool)
	slog.Info("database ready")

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	verifier := token.NewVerifier(cfg.JWTSecret, revokedRepo)

	authService := service.NewAuthService(
		userRepo,
		refreshRepo,
		revokedRepo,
		resetRepo,
		issuer,
		mailer.NewLogMailer(),
		cfg.ResetTokenTTL,
		cfg.ResetBaseURL,
	)

	authMiddleware := middleware.NewAuthMiddleware(verifier)
	appMetrics := metrics.New()
	authHandler := handler.NewAuthHandler(authService, appMetrics)
	userHandler := handler.NewUserHandler(authService)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:    authHandler,
		User:    userHandler,
		Metrics: appMetrics.Handler(),
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	go startTokenCleanup(cleanupCtx, cfg.TokenCleanupInterval, cfg.JWTAccessTTL, refreshRepo, resetRepo, revokedRepo)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				cleanupCancel()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}

// startTokenCleanup periodically prunes expired refresh and reset rows, and
// denylist entries older than the access TTL. Pruning revoked rows past that
// cutoff is safe: expiry already rejects those tokens.
func startTokenCleanup(
	ctx context.Context,
	interval time.Duration,
	accessTTL time.Duration,
	refreshRepo *repository.RefreshTokenRepository,
	resetRepo *repository.ResetTokenRepository,
	revokedRepo *repository.RevokedTokenRepository,
) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := refreshRepo.CleanExpired(ctx); err != nil {
				slog.Warn("refresh token cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("expired refresh tokens removed", "count", n)
			}

			if n, err := resetRepo.CleanExpired(ctx); err != nil {
				slog.Warn("reset token cleanup failed", "error", err)
			} else if n > 0 {
				slog.Info("expired reset tokens removed", "count", n)
			}

			cutoff := time.Now().UTC().Add(-accessTTL)
			if n, err := revokedRepo.PruneOlderThan(ctx, cutoff); err != nil {
				slog.Warn("revoked token pruning failed", "error", err)
			} else if n > 0 {
				slog.Info("stale revoked tokens pruned", "count", n)
			}
		}
	}
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-auth-service/internal/config"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/middleware"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Metrics http.Handler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.With(middleware.RequireJSON).Post("/signup", h.Auth.Signup)
		api.With(middleware.RequireJSON).Post("/signin", h.Auth.Signin)
		api.With(authMiddleware.RequireRefresh).Post("/refresh", h.Auth.Refresh)
		api.With(authMiddleware.RequireAccess).Post("/logout", h.Auth.Logout)
		api.With(middleware.RequireJSON).Post("/forgot-password", h.Auth.ForgotPassword)
		api.With(middleware.RequireJSON).Post("/reset-password/{token}", h.Auth.ResetPassword)

		api.With(authMiddleware.RequireAccess).Get("/dashboard", h.User.Dashboard)
		api.Get("/public", h.User.Public)
	})

	return r
}

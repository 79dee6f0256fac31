package routes

import (
	"log/slog"

	"github.com/BradenHooton/bastion/internal/auth"
	"github.com/BradenHooton/bastion/internal/clock"
	"github.com/BradenHooton/bastion/internal/handlers"
	"github.com/BradenHooton/bastion/internal/middleware"
	"github.com/BradenHooton/bastion/internal/models"
	"github.com/BradenHooton/bastion/internal/ratelimit"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// GlobalConfig holds what the router-wide middleware needs
type GlobalConfig struct {
	Env            string
	AllowedOrigins []string
	Limiter        ratelimit.Limiter
	Clock          clock.Clock
	IPConfig       *pkghttp.IPConfig
	Logger         *slog.Logger
}

// UseGlobalMiddleware installs the middleware every request passes through.
// Admission sits ahead of CORS so preflight requests are admitted like any other.
func UseGlobalMiddleware(router chi.Router, cfg GlobalConfig) {
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecureLogger(cfg.Logger, cfg.IPConfig))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middleware.Admission(cfg.Limiter, cfg.Clock, cfg.IPConfig, cfg.Logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
}

// RegisterRoutes registers all application routes under /api/v1
func RegisterRoutes(
	router chi.Router,
	userHandler *handlers.UserHandler,
	authHandler *handlers.AuthHandler,
	tokenManager *auth.TokenManager,
	users auth.UserFetcher,
	authRateLimit middleware.RateLimitConfig,
) {
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			// Public, throttled per IP on top of global admission
			r.With(middleware.RateLimitByIP(authRateLimit)).Post("/register", authHandler.Register)
			r.With(middleware.RateLimitByIP(authRateLimit)).Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.With(auth.AuthMiddleware(tokenManager)).Get("/me", userHandler.Me)
		})

		// Admin-only routes
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(auth.AuthMiddleware(tokenManager))
			r.Use(auth.RequireRole(users, models.RoleAdmin))

			r.Get("/", userHandler.ListActiveUsers)
			r.Post("/{id}/activate", userHandler.Activate)
			r.Post("/{id}/deactivate", userHandler.Deactivate)
			r.Post("/{id}/unlock", userHandler.Unlock)
		})
	})
}

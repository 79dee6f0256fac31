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

	"github.com/BradenHooton/bastion/internal/auth"
	"github.com/BradenHooton/bastion/internal/background"
	"github.com/BradenHooton/bastion/internal/clock"
	"github.com/BradenHooton/bastion/internal/config"
	"github.com/BradenHooton/bastion/internal/database"
	"github.com/BradenHooton/bastion/internal/handlers"
	"github.com/BradenHooton/bastion/internal/lockout"
	middlewareCustom "github.com/BradenHooton/bastion/internal/middleware"
	"github.com/BradenHooton/bastion/internal/ratelimit"
	"github.com/BradenHooton/bastion/internal/repositories"
	"github.com/BradenHooton/bastion/internal/routes"
	"github.com/BradenHooton/bastion/internal/services"
	pkghttp "github.com/BradenHooton/bastion/pkg/http"
	pkglogger "github.com/BradenHooton/bastion/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// store is the user persistence layer shared by both database drivers
type store interface {
	services.UserRepository
	database.HealthChecker
}

type pgStore struct {
	*repositories.UserRepository
	database.HealthChecker
}

type sqliteStore struct {
	*repositories.SQLiteUserRepository
	database.HealthChecker
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	}

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("rate_limit_strategy", cfg.RateLimit.Strategy),
	)

	// Initialize database and repository
	users, closeDB, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeDB()

	// Admission control
	clk := clock.Real{}
	limiter, err := ratelimit.New(ratelimit.Config{
		Strategy: cfg.RateLimit.Strategy,
		Limit:    cfg.RateLimit.MaxRequests,
		Window:   cfg.RateLimit.Window,
	})
	if err != nil {
		logger.Error("failed to create rate limiter", slog.Any("error", err))
		os.Exit(1)
	}
	sweepManager := background.NewSweepManager(limiter, clk, logger, cfg.RateLimit.SweepInterval, 2*limiter.Window())

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxies", slog.Any("error", err))
		os.Exit(1)
	}

	// Account lockout
	policy, err := lockout.NewPolicy(cfg.Lockout.FailureThreshold, cfg.Lockout.Duration)
	if err != nil {
		logger.Error("invalid lockout policy", slog.Any("error", err))
		os.Exit(1)
	}
	tracker := lockout.NewTracker(policy)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTIssuer,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		clk,
	)
	timingDelay := auth.NewTimingDelay(auth.DefaultTimingConfig())
	auditLogger := pkglogger.NewAuditLogger(logger)

	var mailer services.Mailer = services.NewLogMailer(logger)
	if cfg.Email.Enabled {
		sesMailer, err := services.NewSESMailer(context.Background(), cfg.Email.AWSRegion, cfg.Email.From, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		mailer = sesMailer
	}

	// Initialize services
	userService := services.NewUserService(users, tracker, logger, auditLogger)
	authService := services.NewAuthService(users, tokenManager, tracker, mailer, timingDelay, clk, logger, auditLogger)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	authHandler := handlers.NewAuthHandler(authService, ipConfig, cfg.Lockout.Reveal)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	routes.UseGlobalMiddleware(router, routes.GlobalConfig{
		Env:            cfg.Server.Env,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		Clock:          clk,
		IPConfig:       ipConfig,
		Logger:         logger,
	})

	routes.RegisterRoutes(router, userHandler, authHandler, tokenManager, users, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.AuthRoutePerMinute,
	})

	router.Get("/health", handlers.NewHealthHandler(users).Check)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start sweep task
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweepManager.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return
	}

	logger.Info("server stopped gracefully")
}

// openStore connects to the configured database and returns the user
// repository on top of it along with its close function
func openStore(cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", slog.Any("error", err))
			}
		}
		return sqliteStore{repositories.NewSQLiteUserRepository(db), db}, closeFn, nil
	default:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return pgStore{repositories.NewUserRepository(db), db}, db.Close, nil
	}
}

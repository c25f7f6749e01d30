package main

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

	"github.com/aegislabs/aegis/internal/auth"
	"github.com/aegislabs/aegis/internal/background"
	"github.com/aegislabs/aegis/internal/config"
	"github.com/aegislabs/aegis/internal/database"
	"github.com/aegislabs/aegis/internal/handlers"
	middlewareCustom "github.com/aegislabs/aegis/internal/middleware"
	"github.com/aegislabs/aegis/internal/models"
	"github.com/aegislabs/aegis/internal/repositories"
	"github.com/aegislabs/aegis/internal/routes"
	"github.com/aegislabs/aegis/internal/services"
	pkgauth "github.com/aegislabs/aegis/pkg/auth"
	pkglogger "github.com/aegislabs/aegis/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)

	// Token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	// TOTP manager
	totpManager := auth.NewTOTPManager(cfg.TwoFactor.Issuer)

	// Audit logging
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Security alert email (SES); disabled without a configured sender
	var emailService services.EmailService
	if cfg.Email.FromAddress != "" {
		sesService, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = sesService
	} else {
		emailService = services.NewNoopEmailService(logger)
	}

	// Services
	twoFactorService := services.NewTwoFactorService(
		accountRepo, totpManager, emailService, logger, auditLogger, cfg.TwoFactor.PendingWindow)
	loginService := services.NewLoginService(accountRepo, totpManager, tokenManager, logger, auditLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(loginService, logger)
	twoFactorHandler := handlers.NewTwoFactorHandler(twoFactorService, logger)

	// Expired pending enrollment sweeper
	sweeper := background.NewSweeper(accountRepo, logger, cfg.TwoFactor.SweepInterval)

	// Bootstrap first account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureBootstrapAccount(ctx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure bootstrap account", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, twoFactorHandler, tokenManager)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()

	go sweeper.Start(sweeperCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweeperCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureBootstrapAccount creates the first account if BOOTSTRAP_EMAIL and
// BOOTSTRAP_PASSWORD are set. Registration is otherwise out of scope for
// this service.
func ensureBootstrapAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	email := os.Getenv("BOOTSTRAP_EMAIL")
	password := os.Getenv("BOOTSTRAP_PASSWORD")

	if email == "" || password == "" {
		logger.Info("no BOOTSTRAP_EMAIL or BOOTSTRAP_PASSWORD set, skipping bootstrap account creation")
		return nil
	}

	_, err := accountRepo.GetByEmail(ctx, email)
	if err == nil {
		logger.Info("bootstrap account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if bootstrap account exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	username := os.Getenv("BOOTSTRAP_USERNAME")
	if username == "" {
		username = "admin"
	}

	acct := &models.Account{
		Email:        email,
		Username:     username,
		Name:         "Administrator",
		PasswordHash: hashedPassword,
	}

	if _, err := accountRepo.Create(ctx, acct); err != nil {
		return fmt.Errorf("failed to create bootstrap account: %w", err)
	}

	logger.Info("bootstrap account created successfully")
	return nil
}

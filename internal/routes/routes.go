package routes

import (
	"github.com/aegislabs/aegis/internal/auth"
	"github.com/aegislabs/aegis/internal/handlers"
	"github.com/aegislabs/aegis/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	twoFactorHandler *handlers.TwoFactorHandler,
	tokenManager *auth.TokenManager,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - throttled by IP to slow credential and code guessing
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login/verify", authHandler.VerifyLoginCode)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/refresh", authHandler.Refresh)

	// Protected routes - enrollment requires an authenticated session
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Post("/2fa/setup", twoFactorHandler.Setup)
		r.Post("/2fa/confirm", twoFactorHandler.Confirm)
	})
}

// Package routes defines the API routing configuration.
// It wires repositories, services and handlers together and groups routes by
// authentication requirements.
package routes

import (
	"time"

	"coinbank/internal/config"
	"coinbank/internal/handlers"
	"coinbank/internal/middleware"
	"coinbank/internal/repositories"
	"coinbank/internal/services/auth"
	"coinbank/internal/services/authorization"
	"coinbank/internal/services/notification"
	"coinbank/internal/services/resilience"
	"coinbank/internal/services/strategy"
	"coinbank/internal/services/transaction"
	"coinbank/internal/services/user"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	walletRepo := repositories.NewWalletRepository(db)
	userRepo := repositories.NewUserRepository(db)
	ledgerRepo := repositories.NewTransactionRepository(db)

	jwtSecret := config.GetEnv("JWT_SECRET", "coinbank")
	authService := auth.NewService(userRepo, jwtSecret)
	authHandler := handlers.NewAuthHandler(authService)
	authMiddleware := middleware.NewAuthMiddleware(jwtSecret, userRepo)

	userService := user.NewService(userRepo, walletRepo)
	userHandler := handlers.NewUserHandler(userService)

	// The guard wraps the external authorizer; the last successful decision
	// is cached in Redis and substituted when the authorizer is down.
	authGuard := resilience.NewGuard("authorizer", resilience.DefaultConfig(), repositories.CacheService)
	decider := authorization.NewHTTPDecider(
		config.GetEnv("AUTHORIZER_URL", "http://localhost:8081/authorize"),
		config.GetDurationEnv("AUTHORIZER_TIMEOUT", 5*time.Second),
	)
	gate := authorization.NewService(decider, authGuard)

	// Notifications are fire-and-forget, so their guard carries no fallback
	// store; when the channel is down the failure is only logged.
	notifyGuard := resilience.NewGuard("notifier", resilience.DefaultConfig(), nil)
	notifier := notification.NewGuarded(notification.NewService(), notifyGuard)

	transactionService := transaction.NewService(
		walletRepo,
		ledgerRepo,
		gate,
		strategy.NewSelector(),
		notifier,
		repositories.CacheService,
		transaction.Config{
			PageSize: config.GetIntEnv("TRANSACTION_PAGE_SIZE", transaction.DefaultPageSize),
			CacheTTL: config.GetDurationEnv("TRANSACTION_CACHE_TTL", transaction.DefaultCacheTTL),
		},
	)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	healthHandler := handlers.NewHealthHandler(map[string]*resilience.Guard{
		"authorizer": authGuard,
		"notifier":   notifyGuard,
	})

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", userHandler.RegisterUser)
	api.Post("/login", authHandler.LoginUser)
	api.Get("/health", healthHandler.Health)

	// Authenticated endpoints
	authed := api.Group("/", authMiddleware.Handler)
	authed.Post("/logout", authHandler.LogoutUser)
	authed.Post("/transactions", transactionHandler.CreateTransaction)
	authed.Get("/transactions", transactionHandler.GetTransactions)
	authed.Get("/users", userHandler.ListUsers)
	authed.Get("/users/:id", userHandler.GetUser)
}

package app

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Deps are the shared resources the HTTP application is built from.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Cache    cache.Store
	Notifier notify.Dispatcher
	Metrics  *metrics.ServerMetrics // optional
}

// New wires repositories, services and handlers into a fiber app.
func New(d Deps) *fiber.App {
	cfg := d.Config

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(d.DB)
	productRepo := repositories.NewGORMProductRepository(d.DB)
	categoryRepo := repositories.NewGORMCategoryRepository(d.DB)
	cartRepo := repositories.NewGORMCartRepository(d.DB)
	orderRepo := repositories.NewGORMOrderRepository(d.DB)
	uow := repositories.NewGORMUnitOfWork(d.DB)

	// --- Services ---
	var observer services.CheckoutObserver
	if d.Metrics != nil {
		observer = d.Metrics
	}
	authService := services.NewAuthService(userRepo, d.Notifier, services.AuthConfig{
		JWTSecret:        cfg.JWTSecret,
		TokenTTL:         cfg.TokenTTL,
		PasswordResetTTL: cfg.PasswordResetTTL,
		FrontendURL:      cfg.FrontendURL,
	})
	userService := services.NewUserService(userRepo)
	productService := services.NewProductService(productRepo, categoryRepo, d.Cache, cfg.CacheProductsTTL)
	categoryService := services.NewCategoryService(categoryRepo, productRepo, d.Cache)
	cartService := services.NewCartService(cartRepo, uow)
	checkoutService := services.NewCheckoutService(uow, userRepo, d.Cache, d.Notifier, observer)
	orderService := services.NewOrderService(orderRepo, uow, d.Cache, cfg.CacheOrdersTTL)

	// --- Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(recover.New())
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
		app.Get("/metrics", d.Metrics.Handler())
	}

	// --- Health Check Endpoint ---
	app.Get("/health", healthHandler(d.DB))

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(authService)

	handlers.NewAuthHandler(authService, userService).RegisterRoutes(apiV1, auth)
	handlers.NewProductHandler(productService, categoryService).RegisterRoutes(apiV1, auth)
	handlers.NewCartHandler(cartService).RegisterRoutes(apiV1, auth)
	handlers.NewOrderHandler(orderService, checkoutService).RegisterRoutes(apiV1, auth)

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, dbStatus, code := "healthy", "connected", fiber.StatusOK
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status, dbStatus, code = "unhealthy", "unreachable", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":   status,
			"time":     time.Now().Format(time.RFC3339),
			"database": dbStatus,
		})
	}
}

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/handlers"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/middleware"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, analyzer handlers.Analyzer, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, analyzer)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)
	v1 := app.Group("/v1", authMiddleware)

	assets := v1.Group("/assets/:asset_id")
	assets.Get("/daily", h.Daily)
	assets.Get("/baseline", h.Baseline)
	assets.Get("/operation", h.Operation)
	assets.Get("/anomalies", h.Anomalies)
	assets.Get("/battery", h.Battery)
	assets.Get("/forecast", h.Forecast)
	assets.Get("/health", h.DeviceHealth)
	assets.Get("/recommendation", h.Recommendation)
	assets.Get("/analysis", h.Analysis)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, analyzer handlers.Analyzer, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tankwatch API",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, analyzer, cfg)

	return app
}

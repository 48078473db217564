package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/observability"
)

// NewServer builds the fiber application with middlewares and routes attached.
func NewServer(cfg config.AppConfig, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
	})

	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout())
	RegisterRoutes(app, routes)
	return app
}

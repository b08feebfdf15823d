package bootstrap

import (
	"context"
	"strings"

	"digest_server/adapter/in/http"
	"digest_server/config"
	"digest_server/infra/middleware"
	"digest_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewAPI builds the Fiber app for the interactive digest server.
func NewAPI(ctx context.Context, cfg *config.Config) (*fiber.App, error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "digest-api",
	})

	deps, err := NewDependencies(ctx, cfg, false)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		// go-json is a drop-in faster JSON codec
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	http.NewHealthHandler().Register(app)

	api := app.Group("/api/v1")
	http.NewDigestHandler(deps.Service).Register(api)

	return app, nil
}

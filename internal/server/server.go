// Package server assembles the API application.
package server

import (
	"io"
	"os"
	"time"

	"autoparts/internal/config"
	"autoparts/internal/handlers"
	"autoparts/internal/metrics"
	"autoparts/internal/middleware"
	"autoparts/internal/services"
	"autoparts/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Deps are the collaborators of the API application.
type Deps struct {
	Config  config.Config
	Log     *zap.Logger
	Auth    *services.AuthService
	Parts   *services.PartService
	Images  *storage.LocalStore
	Metrics *metrics.Metrics
	// AccessLog receives one line per request; defaults to stdout.
	AccessLog io.Writer
}

// NewApp returns the API application with every route registered.
func NewApp(d Deps) *fiber.App {
	cfg := d.Config
	if d.AccessLog == nil {
		d.AccessLog = os.Stdout
	}

	app := fiber.New(fiber.Config{
		AppName:               "Auto Parts API",
		ErrorHandler:          handlers.ErrorHandler(d.Log),
		BodyLimit:             int(cfg.UploadMaxBytes) + 1<<20,
		DisableStartupMessage: true,
	})

	// --- Middleware ---
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${respHeader:X-Request-ID} ${status} - ${latency} ${method} ${path}\n",
		Output: d.AccessLog,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if d.Metrics != nil {
		app.Use(middleware.HTTPMetrics(d.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	// --- Uploaded images ---
	app.Use(d.Images.PublicPath(), filesystem.New(filesystem.Config{
		Root:   afero.NewHttpFs(d.Images.Fs()).Dir("/"),
		MaxAge: 3600,
	}))

	// --- API Routes ---
	api := app.Group("/api")
	api.Get("/health", handlers.HandleHealth)

	authRequired := middleware.AuthRequired(d.Auth)
	var authLimits []fiber.Handler
	if cfg.AuthRateLimit > 0 {
		authLimits = append(authLimits, limiter.New(limiter.Config{
			Max:          cfg.AuthRateLimit,
			Expiration:   time.Minute,
			LimitReached: handlers.TooManyRequests,
		}))
	}
	handlers.NewAuthHandler(d.Auth).RegisterRoutes(api, authRequired, authLimits...)
	handlers.NewPartHandler(d.Parts).RegisterRoutes(api, authRequired)

	app.Get("/", handlers.HandleIndex)
	app.Use(handlers.NotFound)

	return app
}

// Package api exposes the teleop state, remote call history, profile and a
// WebSocket controller input over HTTP.
package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	customlog "github.com/open-teleop/joyteleop/pkg/log"
	"github.com/open-teleop/joyteleop/services"
)

// Options wires the app to the running components.
type Options struct {
	Status StatusProvider
	// Submitter enables /ws/joy when set.
	Submitter SnapshotSubmitter
	// Remote is nil when remote control is disabled.
	Remote        RemoteHistory
	ConfigService services.TeleopConfigService
	// AccessLog adds the fiber request logger.
	AccessLog bool
	Logger    customlog.Logger
}

// NewApp builds the Fiber app with every route registered.
func NewApp(opts Options) *fiber.App {
	logger := opts.Logger
	if logger == nil {
		logger = customlog.NewNopLogger()
	}

	app := fiber.New(fiber.Config{
		AppName:               "joyteleop",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "joyteleop",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	RegisterTeleopRoutes(app, opts.Status, opts.Remote, logger)
	if opts.ConfigService != nil {
		RegisterConfigRoutes(app, opts.ConfigService, logger)
	}
	if opts.Submitter != nil {
		RegisterJoyWebSocket(app, opts.Submitter, logger)
	}

	return app
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

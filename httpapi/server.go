package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/metrics"
)

const BasePath = "/api/users"

// AppConfig configures the fiber app built by NewApp
type AppConfig struct {
	Name         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Metrics      *metrics.Metrics
	Logger       accounts.Logger
}

// NewApp builds the fiber app with the user routes, /healthz and /metrics
func NewApp(h *Handler, cfg AppConfig) *fiber.App {
	if cfg.Logger == nil {
		cfg.Logger = h.logger
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return h.Error(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(RequestLogger(cfg.Logger))

	if cfg.Metrics != nil {
		app.Use(cfg.Metrics.Middleware())
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	app.Get("/healthz", h.Health)

	h.Register(app.Group(BasePath))

	return app
}

// RequestLogger logs every request after it completes. Errors from the chain
// are resolved through the app error handler first so the logged status is
// the one written to the client.
func RequestLogger(logger accounts.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
			"client_ip", c.IP(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)

		return nil
	}
}

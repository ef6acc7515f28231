package httpapi

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/i474232898/solar-weather-analytics/internal/analytics"
	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/metrics"
	"github.com/i474232898/solar-weather-analytics/internal/store"
)

// AppOptions configure the Fiber app.
type AppOptions struct {
	Name      string
	RateLimit float64
	RateBurst int
	AccessLog bool
	// HealthCheck reports backing store connectivity on /health when set.
	HealthCheck func(ctx context.Context) error
}

// NewApp builds the Fiber app with the shared error handler, middleware,
// health and metrics endpoints. API routes are added by RegisterRoutes.
func NewApp(opts AppOptions) *fiber.App {
	if opts.Name == "" {
		opts.Name = "solar-weather-analytics"
	}

	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(recover.New())
	app.Use(metrics.Middleware())
	if opts.RateLimit > 0 {
		app.Use(RateLimit(rate.Limit(opts.RateLimit), opts.RateBurst))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if opts.HealthCheck != nil {
			if err := opts.HealthCheck(c.UserContext()); err != nil {
				log.Printf("WARN: health check failed: %v", err)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "unavailable",
					"service": opts.Name,
				})
			}
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": opts.Name,
		})
	})
	app.Get("/metrics", metrics.Handler())

	return app
}

// errorHandler renders every error as {"error": true, "message": ...}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// toHTTPError maps domain errors onto HTTP statuses.
func toHTTPError(err error) error {
	var fe *fiber.Error
	var verrs validator.ValidationErrors

	switch {
	case errors.As(err, &fe):
		return fe
	case errors.As(err, &verrs),
		errors.Is(err, errBadRequest),
		errors.Is(err, analytics.ErrEventsEmpty),
		errors.Is(err, analytics.ErrInvalidAggregate),
		errors.Is(err, analytics.ErrEmptySeries),
		errors.Is(err, analytics.ErrInvalidCondition),
		errors.Is(err, energy.ErrInvalidRecord),
		errors.Is(err, energy.ErrMissingCoefficientData):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		log.Printf("ERROR: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/solar-weather-analytics/internal/analytics"
	"github.com/i474232898/solar-weather-analytics/internal/common"
	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/metrics"
	"github.com/i474232898/solar-weather-analytics/internal/notify"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

var errBadRequest = errors.New("bad request")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("weather_attribute", func(fl validator.FieldLevel) bool {
		return common.ContainsFold(weather.ValidAttributes(), fl.Field().String())
	})
	return v
}

// Notifier runs a notification pass on demand.
type Notifier interface {
	Run(ctx context.Context) (notify.Result, error)
}

// Deps are the services the handlers call into.
type Deps struct {
	Weather            *weather.Service
	Users              UserRepository
	Fitter             *energy.Fitter
	Notifier           Notifier
	Suburbs            []string
	DefaultSurfaceArea float64
	Location           *time.Location
	Now                func() time.Time
}

type handlers struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DefaultSurfaceArea <= 0 {
		deps.DefaultSurfaceArea = 100
	}
	h := &handlers{Deps: deps}

	v1 := app.Group("/api/v1")

	v1.Get("/weather/:kind", h.weatherSeries)

	an := v1.Group("/analytics")
	an.Post("/summarise", h.summarise)
	an.Get("/analyse", h.analyse)
	an.Post("/analyse-selective", h.analyseSelective)
	an.Get("/heatmap", h.heatmap)

	v1.Get("/energy", h.energyEstimate)
	v1.Put("/users/:id", h.putUser)
	v1.Get("/users/:id", h.getUser)
	v1.Delete("/users/:id/notifications", h.clearNotifications)
	v1.Post("/users/:id/coefficients", h.recomputeCoefficients)
	v1.Post("/notifications/run", h.runNotifications)
}

// weatherSeries returns a stored series, filtered like the analyse endpoint.
func (h *handlers) weatherSeries(c *fiber.Ctx) error {
	kind := weather.DatasetKind(c.Params("kind"))
	if kind != weather.KindForecast && kind != weather.KindHistory {
		return fiber.NewError(fiber.StatusNotFound, "unknown dataset "+string(kind))
	}

	req, err := bindSeriesQuery(c)
	if err != nil {
		return toHTTPError(err)
	}
	req.History = kind == weather.KindHistory

	series, err := h.loadSeries(c.UserContext(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(series)
}

type summariseRequest struct {
	Weather json.RawMessage   `json:"weather" validate:"required"`
	Query   map[string]string `json:"query" validate:"required"`
}

// summarise runs selective analytics over a series supplied in the body.
func (h *handlers) summarise(c *fiber.Ctx) error {
	var req summariseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return toHTTPError(err)
	}

	series, err := analytics.DecodeSeries(req.Weather)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	report, err := analytics.GetAnalytics(series, analytics.Query(req.Query), "")
	metrics.RecordAnalytics("summarise", err)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(report)
}

// analyse applies one aggregate list to every attribute of a stored series.
func (h *handlers) analyse(c *fiber.Ctx) error {
	req, err := bindSeriesQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	series, err := h.loadSeries(c.UserContext(), req)
	if err != nil {
		return toHTTPError(err)
	}

	report, err := analytics.GetAnalytics(series, nil, req.Aggregates)
	metrics.RecordAnalytics("uniform", err)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(report)
}

type selectiveRequest struct {
	Query map[string]string `json:"query" validate:"required,min=1"`
}

// analyseSelective applies per-attribute aggregate lists to a stored series.
func (h *handlers) analyseSelective(c *fiber.Ctx) error {
	req, err := bindSeriesQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	var body selectiveRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return toHTTPError(err)
	}

	series, err := h.loadSeries(c.UserContext(), req)
	if err != nil {
		return toHTTPError(err)
	}

	report, err := analytics.GetAnalytics(series, analytics.Query(body.Query), "")
	metrics.RecordAnalytics("selective", err)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(report)
}

// heatmap returns the mean of one condition for every configured suburb's history.
func (h *handlers) heatmap(c *fiber.Ctx) error {
	condition := c.Query("condition")
	if condition == "" {
		return fiber.NewError(fiber.StatusBadRequest, "condition is required")
	}

	entries := h.Weather.Collect(c.UserContext(), weather.KindHistory, h.Suburbs)
	means, err := analytics.HeatmapMeans(entries, condition)
	metrics.RecordAnalytics("heatmap", err)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{
		"condition": condition,
		"data":      means,
	})
}

// energyEstimate returns the hourly production and consumption estimate of a user
// over their suburb's forecast.
func (h *handlers) energyEstimate(c *fiber.Ctx) error {
	userID := c.Query("userID")
	if userID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "userID is required")
	}
	ctx := c.UserContext()

	profile, err := h.profile(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}
	if profile.Suburb == "" {
		return fiber.NewError(fiber.StatusBadRequest, "user has no suburb")
	}

	coeffs, _, err := h.Fitter.Ensure(ctx, profile)
	if err != nil {
		return toHTTPError(err)
	}

	series, err := h.Weather.Series(ctx, weather.KindForecast, profile.Suburb)
	if err != nil {
		return toHTTPError(err)
	}
	today := h.Now().In(h.Location)
	series = weather.Filter(series, today, time.Time{}, nil)

	surfaceArea := h.DefaultSurfaceArea
	if profile.SurfaceArea != nil {
		surfaceArea = *profile.SurfaceArea
	}

	estimate := energy.Estimate(series, energy.Params{
		SurfaceArea:           surfaceArea,
		Coefficients:          coeffs,
		ProductionCoefficient: energy.ProductionCoefficient(profile, today),
		BaselineOffset:        energy.BaselineOffset(profile),
	})
	return c.JSON(estimate)
}

// recomputeCoefficients discards a user's cached coefficients and fits them again.
func (h *handlers) recomputeCoefficients(c *fiber.Ctx) error {
	userID := c.Params("id")
	ctx := c.UserContext()

	profile, err := h.profile(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}

	coeffs, err := h.Fitter.Recompute(ctx, profile)
	metrics.RecordFit("consumption", err)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{
		"userID":       userID,
		"coefficients": coeffs,
	})
}

func (h *handlers) runNotifications(c *fiber.Ctx) error {
	if h.Notifier == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "notifications are disabled")
	}
	res, err := h.Notifier.Run(c.UserContext())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(res)
}

func (h *handlers) profile(ctx context.Context, userID string) (energy.Profile, error) {
	rec, err := h.Users.GetUser(ctx, userID)
	if err != nil {
		return energy.Profile{}, err
	}
	return energy.ParseProfile(userID, rec)
}

func (h *handlers) loadSeries(ctx context.Context, req seriesQuery) (weather.Series, error) {
	if len(h.Suburbs) > 0 && !common.ContainsFold(h.Suburbs, req.Suburb) {
		return weather.Series{}, fiber.NewError(fiber.StatusNotFound, "unknown suburb "+req.Suburb)
	}

	kind := weather.KindForecast
	if req.History {
		kind = weather.KindHistory
	}
	series, err := h.Weather.Series(ctx, kind, req.Suburb)
	if err != nil {
		return weather.Series{}, err
	}
	return weather.Filter(series, req.from, req.to, req.Attributes), nil
}

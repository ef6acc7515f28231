package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TotalRequests counts total HTTP requests
	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration measures request latency
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// ActiveRequests tracks number of in-flight HTTP requests
	ActiveRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)

	// AnalyticsReports counts analytics computations by mode and outcome
	AnalyticsReports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_reports_total",
			Help: "Total number of analytics reports computed",
		},
		[]string{"mode", "outcome"},
	)

	// CoefficientFits counts coefficient fits by kind and outcome
	CoefficientFits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coefficient_fits_total",
			Help: "Total number of user coefficient fits",
		},
		[]string{"kind", "outcome"},
	)

	// NotificationsSent counts dispatched alerts by type
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of energy alerts sent",
		},
		[]string{"alert"},
	)

	// SeriesFetches counts provider fetch jobs by outcome
	SeriesFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "series_fetches_total",
			Help: "Total number of weather series fetch jobs per suburb",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(TotalRequests)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ActiveRequests)

	prometheus.MustRegister(AnalyticsReports)
	prometheus.MustRegister(CoefficientFits)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(SeriesFetches)
}

// Outcome renders an error as a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAnalytics counts one analytics computation.
func RecordAnalytics(mode string, err error) {
	AnalyticsReports.WithLabelValues(mode, Outcome(err)).Inc()
}

// RecordFit counts one coefficient fit.
func RecordFit(kind string, err error) {
	CoefficientFits.WithLabelValues(kind, Outcome(err)).Inc()
}

// RecordNotification counts one dispatched alert.
func RecordNotification(alert string) {
	NotificationsSent.WithLabelValues(alert).Inc()
}

// RecordFetch counts one suburb fetch job.
func RecordFetch(err error) {
	SeriesFetches.WithLabelValues(Outcome(err)).Inc()
}

// Middleware records request metrics. Routes are labelled by their registered
// pattern to keep cardinality bounded.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		ActiveRequests.Inc()
		defer ActiveRequests.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		route := c.Route().Path
		TotalRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler serves the Prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

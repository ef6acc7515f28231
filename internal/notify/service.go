package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/metrics"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

// forecastDays is the window a user's notification summarises, today included.
const forecastDays = 7

// Forecasts supplies stored forecast series.
type Forecasts interface {
	Series(ctx context.Context, kind weather.DatasetKind, suburb string) (weather.Series, error)
}

// Notification is one alert addressed to a user.
type Notification struct {
	ID        string
	UserID    string
	Email     string
	Alert     energy.Alert
	Subject   string
	Message   string
	Detail    string
	CreatedAt time.Time
}

// Sender delivers notifications.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(_ context.Context, n Notification) error {
	log.Printf("INFO: notify: [%s] to %s <%s>: %s", n.ID, n.UserID, n.Email, n.Message)
	return nil
}

// Result summarises a notification run.
type Result struct {
	Users    int `json:"users"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Options configure a Service.
type Options struct {
	DefaultSurfaceArea float64
	Location           *time.Location
	Now                func() time.Time
}

// Service runs the energy notification pass over every user.
type Service struct {
	users     energy.UserStore
	fitter    *energy.Fitter
	forecasts Forecasts
	sender    Sender
	opts      Options
}

func NewService(users energy.UserStore, fitter *energy.Fitter, forecasts Forecasts, sender Sender, opts Options) *Service {
	if opts.DefaultSurfaceArea <= 0 {
		opts.DefaultSurfaceArea = 100
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if sender == nil {
		sender = LogSender{}
	}
	return &Service{
		users:     users,
		fitter:    fitter,
		forecasts: forecasts,
		sender:    sender,
		opts:      opts,
	}
}

var errSkipped = errors.New("skipped")

// Run processes every stored user. Failures for one user are logged and counted;
// only a failure to list users aborts the run.
func (s *Service) Run(ctx context.Context) (Result, error) {
	ids, err := s.users.ListUsers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list users: %w", err)
	}

	var res Result
	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Users++

		notified, err := s.handleUser(ctx, id)
		switch {
		case errors.Is(err, errSkipped):
			res.Skipped++
		case err != nil:
			log.Printf("ERROR: notify: user %s: %v", id, err)
			res.Failed++
		case notified:
			res.Notified++
		}
	}

	log.Printf("INFO: notify: run complete: %d users, %d notified, %d skipped, %d failed",
		res.Users, res.Notified, res.Skipped, res.Failed)
	return res, nil
}

func (s *Service) handleUser(ctx context.Context, userID string) (bool, error) {
	rec, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	profile, err := energy.ParseProfile(userID, rec)
	if err != nil {
		return false, err
	}

	surfaceArea := s.opts.DefaultSurfaceArea
	if profile.SurfaceArea != nil {
		surfaceArea = *profile.SurfaceArea
	}

	if energy.HasProductionData(profile) && len(profile.ProductionCoefficient) == 0 {
		coeffs, err := s.fitter.EnsureProduction(ctx, profile, surfaceArea)
		metrics.RecordFit("production", err)
		if err != nil {
			log.Printf("WARN: notify: production coefficients for user %s: %v", userID, err)
		} else {
			profile.ProductionCoefficient = coeffs
		}
	}

	if !profile.ReceiveEmails {
		return false, errSkipped
	}

	coeffs, ok, err := s.fitter.Ensure(ctx, profile)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Printf("DEBUG: notify: user %s has no quarterly data, skipping", userID)
		return false, errSkipped
	}

	if profile.Suburb == "" || profile.UpperLimit == nil || profile.LowerLimit == nil {
		return false, errSkipped
	}

	series, err := s.forecasts.Series(ctx, weather.KindForecast, profile.Suburb)
	if err != nil {
		return false, fmt.Errorf("forecast for %s: %w", profile.Suburb, err)
	}
	today := s.opts.Now().In(s.opts.Location)
	series = weather.Filter(series, today, today.AddDate(0, 0, forecastDays-1), nil)

	summary := energy.SummariseForecast(series, surfaceArea)
	production := summary.Generation * energy.ProductionCoefficient(profile, today)
	consumption := energy.Consumption(coeffs, summary.TemperatureAverage, summary.DaylightAverage, energy.BaselineOffset(profile))

	decision := energy.Decide(production, consumption, *profile.UpperLimit, *profile.LowerLimit)
	if decision.Alert == energy.AlertNone {
		return false, nil
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     profile.Email,
		Alert:     decision.Alert,
		Subject:   "New energy notification",
		Message:   decision.Message,
		Detail:    decision.Detail,
		CreatedAt: today,
	}
	if err := s.sender.Send(ctx, n); err != nil {
		return false, fmt.Errorf("send notification: %w", err)
	}
	metrics.RecordNotification(decision.Alert.String())

	history := append(profile.Notifications, decision.Message)
	if err := s.users.UpdateUser(ctx, userID, energy.Record{
		energy.FieldNotifications: energy.FormatNotifications(history),
	}); err != nil {
		return true, fmt.Errorf("persist notification: %w", err)
	}
	return true, nil
}

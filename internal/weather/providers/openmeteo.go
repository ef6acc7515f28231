package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
	"github.com/sony/gobreaker"
)

const (
	openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"
	openMeteoArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"
)

// HourlyConditions are requested for every forecast.
var HourlyConditions = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"precipitation_probability",
	"precipitation",
	"cloud_cover",
	"weather_code",
	"apparent_temperature",
	"surface_pressure",
	"wind_gusts_10m",
	"visibility",
	"wind_speed_10m",
	"wind_direction_10m",
	"uv_index",
	"shortwave_radiation",
}

// DailyConditions are requested for forecasts and history.
var DailyConditions = []string{"daylight_duration", "sunshine_duration"}

// historyHourly are averaged into one value per day for history series.
var historyHourly = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"precipitation",
	"cloud_cover",
	"wind_speed_10m",
	"shortwave_radiation",
}

// OpenMeteoOptions configure an OpenMeteoProvider. Zero fields take defaults.
type OpenMeteoOptions struct {
	ForecastURL  string
	ArchiveURL   string
	Timezone     string
	ForecastDays int
	HistoryDays  int
	Backoff      BackoffConfig
	Now          func() time.Time
}

// OpenMeteoProvider implements weather.Provider for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	opts    OpenMeteoOptions
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, opts OpenMeteoOptions) *OpenMeteoProvider {
	if opts.ForecastURL == "" {
		opts.ForecastURL = openMeteoForecastURL
	}
	if opts.ArchiveURL == "" {
		opts.ArchiveURL = openMeteoArchiveURL
	}
	if opts.Timezone == "" {
		opts.Timezone = weather.DefaultTimezone
	}
	if opts.ForecastDays <= 0 {
		opts.ForecastDays = 7
	}
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 31
	}
	if opts.Backoff.InitialInterval <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &OpenMeteoProvider{
		name: "openmeteo",
		opts: opts,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: opts.Backoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchSeries fetches the hourly and daily forecast, or the daily history window, for loc.
func (p *OpenMeteoProvider) FetchSeries(ctx context.Context, loc weather.Location, kind weather.DatasetKind) (weather.Series, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	values.Set("timezone", p.opts.Timezone)
	values.Set("daily", strings.Join(DailyConditions, ","))

	base := p.opts.ForecastURL
	switch kind {
	case weather.KindForecast:
		values.Set("hourly", strings.Join(HourlyConditions, ","))
		values.Set("forecast_days", strconv.Itoa(p.opts.ForecastDays))
	case weather.KindHistory:
		base = p.opts.ArchiveURL
		end := p.opts.Now().AddDate(0, 0, -1)
		start := end.AddDate(0, 0, -(p.opts.HistoryDays - 1))
		values.Set("hourly", strings.Join(historyHourly, ","))
		values.Set("start_date", start.Format("2006-01-02"))
		values.Set("end_date", end.Format("2006-01-02"))
	default:
		return weather.Series{}, fmt.Errorf("openmeteo: unsupported dataset kind %q", kind)
	}

	var payload openMeteoResponse
	if err := getJSON(ctx, p.httpCfg, p.circuit, base+"?"+values.Encode(), &payload); err != nil {
		return weather.Series{}, fmt.Errorf("openmeteo %s for %s: %w", kind, loc.Suburb, err)
	}

	return buildSeries(payload, loc, kind, p.opts.Now())
}

type openMeteoResponse struct {
	Timezone         string                     `json:"timezone"`
	UTCOffsetSeconds int                        `json:"utc_offset_seconds"`
	HourlyUnits      map[string]string          `json:"hourly_units"`
	Hourly           map[string]json.RawMessage `json:"hourly"`
	DailyUnits       map[string]string          `json:"daily_units"`
	Daily            map[string]json.RawMessage `json:"daily"`
}

// block is one decoded hourly or daily section: parallel arrays keyed by variable.
type block struct {
	times  []string
	values map[string][]*float64
}

func decodeBlock(raw map[string]json.RawMessage) (block, error) {
	b := block{values: make(map[string][]*float64, len(raw))}
	if len(raw) == 0 {
		return b, nil
	}
	if err := json.Unmarshal(raw["time"], &b.times); err != nil {
		return block{}, fmt.Errorf("decode time column: %w", err)
	}
	for name, col := range raw {
		if name == "time" {
			continue
		}
		var vs []*float64
		if err := json.Unmarshal(col, &vs); err != nil {
			return block{}, fmt.Errorf("decode %s column: %w", name, err)
		}
		if len(vs) != len(b.times) {
			return block{}, fmt.Errorf("column %s has %d values for %d timestamps", name, len(vs), len(b.times))
		}
		b.values[name] = vs
	}
	return b, nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type AppConfig struct {
	Port string

	// FetchInterval controls how often forecasts are refreshed for each suburb.
	FetchInterval time.Duration
	// NotifyCron is the cron expression of the daily notification run.
	NotifyCron string
	Timezone   *time.Location

	// Suburbs to track.
	Suburbs []weather.Location

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SeriesTTL     time.Duration

	HTTPTimeout  time.Duration
	ForecastDays int
	HistoryDays  int

	DefaultSurfaceArea float64
	DaylightSign       energy.SignConvention

	RateLimit float64
	RateBurst int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.NotifyCron = getenvDefault("NOTIFY_CRON", "0 7 * * *")

	var err error
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.SeriesTTL, err = getenvDuration("SERIES_TTL", "24h"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	tz := getenvDefault("TIMEZONE", weather.DefaultTimezone)
	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if cfg.Suburbs, err = parseSuburbs(os.Getenv("SUBURBS")); err != nil {
		return nil, fmt.Errorf("invalid SUBURBS: %w", err)
	}

	cfg.StoreBackend = strings.ToLower(getenvDefault("STORE_BACKEND", BackendMemory))
	if cfg.StoreBackend != BackendMemory && cfg.StoreBackend != BackendRedis {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getenvInt("REDIS_DB", 0)

	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 7)
	cfg.HistoryDays = getenvInt("HISTORY_DAYS", 31)
	cfg.DefaultSurfaceArea = getenvFloat("DEFAULT_SURFACE_AREA", 100)

	if cfg.DaylightSign, err = energy.ParseSignConvention(getenvDefault("DAYLIGHT_SIGN", "solved")); err != nil {
		return nil, fmt.Errorf("invalid DAYLIGHT_SIGN: %w", err)
	}

	cfg.RateLimit = getenvFloat("RATE_LIMIT", 200)
	cfg.RateBurst = getenvInt("RATE_BURST", 400)

	return cfg, nil
}

// parseSuburbs reads "Name:lat:lon" entries separated by commas.
func parseSuburbs(s string) ([]weather.Location, error) {
	var locs []weather.Location
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q: want Name:lat:lon", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: latitude: %w", entry, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: longitude: %w", entry, err)
		}
		locs = append(locs, weather.Location{
			Suburb:    strings.TrimSpace(parts[0]),
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return locs, nil
}

// SuburbNames returns the configured suburb names in order.
func (c *AppConfig) SuburbNames() []string {
	names := make([]string, len(c.Suburbs))
	for i, s := range c.Suburbs {
		names[i] = s.Suburb
	}
	return names
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

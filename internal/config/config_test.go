package config

import (
	"testing"
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/energy"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SUBURBS", "Kensington:-33.9:151.22, Coogee:-33.92:151.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FetchInterval != time.Hour || cfg.SeriesTTL != 24*time.Hour {
		t.Fatalf("unexpected durations %v %v", cfg.FetchInterval, cfg.SeriesTTL)
	}
	if cfg.StoreBackend != BackendMemory || cfg.DaylightSign != energy.SignSolved {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Suburbs) != 2 || cfg.Suburbs[1].Suburb != "Coogee" || cfg.Suburbs[0].Latitude != -33.9 {
		t.Fatalf("unexpected suburbs %+v", cfg.Suburbs)
	}
	if names := cfg.SuburbNames(); names[0] != "Kensington" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"duration":   {"FETCH_INTERVAL", "hourly"},
		"suburb":     {"SUBURBS", "Kensington:-33.9"},
		"backend":    {"STORE_BACKEND", "dynamodb"},
		"sign":       {"DAYLIGHT_SIGN", "absolute"},
		"coordinate": {"SUBURBS", "Kensington:north:151.22"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("TIMEZONE", "UTC")
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

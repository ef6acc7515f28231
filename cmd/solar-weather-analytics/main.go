package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	httpapi "github.com/i474232898/solar-weather-analytics/internal/api/http"
	"github.com/i474232898/solar-weather-analytics/internal/config"
	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/notify"
	"github.com/i474232898/solar-weather-analytics/internal/scheduler"
	"github.com/i474232898/solar-weather-analytics/internal/store"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
	"github.com/i474232898/solar-weather-analytics/internal/weather/providers"
)

// backend is what both the series and the user side need from a store.
type backend interface {
	weather.Store
	energy.UserStore
	energy.UserWriter
}

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var (
		st          backend
		healthCheck func(context.Context) error
	)
	switch cfg.StoreBackend {
	case config.BackendRedis:
		startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rs, err := store.NewRedisStore(startCtx, store.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			SeriesTTL: cfg.SeriesTTL,
		})
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer rs.Close()
		st, healthCheck = rs, rs.HealthCheck
		log.Printf("INFO: using redis store at %s", cfg.RedisAddr)
	default:
		st = store.NewMemoryStore(cfg.SeriesTTL)
		log.Println("INFO: using in-memory store")
	}

	// Open-Meteo needs no API key; retries and the circuit breaker live in the provider.
	provider := providers.NewOpenMeteoProvider(httpClient, providers.OpenMeteoOptions{
		Timezone:     cfg.Timezone.String(),
		ForecastDays: cfg.ForecastDays,
		HistoryDays:  cfg.HistoryDays,
	})
	service := weather.NewService(st, provider)

	fitter := energy.NewFitter(st, cfg.DaylightSign)
	notifier := notify.NewService(st, fitter, service, notify.LogSender{}, notify.Options{
		DefaultSurfaceArea: cfg.DefaultSurfaceArea,
		Location:           cfg.Timezone,
	})

	sched := scheduler.New(scheduler.Config{
		Suburbs:       cfg.Suburbs,
		FetchInterval: cfg.FetchInterval,
		NotifyCron:    cfg.NotifyCron,
		Location:      cfg.Timezone,
	}, service, notifier)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.AppOptions{
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		AccessLog:   true,
		HealthCheck: healthCheck,
	})
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:            service,
		Users:              st,
		Fitter:             fitter,
		Notifier:           notifier,
		Suburbs:            cfg.SuburbNames(),
		DefaultSurfaceArea: cfg.DefaultSurfaceArea,
		Location:           cfg.Timezone,
	})

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s, tracking %d suburbs", cfg.Port, len(cfg.Suburbs))

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

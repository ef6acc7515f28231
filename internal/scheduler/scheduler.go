package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/solar-weather-analytics/internal/metrics"
	"github.com/i474232898/solar-weather-analytics/internal/notify"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

const (
	fetchTimeout  = 30 * time.Second
	notifyTimeout = 5 * time.Minute
)

// Fetcher refreshes the stored series of one suburb.
type Fetcher interface {
	FetchAndStore(ctx context.Context, loc weather.Location) error
}

// Notifier runs the notification pass.
type Notifier interface {
	Run(ctx context.Context) (notify.Result, error)
}

// Config holds the schedules.
type Config struct {
	Suburbs       []weather.Location
	FetchInterval time.Duration
	NotifyCron    string
	Location      *time.Location
}

// Scheduler periodically refreshes suburb forecasts and runs notifications.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	notifier  Notifier
	cfg       Config
}

// New creates a new Scheduler. notifier may be nil to disable notifications.
func New(cfg Config, fetcher Fetcher, notifier Notifier) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		fetcher:   fetcher,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.cfg.Suburbs) == 0 {
		log.Println("scheduler: no suburbs configured; forecasts will not be refreshed")
	} else {
		interval := s.cfg.FetchInterval
		if interval <= 0 {
			interval = time.Hour
		}
		if _, err := s.scheduler.Every(interval).Do(s.fetchJob); err != nil {
			return err
		}
	}

	if s.notifier != nil && s.cfg.NotifyCron != "" {
		if _, err := s.scheduler.Cron(s.cfg.NotifyCron).Do(s.notifyJob); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunFetch refreshes every configured suburb concurrently and returns the number of failures.
func (s *Scheduler) RunFetch(ctx context.Context) int {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures int
	)
	for _, loc := range s.cfg.Suburbs {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
			defer cancel()

			err := s.fetcher.FetchAndStore(fetchCtx, loc)
			metrics.RecordFetch(err)
			if err != nil {
				log.Printf("scheduler: fetch failed for %s: %v", loc.Suburb, err)
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return failures
}

func (s *Scheduler) fetchJob() {
	log.Println("scheduler: running forecast fetch job")
	failures := s.RunFetch(context.Background())
	log.Printf("scheduler: completed forecast fetch job (%d/%d failed)", failures, len(s.cfg.Suburbs))
}

func (s *Scheduler) notifyJob() {
	log.Println("scheduler: running notification job")
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if _, err := s.notifier.Run(ctx); err != nil {
		log.Printf("scheduler: notification run failed: %v", err)
	}
}

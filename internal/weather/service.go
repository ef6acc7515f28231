package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrNoProvider is returned when a fetch is requested without a configured provider.
var ErrNoProvider = errors.New("no weather provider configured")

// SuburbSeries pairs a suburb with its stored series.
type SuburbSeries struct {
	Suburb string
	Series Series
}

// Service orchestrates fetching series from the provider and persisting them.
type Service struct {
	store    Store
	provider Provider
}

// NewService creates a new Service. provider may be nil for read-only use.
func NewService(store Store, provider Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
	}
}

// FetchAndStore fetches the forecast and history series for loc concurrently
// and stores every one that succeeds. It only fails when nothing was stored.
func (s *Service) FetchAndStore(ctx context.Context, loc Location) error {
	if s.provider == nil {
		log.Printf("ERROR: No provider available to fetch weather data for %s", loc.Suburb)
		return ErrNoProvider
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, kind := range []DatasetKind{KindForecast, KindHistory} {
		kind := kind
		wg.Add(1)
		go func() {
			defer wg.Done()

			series, err := s.provider.FetchSeries(ctx, loc, kind)
			if err == nil {
				err = s.store.PutSeries(ctx, SeriesKey(kind, loc.Suburb), series)
			}
			if err != nil {
				log.Printf("provider %s %s fetch failed for %s: %v", s.provider.Name(), kind, loc.Suburb, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if len(errs) == 2 {
		return errors.Join(errs...)
	}
	return nil
}

// Series returns the stored series of the given kind for a suburb.
func (s *Service) Series(ctx context.Context, kind DatasetKind, suburb string) (Series, error) {
	return s.store.GetSeries(ctx, SeriesKey(kind, suburb))
}

// Collect loads the series of every suburb concurrently. Suburbs that cannot be
// read are logged and left out; results keep the order of suburbs.
func (s *Service) Collect(ctx context.Context, kind DatasetKind, suburbs []string) []SuburbSeries {
	results := make([]*SuburbSeries, len(suburbs))

	var wg sync.WaitGroup
	for i, suburb := range suburbs {
		i, suburb := i, suburb
		wg.Add(1)
		go func() {
			defer wg.Done()

			series, err := s.Series(ctx, kind, suburb)
			if err != nil {
				log.Printf("WARN: skipping %s series for %s: %v", kind, suburb, err)
				return
			}
			results[i] = &SuburbSeries{Suburb: suburb, Series: series}
		}()
	}
	wg.Wait()

	out := make([]SuburbSeries, 0, len(suburbs))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

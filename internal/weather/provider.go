package weather

import (
	"context"
)

// Provider abstracts a weather data source able to produce whole series
// (e.g. Open-Meteo hourly forecast or the trailing history window).
type Provider interface {
	Name() string
	FetchSeries(ctx context.Context, loc Location, kind DatasetKind) (Series, error)
}

// Store is the object-store contract: a series document per key.
// Implementations return their own not-found error when a key is absent.
type Store interface {
	PutSeries(ctx context.Context, key string, series Series) error
	GetSeries(ctx context.Context, key string) (Series, error)
}

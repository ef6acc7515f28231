package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

var (
	// ErrNotFound is returned when no series or user exists under the requested key.
	ErrNotFound = errors.New("not found")
)

type storedSeries struct {
	series   weather.Series
	storedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory series and user store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: series key, value: latest series written under it
	series map[string]storedSeries
	users  map[string]energy.Record

	// ttl is the optional max age of a stored series
	ttl time.Duration
	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore.
// If ttl is <= 0, series never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		series: make(map[string]storedSeries),
		users:  make(map[string]energy.Record),
		ttl:    ttl,
		now:    time.Now,
	}
}

// PutSeries replaces the series stored under key.
func (s *MemoryStore) PutSeries(_ context.Context, key string, series weather.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series[key] = storedSeries{series: series, storedAt: s.now()}
	return nil
}

// GetSeries returns the series stored under key. Expired series are dropped.
func (s *MemoryStore) GetSeries(_ context.Context, key string) (weather.Series, error) {
	s.mu.RLock()
	stored, ok := s.series[key]
	s.mu.RUnlock()

	if !ok {
		return weather.Series{}, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(stored.storedAt) > s.ttl {
		s.mu.Lock()
		// A put may have landed since the read lock was released.
		if cur, ok := s.series[key]; ok && cur.storedAt.Equal(stored.storedAt) {
			delete(s.series, key)
		}
		s.mu.Unlock()
		return weather.Series{}, ErrNotFound
	}
	return stored.series, nil
}

// PutUser creates or replaces a user record.
func (s *MemoryStore) PutUser(_ context.Context, userID string, rec energy.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[userID] = copyRecord(rec)
	return nil
}

// GetUser returns a copy of the user record.
func (s *MemoryStore) GetUser(_ context.Context, userID string) (energy.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// UpdateUser sets fields on an existing user record.
func (s *MemoryStore) UpdateUser(_ context.Context, userID string, fields energy.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		rec[k] = v
	}
	return nil
}

// ListUsers returns all user ids in ascending order.
func (s *MemoryStore) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func copyRecord(rec energy.Record) energy.Record {
	out := make(energy.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

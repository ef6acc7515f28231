package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]Series
}

var errMissing = errors.New("missing")

func (f *fakeStore) PutSeries(_ context.Context, key string, s Series) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = make(map[string]Series)
	}
	f.data[key] = s
	return nil
}

func (f *fakeStore) GetSeries(_ context.Context, key string) (Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[key]
	if !ok {
		return Series{}, errMissing
	}
	return s, nil
}

type fakeProvider struct {
	failKind DatasetKind
}

func (p fakeProvider) Name() string { return "fake" }

func (p fakeProvider) FetchSeries(_ context.Context, loc Location, kind DatasetKind) (Series, error) {
	if kind == p.failKind || p.failKind == "all" {
		return Series{}, errors.New("boom")
	}
	return Series{DatasetType: string(kind), Events: []Event{testEvent("2024-04-01T10:00:00+11:00", 20, 100)}}, nil
}

func TestFetchAndStorePartialSuccess(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, fakeProvider{failKind: KindHistory})

	if err := svc.FetchAndStore(context.Background(), Location{Suburb: "kensington"}); err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}

	s, err := svc.Series(context.Background(), KindForecast, "Kensington")
	if err != nil {
		t.Fatalf("expected forecast to be stored: %v", err)
	}
	if s.DatasetType != string(KindForecast) {
		t.Fatalf("unexpected series stored: %+v", s)
	}
	if _, err := svc.Series(context.Background(), KindHistory, "Kensington"); err == nil {
		t.Fatalf("history should not have been stored")
	}
}

func TestFetchAndStoreAllFail(t *testing.T) {
	svc := NewService(&fakeStore{}, fakeProvider{failKind: "all"})
	if err := svc.FetchAndStore(context.Background(), Location{Suburb: "Kensington"}); err == nil {
		t.Fatalf("expected an error when every fetch fails")
	}

	svc = NewService(&fakeStore{}, nil)
	if err := svc.FetchAndStore(context.Background(), Location{Suburb: "Kensington"}); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestCollectSkipsMissingSuburbs(t *testing.T) {
	store := &fakeStore{}
	_ = store.PutSeries(context.Background(), SeriesKey(KindHistory, "Kensington"), Series{DatasetID: "k"})
	_ = store.PutSeries(context.Background(), SeriesKey(KindHistory, "Randwick"), Series{DatasetID: "r"})

	svc := NewService(store, nil)
	got := svc.Collect(context.Background(), KindHistory, []string{"Kensington", "Nowhere", "Randwick"})

	if len(got) != 2 {
		t.Fatalf("expected 2 suburbs, got %d", len(got))
	}
	if got[0].Suburb != "Kensington" || got[1].Suburb != "Randwick" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

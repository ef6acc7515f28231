package energy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

func event(attrs map[string]float64) weather.Event {
	a := weather.Attributes{}
	for k, v := range attrs {
		a[k] = weather.Number(v)
	}
	return weather.Event{Attributes: a}
}

func TestGenerationDeratesAboveThreshold(t *testing.T) {
	if got := Generation(10, 100, 25); got != 1000 {
		t.Fatalf("expected no derating at 25°C, got %v", got)
	}
	if got := Generation(10, 100, 30); !approx(got, 980) {
		t.Fatalf("expected 980, got %v", got)
	}
}

func TestEstimateCarriesValuesForward(t *testing.T) {
	series := weather.Series{Events: []weather.Event{
		event(map[string]float64{"temperature_2m": 20, "shortwave_radiation": 800, "daylight_duration": 43200}),
		event(map[string]float64{"temperature_2m": 30}),
		event(nil),
	}}
	params := Params{
		SurfaceArea:           100,
		Coefficients:          Coefficients{Temp: 2, Daylight: 0.5},
		ProductionCoefficient: 1.5,
		BaselineOffset:        600,
	}

	got := Estimate(series, params)
	wantProduction := []float64{15000, 14700, 14700}
	wantConsumption := []float64{1507.2, 1512.8, 1512.8}
	if len(got.Production) != 3 || len(got.Consumption) != 3 {
		t.Fatalf("unexpected lengths %d/%d", len(got.Production), len(got.Consumption))
	}
	for i := range wantProduction {
		if !approx(got.Production[i], wantProduction[i]) {
			t.Errorf("production[%d] = %v, want %v", i, got.Production[i], wantProduction[i])
		}
		if !approx(got.Consumption[i], wantConsumption[i]) {
			t.Errorf("consumption[%d] = %v, want %v", i, got.Consumption[i], wantConsumption[i])
		}
	}
}

func TestEstimateStartsFromUnitValues(t *testing.T) {
	got := Estimate(weather.Series{Events: []weather.Event{event(nil)}}, Params{SurfaceArea: 10, ProductionCoefficient: 2})
	if got.Production[0] != 20 {
		t.Fatalf("expected 20, got %v", got.Production[0])
	}
}

func TestEstimateTruncatesToOneWeek(t *testing.T) {
	events := make([]weather.Event, 200)
	for i := range events {
		events[i] = event(map[string]float64{"temperature_2m": 20})
	}
	got := Estimate(weather.Series{Events: events}, Params{SurfaceArea: 1, ProductionCoefficient: 1})
	if len(got.Production) != MaxSteps || len(got.Consumption) != MaxSteps {
		t.Fatalf("expected %d steps, got %d/%d", MaxSteps, len(got.Production), len(got.Consumption))
	}
}

func TestBaselineOffset(t *testing.T) {
	if got := BaselineOffset(Profile{}); got != DefaultBaselineOffset {
		t.Fatalf("expected default offset, got %v", got)
	}
	if got := BaselineOffset(Profile{QuarterlyConsumption: []float64{400, 500, 600, 700}}); got != 550 {
		t.Fatalf("expected 550, got %v", got)
	}
}

func TestSummariseForecast(t *testing.T) {
	series := weather.Series{Events: []weather.Event{
		event(map[string]float64{"temperature_2m": 20, "shortwave_radiation": 800, "daylight_duration": 40000}),
		event(map[string]float64{"temperature_2m": 0, "shortwave_radiation": 800}),
		event(map[string]float64{"temperature_2m": 30, "shortwave_radiation": 400}),
	}}

	s := SummariseForecast(series, 100)
	if !approx(s.Generation, 298) {
		t.Errorf("generation = %v, want 298", s.Generation)
	}
	if s.TemperatureAverage != 25 {
		t.Errorf("temperature average = %v, want 25", s.TemperatureAverage)
	}
	if s.DaylightAverage != 40000 {
		t.Errorf("daylight average = %v, want 40000", s.DaylightAverage)
	}

	if empty := SummariseForecast(weather.Series{}, 100); empty != (Summary{}) {
		t.Errorf("expected zero summary, got %+v", empty)
	}
}

func TestSeasonIndex(t *testing.T) {
	cases := map[time.Month]int{
		time.December: Summer, time.January: Summer, time.February: Summer,
		time.March: Autumn, time.May: Autumn,
		time.June: Winter, time.August: Winter,
		time.September: Spring, time.November: Spring,
	}
	for m, want := range cases {
		if got := SeasonIndex(m); got != want {
			t.Errorf("SeasonIndex(%s) = %d, want %d", m, got, want)
		}
	}
}

func TestProductionCoefficientForSeason(t *testing.T) {
	p := Profile{ProductionCoefficient: []float64{1.1, 1.2, 1.3, 1.4}}
	if got := ProductionCoefficient(p, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)); got != 1.3 {
		t.Fatalf("expected winter coefficient 1.3, got %v", got)
	}
	if got := ProductionCoefficient(Profile{}, time.Now()); got != 1 {
		t.Fatalf("expected 1 without coefficients, got %v", got)
	}
}

func productionRecord() Record {
	return Record{
		"q1_w": "500", "q1_t": "30", "q1_r": "100",
		"q2_w": "1000", "q2_t": "20", "q2_r": "50",
		"q3_w": "400", "q3_t": "25", "q3_r": "40",
		"q4_w": "600", "q4_t": "10", "q4_r": "30",
	}
}

func TestFitProduction(t *testing.T) {
	got, err := FitProduction(mustProfile(t, "u1", productionRecord()), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1.96, 0.5, 1, 0.5}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Errorf("coefficient[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	rec := productionRecord()
	rec["q2_w"] = "0"
	if _, err := FitProduction(mustProfile(t, "u1", rec), 10); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for zero output, got %v", err)
	}
}

func TestFitterEnsureProduction(t *testing.T) {
	users := &fakeUsers{records: map[string]Record{"u1": productionRecord()}}
	f := NewFitter(users, SignSolved)

	got, err := f.EnsureProduction(context.Background(), mustProfile(t, "u1", users.records["u1"]), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 || users.records["u1"][FieldProductionCoefficient] == "" {
		t.Fatalf("production coefficients not persisted: %v", users.records["u1"])
	}

	// Stored coefficients are returned untouched.
	stored, err := f.EnsureProduction(context.Background(), mustProfile(t, "u1", users.records["u1"]), 10)
	if err != nil || users.updates != 1 || len(stored) != 4 {
		t.Fatalf("stored coefficients should be reused, updates=%d err=%v", users.updates, err)
	}
}

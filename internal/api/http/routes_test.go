package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/notify"
	"github.com/i474232898/solar-weather-analytics/internal/store"
	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

type notifierFunc func(ctx context.Context) (notify.Result, error)

func (f notifierFunc) Run(ctx context.Context) (notify.Result, error) { return f(ctx) }

func event(ts string, temp, cloud float64) weather.Event {
	return weather.Event{
		TimeObject: weather.EventTime{Timestamp: ts, Duration: 1, DurationUnit: "hr"},
		EventType:  "hourly",
		Attributes: weather.Attributes{
			"temperature_2m":      weather.Number(temp),
			"cloud_cover":         weather.Number(cloud),
			"shortwave_radiation": weather.Number(800),
			weather.AttrUnits: {Kind: weather.KindUnits, Units: weather.Units{
				"time":                "iso8601",
				"temperature_2m":      "°C",
				"cloud_cover":         "%",
				"shortwave_radiation": "W/m²",
			}},
		},
	}
}

func testSeries() weather.Series {
	return weather.Series{
		DataSource: "Weather API",
		TimeObject: weather.SeriesTime{Timestamp: "2024-04-01T00:00:00+11:00", Timezone: "Australia/Sydney"},
		Events: []weather.Event{
			event("2024-04-01T10:00:00+11:00", 20, 10),
			event("2024-04-02T10:00:00+11:00", 30, 50),
		},
	}
}

func newTestApp(t *testing.T, notifier Notifier) (*fiber.App, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore(0)

	for _, kind := range []weather.DatasetKind{weather.KindForecast, weather.KindHistory} {
		if err := mem.PutSeries(ctx, weather.SeriesKey(kind, "Kensington"), testSeries()); err != nil {
			t.Fatalf("put series: %v", err)
		}
	}
	_ = mem.PutUser(ctx, "fitted", energy.Record{
		"suburb": "Kensington", "surface_area": "10",
		"q1_w": "1000", "q1_t": "22.06", "q1_d": "50555.78",
		"q2_w": "2000", "q2_t": "16.69", "q2_d": "40677.27",
		"q3_w": "2000", "q3_t": "11.73", "q3_d": "37056.407",
		"q4_w": "1500", "q4_t": "17.75", "q4_d": "46031.35",
	})
	_ = mem.PutUser(ctx, "bare", energy.Record{"suburb": "Kensington"})

	app := NewApp(AppOptions{})
	RegisterRoutes(app, Deps{
		Weather:  weather.NewService(mem, nil),
		Users:    mem,
		Fitter:   energy.NewFitter(mem, energy.SignSolved),
		Notifier: notifier,
		Suburbs:  []string{"Kensington", "Coogee"},
		Now:      func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) },
	})
	return app, mem
}

func do(t *testing.T, app *fiber.App, method, target string, body any) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, target, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func aggregateOf(t *testing.T, report map[string]any, attr, agg string) float64 {
	t.Helper()
	data, ok := report["analytics"].(map[string]any)
	if !ok {
		t.Fatalf("missing analytics in %v", report)
	}
	byAgg, ok := data[attr].(map[string]any)
	if !ok {
		t.Fatalf("missing %s in %v", attr, data)
	}
	v, ok := byAgg[agg].(float64)
	if !ok {
		t.Fatalf("missing %s.%s in %v", attr, agg, byAgg)
	}
	return v
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, nil)
	status, body := do(t, app, http.MethodGet, "/health", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", status, body)
	}
}

func TestAnalyseUniform(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/api/v1/analytics/analyse?suburb=kensington&aggregates=mean,max", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if got := aggregateOf(t, body, "temperature_2m", "mean"); got != 25 {
		t.Fatalf("expected mean 25, got %v", got)
	}
	if got := aggregateOf(t, body, "cloud_cover", "max"); got != 50 {
		t.Fatalf("expected max 50, got %v", got)
	}
}

func TestAnalyseFiltersByDateAndAttribute(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet,
		"/api/v1/analytics/analyse?suburb=Kensington&startDate=2024-04-02&attributes=temperature_2m&aggregates=mean&history=true", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if got := aggregateOf(t, body, "temperature_2m", "mean"); got != 30 {
		t.Fatalf("expected mean 30, got %v", got)
	}
	if _, ok := body["analytics"].(map[string]any)["cloud_cover"]; ok {
		t.Fatalf("cloud_cover should have been filtered out: %v", body)
	}
}

func TestAnalyseValidation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	cases := map[string]struct {
		target string
		status int
	}{
		"missing suburb":    {"/api/v1/analytics/analyse", http.StatusBadRequest},
		"bad date":          {"/api/v1/analytics/analyse?suburb=Kensington&startDate=01-04-2024", http.StatusBadRequest},
		"end before start":  {"/api/v1/analytics/analyse?suburb=Kensington&startDate=2024-04-02&endDate=2024-04-01", http.StatusBadRequest},
		"invalid attribute": {"/api/v1/analytics/analyse?suburb=Kensington&attributes=humidity", http.StatusBadRequest},
		"invalid aggregate": {"/api/v1/analytics/analyse?suburb=Kensington&aggregates=average", http.StatusBadRequest},
		"unknown suburb":    {"/api/v1/analytics/analyse?suburb=Bondi", http.StatusNotFound},
		"not yet fetched":   {"/api/v1/analytics/analyse?suburb=Coogee", http.StatusNotFound},
		"empty window":      {"/api/v1/analytics/analyse?suburb=Kensington&startDate=2025-01-01", http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := do(t, app, http.MethodGet, tc.target, nil)
			if status != tc.status {
				t.Fatalf("expected %d, got %d: %v", tc.status, status, body)
			}
			if body["error"] != true {
				t.Fatalf("expected error body, got %v", body)
			}
		})
	}
}

func TestAnalyseSelective(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodPost, "/api/v1/analytics/analyse-selective?suburb=Kensington",
		map[string]any{"query": map[string]string{"temperature_2m": "min"}})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if got := aggregateOf(t, body, "temperature_2m", "min"); got != 20 {
		t.Fatalf("expected min 20, got %v", got)
	}
	if _, ok := body["analytics"].(map[string]any)["cloud_cover"]; ok {
		t.Fatalf("only queried attributes should be reported: %v", body)
	}

	status, _ = do(t, app, http.MethodPost, "/api/v1/analytics/analyse-selective?suburb=Kensington",
		map[string]any{"query": map[string]string{}})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty query, got %d", status)
	}
}

func TestSummarise(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodPost, "/api/v1/analytics/summarise", map[string]any{
		"weather": testSeries(),
		"query":   map[string]string{"cloud_cover": "sum,median"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if got := aggregateOf(t, body, "cloud_cover", "sum"); got != 60 {
		t.Fatalf("expected sum 60, got %v", got)
	}
	if got := aggregateOf(t, body, "cloud_cover", "median"); got != 30 {
		t.Fatalf("expected median 30, got %v", got)
	}

	status, _ = do(t, app, http.MethodPost, "/api/v1/analytics/summarise", map[string]any{
		"weather": testSeries(),
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", status)
	}

	status, _ = do(t, app, http.MethodPost, "/api/v1/analytics/summarise", map[string]any{
		"weather": weather.Series{Events: []weather.Event{}},
		"query":   map[string]string{"cloud_cover": "sum"},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty events, got %d", status)
	}
}

func TestHeatmap(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/api/v1/analytics/heatmap?condition=temperature_2m", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	entries, ok := body["data"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one suburb, got %v", body["data"])
	}
	entry := entries[0].(map[string]any)
	if entry["suburb"] != "Kensington" || entry["data"] != 25.0 {
		t.Fatalf("unexpected entry %v", entry)
	}

	status, _ = do(t, app, http.MethodGet, "/api/v1/analytics/heatmap?condition=precipitation", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported condition, got %d", status)
	}
}

func TestWeatherSeries(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/api/v1/weather/forecast?suburb=Kensington&endDate=2024-04-01", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if events := body["events"].([]any); len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}

	status, _ = do(t, app, http.MethodGet, "/api/v1/weather/archive?suburb=Kensington", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown dataset, got %d", status)
	}
}

func TestEnergyEstimate(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/api/v1/energy?userID=fitted", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	production := body["energy_production_hourly"].([]any)
	consumption := body["energy_consumption_hourly"].([]any)
	if len(production) != 2 || len(consumption) != 2 {
		t.Fatalf("expected two steps, got %v", body)
	}
	// 10 m² at 800/8 radiation, below the derating threshold.
	if p := production[0].(float64); math.Abs(p-1000) > 1e-9 {
		t.Fatalf("expected production 1000, got %v", p)
	}

	status, _ = do(t, app, http.MethodGet, "/api/v1/energy?userID=ghost", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", status)
	}
	status, _ = do(t, app, http.MethodGet, "/api/v1/energy", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without userID, got %d", status)
	}
}

func TestRecomputeCoefficients(t *testing.T) {
	app, mem := newTestApp(t, nil)

	status, body := do(t, app, http.MethodPost, "/api/v1/users/fitted/coefficients", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	coeffs := body["coefficients"].(map[string]any)
	if temp := coeffs["temp_coefficient"].(float64); math.Abs(temp-242.47594890651973) > 1e-6 {
		t.Fatalf("unexpected temp coefficient %v", temp)
	}
	rec, _ := mem.GetUser(context.Background(), "fitted")
	if rec[energy.FieldTempCoefficient] == "" {
		t.Fatalf("coefficients were not persisted: %v", rec)
	}

	status, _ = do(t, app, http.MethodPost, "/api/v1/users/bare/coefficients", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without quarterly data, got %d", status)
	}
}

func TestRunNotifications(t *testing.T) {
	app, _ := newTestApp(t, nil)
	if status, _ := do(t, app, http.MethodPost, "/api/v1/notifications/run", nil); status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without notifier, got %d", status)
	}

	app, _ = newTestApp(t, notifierFunc(func(context.Context) (notify.Result, error) {
		return notify.Result{Users: 3, Notified: 1, Skipped: 2}, nil
	}))
	status, body := do(t, app, http.MethodPost, "/api/v1/notifications/run", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
}

func TestRateLimit(t *testing.T) {
	app := NewApp(AppOptions{RateLimit: 0.001, RateBurst: 1})

	if status, _ := do(t, app, http.MethodGet, "/health", nil); status != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/health", nil); status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	app := NewApp(AppOptions{HealthCheck: func(context.Context) error { return errors.New("connection refused") }})

	status, body := do(t, app, http.MethodGet, "/health", nil)
	if status != http.StatusServiceUnavailable || body["status"] != "unavailable" {
		t.Fatalf("unexpected health response %d %v", status, body)
	}
}

func quarters() []map[string]float64 {
	return []map[string]float64{
		{"output": 1000, "temperature": 22.06, "daylight": 50555.78},
		{"output": 2000, "temperature": 16.69, "daylight": 40677.27},
		{"output": 2000, "temperature": 11.73, "daylight": 37056.407},
		{"output": 1500, "temperature": 17.75, "daylight": 46031.35},
	}
}

func TestPutUserFeedsEnergyRoutes(t *testing.T) {
	app, mem := newTestApp(t, nil)

	status, body := do(t, app, http.MethodPut, "/api/v1/users/u1", map[string]any{
		"suburb":                       "kensington",
		"surface_area":                 10,
		"quarters":                     quarters(),
		"quarterly_energy_consumption": []float64{400, 500},
		"upper_limit":                  20,
		"lower_limit":                  20,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", status, body)
	}

	rec, err := mem.GetUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("user was not stored: %v", err)
	}
	if rec[energy.FieldSuburb] != "Kensington" || rec["q1_w"] != "1000" || rec["q3_d"] != "37056.407" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec[energy.FieldReceiveEmails] != "false" || rec[energy.FieldQuarterlyConsumption] != "400,500" {
		t.Fatalf("unexpected record %v", rec)
	}

	if status, body := do(t, app, http.MethodGet, "/api/v1/energy?userID=u1", nil); status != http.StatusOK {
		t.Fatalf("expected energy estimate for the new user, got %d: %v", status, body)
	}
	if status, body := do(t, app, http.MethodPost, "/api/v1/users/u1/coefficients", nil); status != http.StatusOK {
		t.Fatalf("expected coefficients for the new user, got %d: %v", status, body)
	}
}

func TestPutUserReplacesRecord(t *testing.T) {
	app, mem := newTestApp(t, nil)
	ctx := context.Background()

	_ = mem.UpdateUser(ctx, "fitted", energy.Record{
		energy.FieldTempCoefficient: "242.47",
		energy.FieldNotifications:   "earlier alert",
	})

	status, body := do(t, app, http.MethodPut, "/api/v1/users/fitted", map[string]any{
		"suburb":         "Kensington",
		"email":          "sam@example.com",
		"receive_emails": true,
		"quarters":       quarters()[:2],
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 for a replace, got %d: %v", status, body)
	}

	rec, _ := mem.GetUser(ctx, "fitted")
	if rec[energy.FieldNotifications] != "earlier alert" {
		t.Fatalf("notification history should survive a replace: %v", rec)
	}
	if _, ok := rec[energy.FieldTempCoefficient]; ok {
		t.Fatalf("fitted coefficients should be dropped on replace: %v", rec)
	}
	if _, ok := rec["q3_w"]; ok {
		t.Fatalf("old quarterly data should be replaced: %v", rec)
	}
}

func TestPutUserValidation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	cases := map[string]map[string]any{
		"missing suburb":      {"surface_area": 10},
		"untracked suburb":    {"suburb": "Bondi"},
		"emails without addr": {"suburb": "Kensington", "receive_emails": true},
		"bad email":           {"suburb": "Kensington", "email": "not-an-address"},
		"five quarters":       {"suburb": "Kensington", "quarters": append(quarters(), quarters()[0])},
		"negative daylight":   {"suburb": "Kensington", "quarters": []map[string]float64{{"daylight": -1}}},
		"zero output":         {"suburb": "Kensington", "quarters": []map[string]float64{{"output": 0}}},
		"lower limit":         {"suburb": "Kensington", "lower_limit": 150},
		"surface area":        {"suburb": "Kensington", "surface_area": -2},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, resp := do(t, app, http.MethodPut, "/api/v1/users/u2", body)
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %v", status, resp)
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/api/v1/users/fitted?fields=suburb,q1_w,missing", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	fields := body["fields"].(map[string]any)
	if len(fields) != 2 || fields["suburb"] != "Kensington" || fields["q1_w"] != "1000" {
		t.Fatalf("unexpected fields %v", fields)
	}

	status, body = do(t, app, http.MethodGet, "/api/v1/users/fitted", nil)
	if status != http.StatusOK || len(body["fields"].(map[string]any)) != 14 {
		t.Fatalf("expected the whole record, got %d: %v", status, body)
	}

	if status, _ := do(t, app, http.MethodGet, "/api/v1/users/ghost", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", status)
	}
}

func TestClearNotifications(t *testing.T) {
	app, mem := newTestApp(t, nil)
	ctx := context.Background()
	_ = mem.UpdateUser(ctx, "fitted", energy.Record{energy.FieldNotifications: "first\nsecond"})

	status, body := do(t, app, http.MethodDelete, "/api/v1/users/fitted/notifications", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	rec, _ := mem.GetUser(ctx, "fitted")
	p, err := energy.ParseProfile("fitted", rec)
	if err != nil || len(p.Notifications) != 0 {
		t.Fatalf("expected no notifications, got %v %v", p.Notifications, err)
	}

	if status, _ := do(t, app, http.MethodDelete, "/api/v1/users/ghost/notifications", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", status)
	}
}

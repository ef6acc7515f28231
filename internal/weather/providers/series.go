package providers

import (
	"fmt"
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

const (
	hourLayout = "2006-01-02T15:04"
	dayLayout  = "2006-01-02"
)

// buildSeries converts an Open-Meteo payload into a WeatherSeries. Forecasts hold hourly events
// followed by daily events; history holds one "historical" event per day with the hourly
// variables averaged over the day.
func buildSeries(resp openMeteoResponse, loc weather.Location, kind weather.DatasetKind, now time.Time) (weather.Series, error) {
	zone := resolveZone(resp.Timezone, resp.UTCOffsetSeconds)

	hourly, err := decodeBlock(resp.Hourly)
	if err != nil {
		return weather.Series{}, fmt.Errorf("hourly: %w", err)
	}
	daily, err := decodeBlock(resp.Daily)
	if err != nil {
		return weather.Series{}, fmt.Errorf("daily: %w", err)
	}

	series := weather.Series{
		DataSource:  weather.DefaultMetadata.DataSource,
		DatasetType: weather.DefaultMetadata.DatasetType,
		DatasetID:   weather.DefaultMetadata.DatasetID,
		TimeObject: weather.SeriesTime{
			Timestamp: now.In(zone).Format(time.RFC3339),
			Timezone:  zone.String(),
		},
	}

	location := weather.Attribute{Kind: weather.KindLocation, Location: loc}

	if kind == weather.KindHistory {
		units := weather.Units{}
		for k, v := range resp.DailyUnits {
			units[k] = v
		}
		for k, v := range resp.HourlyUnits {
			if k != weather.UnitTime {
				units[k] = v
			}
		}
		units[weather.UnitTime] = "iso8601"

		means := dailyMeans(hourly)
		for i, day := range daily.times {
			ts, err := time.ParseInLocation(dayLayout, day, zone)
			if err != nil {
				return weather.Series{}, fmt.Errorf("daily time %q: %w", day, err)
			}
			attrs := eventAttributes(location, units, daily, i)
			for name, v := range means[day] {
				attrs[name] = weather.Number(v)
			}
			series.Events = append(series.Events, newEvent(ts, 24, "historical", zone, attrs))
		}
		return series, nil
	}

	hourlyUnits := weather.Units(resp.HourlyUnits)
	for i, at := range hourly.times {
		ts, err := time.ParseInLocation(hourLayout, at, zone)
		if err != nil {
			return weather.Series{}, fmt.Errorf("hourly time %q: %w", at, err)
		}
		series.Events = append(series.Events, newEvent(ts, 1, "hourly", zone, eventAttributes(location, hourlyUnits, hourly, i)))
	}

	dailyUnits := weather.Units(resp.DailyUnits)
	for i, day := range daily.times {
		ts, err := time.ParseInLocation(dayLayout, day, zone)
		if err != nil {
			return weather.Series{}, fmt.Errorf("daily time %q: %w", day, err)
		}
		series.Events = append(series.Events, newEvent(ts, 24, "daily", zone, eventAttributes(location, dailyUnits, daily, i)))
	}
	return series, nil
}

func newEvent(ts time.Time, hours float64, eventType string, zone *time.Location, attrs weather.Attributes) weather.Event {
	return weather.Event{
		TimeObject: weather.EventTime{
			Timestamp:    ts.Format(time.RFC3339),
			Duration:     hours,
			DurationUnit: "hr",
			Timezone:     zone.String(),
		},
		EventType:  eventType,
		Attributes: attrs,
	}
}

// eventAttributes builds the attributes of row i. Missing (null) readings are left out.
func eventAttributes(location weather.Attribute, units weather.Units, b block, i int) weather.Attributes {
	attrs := weather.Attributes{
		weather.AttrLocation: location,
		weather.AttrUnits:    {Kind: weather.KindUnits, Units: units},
	}
	for name, col := range b.values {
		if v := col[i]; v != nil {
			attrs[name] = weather.Number(*v)
		}
	}
	return attrs
}

// dailyMeans averages every hourly column per local day.
func dailyMeans(b block) map[string]map[string]float64 {
	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[string]map[string]*acc)

	for i, at := range b.times {
		if len(at) < len(dayLayout) {
			continue
		}
		day := at[:len(dayLayout)]
		if sums[day] == nil {
			sums[day] = make(map[string]*acc)
		}
		for name, col := range b.values {
			v := col[i]
			if v == nil {
				continue
			}
			a := sums[day][name]
			if a == nil {
				a = &acc{}
				sums[day][name] = a
			}
			a.sum += *v
			a.count++
		}
	}

	out := make(map[string]map[string]float64, len(sums))
	for day, byName := range sums {
		out[day] = make(map[string]float64, len(byName))
		for name, a := range byName {
			out[day][name] = a.sum / float64(a.count)
		}
	}
	return out
}

func resolveZone(name string, offsetSeconds int) *time.Location {
	if name != "" {
		if zone, err := time.LoadLocation(name); err == nil {
			return zone
		}
	}
	if name == "" {
		name = "UTC"
	}
	return time.FixedZone(name, offsetSeconds)
}

package analytics

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

// TimeRange is the span covered by a series.
type TimeRange struct {
	StartTimestamp string `json:"start_timestamp"`
	EndTimestamp   string `json:"end_timestamp"`
	Timezone       string `json:"timezone"`
	Units          string `json:"units"`
}

// ExtractedData holds the per-attribute numeric sequences of a series.
type ExtractedData struct {
	// Data maps attribute name to its values in event order.
	Data map[string][]float64
	// Attributes lists attribute names in discovery order.
	Attributes []string
	TimeRange  TimeRange
	Location   weather.Location
	Units      weather.Units
}

// DecodeSeries decodes a series payload. A JSON string holding the encoded
// series is accepted as well and is tried first.
func DecodeSeries(data []byte) (weather.Series, error) {
	var series weather.Series

	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		if err := json.Unmarshal([]byte(encoded), &series); err == nil {
			return series, nil
		}
	}

	if err := json.Unmarshal(data, &series); err != nil {
		return weather.Series{}, fmt.Errorf("decode weather series: %w", err)
	}
	return series, nil
}

// Extract collects every attribute named in some event's units record and the
// numeric values recorded for it. Attributes without a unit are ignored, and
// events lacking a numeric value for an attribute are skipped for it.
func Extract(series weather.Series) (*ExtractedData, error) {
	if len(series.Events) == 0 {
		return nil, ErrEventsEmpty
	}

	first := series.Events[0]
	tz := series.TimeObject.Timezone
	if tz == "" {
		tz = weather.DefaultTimezone
	}

	out := &ExtractedData{
		Data: make(map[string][]float64),
		TimeRange: TimeRange{
			StartTimestamp: first.TimeObject.Timestamp,
			EndTimestamp:   first.TimeObject.Timestamp,
			Timezone:       tz,
			Units:          "iso8601",
		},
		Location: first.Attributes.Location(),
		Units:    make(weather.Units),
	}

	for _, ev := range series.Events {
		units := ev.Attributes.Units()
		for _, name := range sortedUnitNames(units) {
			if name == weather.UnitTime {
				continue
			}
			if _, seen := out.Units[name]; seen {
				continue
			}
			out.Units[name] = units[name]
			out.Attributes = append(out.Attributes, name)
			out.Data[name] = []float64{}
		}
	}

	for _, name := range out.Attributes {
		for _, ev := range series.Events {
			if v, ok := ev.Attributes[name].Float(); ok {
				out.Data[name] = append(out.Data[name], v)
			}

			ts := ev.TimeObject.Timestamp
			if timestampBefore(ts, out.TimeRange.StartTimestamp) {
				out.TimeRange.StartTimestamp = ts
			}
			if timestampBefore(out.TimeRange.EndTimestamp, ts) {
				out.TimeRange.EndTimestamp = ts
			}
		}
	}

	return out, nil
}

// sortedUnitNames gives discovery within one event a stable order.
func sortedUnitNames(units weather.Units) []string {
	names := make([]string, 0, len(units))
	for name := range units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// timestampBefore compares two event timestamps as instants, honouring their
// offsets. Unparseable timestamps fall back to string comparison, which is
// correct for fixed-width ISO-8601 text sharing one offset.
func timestampBefore(a, b string) bool {
	ta, errA := weather.EventTimestamp(a)
	tb, errB := weather.EventTimestamp(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}

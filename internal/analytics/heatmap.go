package analytics

import (
	"fmt"
	"log"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

// HeatmapConditions are the attributes a heatmap can be drawn for.
func HeatmapConditions() []string {
	return []string{"temperature_2m", "shortwave_radiation", "cloud_cover", "sunshine_duration"}
}

// HeatmapEntry is the mean of one condition over a suburb's series.
type HeatmapEntry struct {
	Suburb string  `json:"suburb"`
	Mean   float64 `json:"data"`
}

// HeatmapMeans computes the rounded mean of condition for every suburb.
// Suburbs without a single value for the condition are left out.
func HeatmapMeans(entries []weather.SuburbSeries, condition string) ([]HeatmapEntry, error) {
	valid := false
	for _, c := range HeatmapConditions() {
		if c == condition {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCondition, condition)
	}

	ctx := NewContext(meanStrategy{})
	out := make([]HeatmapEntry, 0, len(entries))
	for _, e := range entries {
		var values []float64
		for _, ev := range e.Series.Events {
			if v, ok := ev.Attributes[condition].Float(); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			log.Printf("WARN: heatmap: no %s values for %s", condition, e.Suburb)
			continue
		}

		m, _ := ctx.Execute(values).Float()
		out = append(out, HeatmapEntry{Suburb: e.Suburb, Mean: m})
	}
	return out, nil
}

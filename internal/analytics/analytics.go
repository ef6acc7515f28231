package analytics

import (
	"fmt"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

// Data maps attribute name to aggregate name to result.
type Data map[string]map[Aggregate]Value

// Report is the analytics result for one series.
type Report struct {
	DataSource  string           `json:"data_source"`
	DatasetType string           `json:"dataset_type"`
	DatasetID   string           `json:"dataset_id"`
	TimeObject  TimeRange        `json:"time_object"`
	Location    weather.Location `json:"location"`
	Units       weather.Units    `json:"units"`
	Analytics   Data             `json:"analytics"`
}

// Compute applies the resolved aggregates to every extracted attribute that was
// requested. Attributes present in the data but not requested are skipped along
// with their units. A requested attribute without numeric values fails with
// ErrEmptySeries and no partial result is returned.
func Compute(extracted *ExtractedData, resolved map[string][]Aggregate) (Data, weather.Units, error) {
	data := make(Data)
	units := make(weather.Units)
	ctx := NewContext(meanStrategy{})

	for _, attr := range extracted.Attributes {
		aggs, ok := resolved[attr]
		if !ok {
			continue
		}

		values := extracted.Data[attr]
		if len(values) == 0 {
			return nil, nil, fmt.Errorf("%w: attribute %s", ErrEmptySeries, attr)
		}

		units[attr] = extracted.Units[attr]
		data[attr] = make(map[Aggregate]Value)
		for _, s := range selectStrategies(aggs) {
			ctx.SetStrategy(s)
			data[attr][s.Name()] = ctx.Execute(values)
		}
	}

	return data, units, nil
}

// GetAnalytics runs extraction, query resolution and aggregation over series.
// A nil query applies aggregates uniformly to every attribute.
func GetAnalytics(series weather.Series, query Query, aggregates string) (*Report, error) {
	extracted, err := Extract(series)
	if err != nil {
		return nil, err
	}

	resolved, err := ResolveQuery(extracted.Attributes, query, aggregates)
	if err != nil {
		return nil, err
	}

	data, units, err := Compute(extracted, resolved)
	if err != nil {
		return nil, err
	}

	return &Report{
		DataSource:  series.DataSource,
		DatasetType: series.DatasetType,
		DatasetID:   series.DatasetID,
		TimeObject:  extracted.TimeRange,
		Location:    extracted.Location,
		Units:       units,
		Analytics:   data,
	}, nil
}

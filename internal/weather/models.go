package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/common"
)

// DefaultTimezone is the zone series are produced in when the payload does not name one.
const DefaultTimezone = "Australia/Sydney"

// Reserved attribute keys; they never hold a measurable value.
const (
	AttrLocation = "location"
	AttrUnits    = "units"
	UnitTime     = "time"
)

// DatasetKind distinguishes the stored series families.
type DatasetKind string

const (
	KindForecast DatasetKind = "forecast"
	KindHistory  DatasetKind = "history"
)

// SeriesKey returns the object-store key a suburb's series is stored under.
func SeriesKey(kind DatasetKind, suburb string) string {
	return fmt.Sprintf("weatherData/%s/%s.json", kind, common.Capitalise(suburb))
}

// Location represents the place a series was observed at.
type Location struct {
	Suburb    string  `json:"suburb"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Units maps attribute names to unit strings.
type Units map[string]string

// AttributeKind tags the variant held by an Attribute.
type AttributeKind int

const (
	KindOther AttributeKind = iota
	KindNumber
	KindLocation
	KindUnits
)

// Attribute is one entry of an event's attribute map: a numeric observation,
// the location record, the units record, or something else (string, null)
// that is carried but never measured.
type Attribute struct {
	Kind     AttributeKind
	Number   float64
	Location Location
	Units    Units
	raw      json.RawMessage
}

// Number builds a numeric attribute.
func Number(v float64) Attribute {
	return Attribute{Kind: KindNumber, Number: v}
}

// Float returns the numeric value when the attribute holds one.
func (a Attribute) Float() (float64, bool) {
	if a.Kind != KindNumber {
		return 0, false
	}
	return a.Number, true
}

// Attributes is the attribute map of a single event.
type Attributes map[string]Attribute

// Location returns the event location record.
func (a Attributes) Location() Location {
	return a[AttrLocation].Location
}

// Units returns the event units record, never nil.
func (a Attributes) Units() Units {
	if u := a[AttrUnits].Units; u != nil {
		return u
	}
	return Units{}
}

// UnmarshalJSON decodes every key into its tagged variant.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Attributes, len(raw))
	for key, msg := range raw {
		switch key {
		case AttrLocation:
			var loc Location
			if err := json.Unmarshal(msg, &loc); err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
			out[key] = Attribute{Kind: KindLocation, Location: loc}
		case AttrUnits:
			units, err := decodeUnits(msg)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", key, err)
			}
			out[key] = Attribute{Kind: KindUnits, Units: units}
		default:
			var n float64
			trimmed := bytes.TrimSpace(msg)
			if isNumberLiteral(trimmed) && json.Unmarshal(trimmed, &n) == nil {
				out[key] = Number(n)
				continue
			}
			out[key] = Attribute{Kind: KindOther, raw: append(json.RawMessage(nil), msg...)}
		}
	}

	*a = out
	return nil
}

// MarshalJSON writes keys in sorted order so stored payloads are stable.
func (a Attributes) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')

		var (
			vb  []byte
			err error
		)
		attr := a[k]
		switch attr.Kind {
		case KindNumber:
			vb, err = json.Marshal(attr.Number)
		case KindLocation:
			vb, err = json.Marshal(attr.Location)
		case KindUnits:
			vb, err = json.Marshal(attr.Units)
		default:
			vb = attr.raw
			if len(vb) == 0 {
				vb = []byte("null")
			}
		}
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// isNumberLiteral rejects null, booleans, strings and containers, all of which
// json.Unmarshal would either reject or silently decode as zero.
func isNumberLiteral(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	c := b[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// decodeUnits keeps string units and renders anything else (numbers) as text.
func decodeUnits(msg json.RawMessage) (Units, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, err
	}
	units := make(Units, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			units[k] = val
		case nil:
			units[k] = ""
		default:
			units[k] = fmt.Sprint(val)
		}
	}
	return units, nil
}

// EventTime is the time object of one observation window.
type EventTime struct {
	Timestamp    string  `json:"timestamp"`
	Duration     float64 `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Timezone     string  `json:"timezone,omitempty"`
}

// Event is a single timestamped observation.
type Event struct {
	TimeObject EventTime  `json:"time_object"`
	EventType  string     `json:"event_type"`
	Attributes Attributes `json:"attributes"`
}

// SeriesTime is the nominal time object of a series.
type SeriesTime struct {
	Timestamp string `json:"timestamp"`
	Timezone  string `json:"timezone"`
}

// Series is an ordered collection of events for one location and dataset.
type Series struct {
	DataSource  string     `json:"data_source"`
	DatasetType string     `json:"dataset_type"`
	DatasetID   string     `json:"dataset_id"`
	TimeObject  SeriesTime `json:"time_object"`
	Events      []Event    `json:"events"`
}

// Metadata identifies the dataset a series belongs to.
type Metadata struct {
	DataSource  string
	DatasetType string
	DatasetID   string
}

// DefaultMetadata is stamped on every series this service produces.
var DefaultMetadata = Metadata{
	DataSource:  "Weather API",
	DatasetType: "Weather/Climate Data",
	DatasetID:   "solar-weather-analytics/weatherData",
}

// EventTimestamp parses an event timestamp, accepting RFC3339 with or without seconds.
func EventTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04Z07:00", s)
}

// ValidAttributes lists the weather conditions a series may be filtered by.
func ValidAttributes() []string {
	return []string{
		"cloud_cover",
		"temperature_2m",
		"relative_humidity_2m",
		"shortwave_radiation",
		"precipitation_probability",
		"precipitation",
		"wind_speed_10m",
		"wind_direction_10m",
		"uv_index",
		"daylight_duration",
		"sunshine_duration",
		"wind_gusts_10m",
		"weather_code",
		"visibility",
		"apparent_temperature",
		"surface_pressure",
	}
}

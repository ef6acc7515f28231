package weather

import (
	"time"

	"github.com/i474232898/solar-weather-analytics/internal/common"
)

// Filter returns a copy of series restricted to events whose local calendar day
// falls within [from, to] and, when attributes is non-empty, to those attributes.
// Zero from/to leave that side of the window open. The location and units
// records are always kept; units keep their time entry.
func Filter(series Series, from, to time.Time, attributes []string) Series {
	out := series
	out.Events = make([]Event, 0, len(series.Events))

	fromDay := dayOf(from)
	toDay := dayOf(to)

	for _, ev := range series.Events {
		ts, err := EventTimestamp(ev.TimeObject.Timestamp)
		if err != nil {
			continue
		}
		day := dayOf(ts)
		if !from.IsZero() && day.Before(fromDay) {
			continue
		}
		if !to.IsZero() && day.After(toDay) {
			continue
		}
		out.Events = append(out.Events, projectEvent(ev, attributes))
	}
	return out
}

func projectEvent(ev Event, attributes []string) Event {
	attrs := make(Attributes, len(ev.Attributes))
	for key, attr := range ev.Attributes {
		switch {
		case key == AttrUnits:
			units := make(Units, len(attr.Units))
			for name, unit := range attr.Units {
				if len(attributes) == 0 || name == UnitTime || common.ContainsFold(attributes, name) {
					units[name] = unit
				}
			}
			attrs[key] = Attribute{Kind: KindUnits, Units: units}
		case key == AttrLocation, len(attributes) == 0, common.ContainsFold(attributes, key):
			attrs[key] = attr
		}
	}
	ev.Attributes = attrs
	return ev
}

// dayOf truncates t to midnight in its own offset, preserving the local calendar day.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

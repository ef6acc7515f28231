package energy

import "time"

// Season indices, southern hemisphere.
const (
	Summer = iota
	Autumn
	Winter
	Spring
)

// SeasonIndex maps a calendar month to its season. December to February is summer.
func SeasonIndex(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return Summer
	case time.March, time.April, time.May:
		return Autumn
	case time.June, time.July, time.August:
		return Winter
	default:
		return Spring
	}
}

// ProductionCoefficient returns the user's production coefficient for the season of now,
// or 1 when none is recorded for it.
func ProductionCoefficient(p Profile, now time.Time) float64 {
	idx := SeasonIndex(now.Month())
	if idx >= len(p.ProductionCoefficient) {
		return 1
	}
	return p.ProductionCoefficient[idx]
}

package energy

import (
	"fmt"
	"math"
)

type Alert int

const (
	AlertNone Alert = iota
	AlertOverGeneration
	AlertUnderGeneration
)

func (a Alert) String() string {
	switch a {
	case AlertOverGeneration:
		return "over_generation"
	case AlertUnderGeneration:
		return "under_generation"
	}
	return "none"
}

// Decision is the outcome of comparing predicted generation with predicted consumption.
type Decision struct {
	Alert   Alert
	Percent float64
	// Message is the short notification kept on the user record.
	Message string
	// Detail is the longer text sent to the user.
	Detail string
}

// Decide raises an over-generation alert when production/consumption reaches 1+upperPct/100,
// otherwise an under-generation alert when it falls to 1-lowerPct/100. Over-generation is
// checked first so at most one alert fires.
func Decide(production, consumption, upperPct, lowerPct float64) Decision {
	if consumption == 0 {
		return Decision{Alert: AlertNone}
	}

	ratio := production / consumption
	d := Decision{Percent: math.Abs(100 * (consumption - production) / consumption)}

	switch {
	case ratio >= 1+upperPct/100:
		d.Alert = AlertOverGeneration
		d.Message = fmt.Sprintf("Energy generated has exceeded predicted consumption by %.2f%%.", d.Percent)
		d.Detail = fmt.Sprintf("You have exceeded your upper limit for consumption. You have a predicted "+
			"generation of %.2fW compared to a predicted consumption of %.2fW.", production, consumption)
	case ratio <= 1-lowerPct/100:
		d.Alert = AlertUnderGeneration
		d.Message = fmt.Sprintf("Energy generated has fallen short of predicted consumption by %.2f%%.", d.Percent)
		d.Detail = fmt.Sprintf("You have exceeded your lower limit for consumption. You have a predicted "+
			"generation of %.2fW compared to a predicted consumption of %.2fW.", production, consumption)
	default:
		d.Alert = AlertNone
	}
	return d
}

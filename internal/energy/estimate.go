package energy

import (
	"math"

	"github.com/i474232898/solar-weather-analytics/internal/weather"
)

const (
	// MaxSteps caps an hourly estimate at one week.
	MaxSteps = 168

	DeratingThreshold     = 25.0
	DeratingRate          = 0.004
	ComfortTemperature    = 23.6
	RadiationDivisor      = 8.0
	DefaultBaselineOffset = 600.0
	// ShortwaveRatio converts summed shortwave radiation into usable generation for forecast summaries.
	ShortwaveRatio = 0.02

	attrTemperature = "temperature_2m"
	attrRadiation   = "shortwave_radiation"
	attrDaylight    = "daylight_duration"
)

// Generation is the panel output for one step, derated linearly above 25 °C.
func Generation(surfaceArea, radiation, temperature float64) float64 {
	if temperature > DeratingThreshold {
		return surfaceArea * radiation * (1 - DeratingRate*(temperature-DeratingThreshold))
	}
	return surfaceArea * radiation
}

// Consumption is the modelled household draw for one step. daylight is in seconds.
func Consumption(c Coefficients, temperature, daylight, offset float64) float64 {
	return math.Abs(c.Temp)*math.Abs(temperature-ComfortTemperature) + c.Daylight*(daylight/24) + offset
}

// BaselineOffset is the mean of the user's recorded quarterly consumption, or
// DefaultBaselineOffset when nothing is recorded.
func BaselineOffset(p Profile) float64 {
	if len(p.QuarterlyConsumption) == 0 {
		return DefaultBaselineOffset
	}
	var total float64
	for _, v := range p.QuarterlyConsumption {
		total += v
	}
	return total / float64(len(p.QuarterlyConsumption))
}

// Params parameterise an estimate for one user.
type Params struct {
	SurfaceArea           float64
	Coefficients          Coefficients
	ProductionCoefficient float64
	BaselineOffset        float64
}

// HourlyEnergy is a stepwise production and consumption estimate.
type HourlyEnergy struct {
	Production  []float64 `json:"energy_production_hourly"`
	Consumption []float64 `json:"energy_consumption_hourly"`
}

// Estimate walks the forecast events, carrying the last seen temperature, radiation and daylight
// forward into steps that do not report them.
func Estimate(series weather.Series, p Params) HourlyEnergy {
	n := len(series.Events)
	if n > MaxSteps {
		n = MaxSteps
	}
	out := HourlyEnergy{
		Production:  make([]float64, 0, n),
		Consumption: make([]float64, 0, n),
	}

	temperature, radiation, daylight := 1.0, 1.0, 1.0
	for _, ev := range series.Events[:n] {
		if v, ok := ev.Attributes[attrDaylight].Float(); ok {
			daylight = v
		}
		if v, ok := ev.Attributes[attrTemperature].Float(); ok {
			temperature = v
		}
		if v, ok := ev.Attributes[attrRadiation].Float(); ok {
			radiation = v / RadiationDivisor
		}

		out.Production = append(out.Production, Generation(p.SurfaceArea, radiation, temperature)*p.ProductionCoefficient)
		out.Consumption = append(out.Consumption, Consumption(p.Coefficients, temperature, daylight, p.BaselineOffset))
	}
	return out
}

// Summary condenses a forecast into total generation and average conditions.
type Summary struct {
	Generation         float64 `json:"energyGeneration"`
	TemperatureAverage float64 `json:"tempAverage"`
	DaylightAverage    float64 `json:"dayLightAverage"`
}

// SummariseForecast totals generation over the forecast. Steps with a zero temperature are treated
// as unreported and skipped, as are zero daylight readings in the daylight average.
func SummariseForecast(series weather.Series, surfaceArea float64) Summary {
	var (
		s                        Summary
		tempTotal, daylightTotal float64
		tempCount, daylightCount int
	)
	for _, ev := range series.Events {
		temperature, _ := ev.Attributes[attrTemperature].Float()
		daylight, _ := ev.Attributes[attrDaylight].Float()
		radiation, _ := ev.Attributes[attrRadiation].Float()
		radiation = radiation / RadiationDivisor * ShortwaveRatio

		if daylight != 0 {
			daylightTotal += daylight
			daylightCount++
		}
		if temperature == 0 {
			continue
		}
		s.Generation += Generation(surfaceArea, radiation, temperature)
		tempTotal += temperature
		tempCount++
	}

	if tempCount > 0 {
		s.TemperatureAverage = tempTotal / float64(tempCount)
	}
	if daylightCount > 0 {
		s.DaylightAverage = daylightTotal / float64(daylightCount)
	}
	return s
}

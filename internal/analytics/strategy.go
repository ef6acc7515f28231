package analytics

import (
	"math"
	"sort"
)

// Aggregate names a statistical reducer.
type Aggregate string

const (
	Sum               Aggregate = "sum"
	Mean              Aggregate = "mean"
	Median            Aggregate = "median"
	Min               Aggregate = "min"
	Max               Aggregate = "max"
	Mode              Aggregate = "mode"
	Variance          Aggregate = "variance"
	StandardDeviation Aggregate = "standard_deviation"
)

// Vocabulary returns the accepted aggregate names in canonical order.
// A new slice is returned on every call.
func Vocabulary() []Aggregate {
	return []Aggregate{Sum, Mean, Median, Min, Max, Mode, Variance, StandardDeviation}
}

// Valid reports whether a is part of the vocabulary.
func (a Aggregate) Valid() bool {
	_, ok := StrategyFor(a)
	return ok
}

// Strategy converts an ordered sequence of numbers into a Value.
// Callers guarantee values is non-empty.
type Strategy interface {
	Name() Aggregate
	Calculate(values []float64) Value
}

type sumStrategy struct{}

func (sumStrategy) Name() Aggregate { return Sum }

func (sumStrategy) Calculate(values []float64) Value {
	return Scalar(sum(values))
}

type meanStrategy struct{}

func (meanStrategy) Name() Aggregate { return Mean }

func (meanStrategy) Calculate(values []float64) Value {
	return Scalar(mean(values))
}

type modeStrategy struct{}

func (modeStrategy) Name() Aggregate { return Mode }

// Calculate returns every value tied for the highest frequency, ascending.
func (modeStrategy) Calculate(values []float64) Value {
	counts := make(map[float64]int, len(values))
	best := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > best {
			best = counts[v]
		}
	}

	modes := make([]float64, 0, len(counts))
	for v, n := range counts {
		if n == best {
			modes = append(modes, v)
		}
	}
	sort.Float64s(modes)
	return Set(modes)
}

type minStrategy struct{}

func (minStrategy) Name() Aggregate { return Min }

func (minStrategy) Calculate(values []float64) Value {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return Scalar(m)
}

type maxStrategy struct{}

func (maxStrategy) Name() Aggregate { return Max }

func (maxStrategy) Calculate(values []float64) Value {
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return Scalar(m)
}

type medianStrategy struct{}

func (medianStrategy) Name() Aggregate { return Median }

func (medianStrategy) Calculate(values []float64) Value {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return Scalar((sorted[mid-1] + sorted[mid]) / 2)
	}
	return Scalar(sorted[mid])
}

type varianceStrategy struct{}

func (varianceStrategy) Name() Aggregate { return Variance }

func (varianceStrategy) Calculate(values []float64) Value {
	return Scalar(variance(values))
}

type standardDeviationStrategy struct{}

func (standardDeviationStrategy) Name() Aggregate { return StandardDeviation }

func (standardDeviationStrategy) Calculate(values []float64) Value {
	return Scalar(math.Sqrt(variance(values)))
}

var strategies = map[Aggregate]Strategy{
	Sum:               sumStrategy{},
	Mean:              meanStrategy{},
	Median:            medianStrategy{},
	Min:               minStrategy{},
	Max:               maxStrategy{},
	Mode:              modeStrategy{},
	Variance:          varianceStrategy{},
	StandardDeviation: standardDeviationStrategy{},
}

// StrategyFor looks up the strategy implementing a.
func StrategyFor(a Aggregate) (Strategy, bool) {
	s, ok := strategies[a]
	return s, ok
}

// selectStrategies returns the strategies for aggs in vocabulary order, each at most once.
func selectStrategies(aggs []Aggregate) []Strategy {
	wanted := make(map[Aggregate]bool, len(aggs))
	for _, a := range aggs {
		wanted[a] = true
	}

	selected := make([]Strategy, 0, len(wanted))
	for _, a := range Vocabulary() {
		if !wanted[a] {
			continue
		}
		if s, ok := StrategyFor(a); ok {
			selected = append(selected, s)
		}
	}
	return selected
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func mean(values []float64) float64 {
	return sum(values) / float64(len(values))
}

// variance is the population variance (divides by N).
func variance(values []float64) float64 {
	m := mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return sq / float64(len(values))
}

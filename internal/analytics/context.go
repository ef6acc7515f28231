package analytics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places every aggregate is emitted with.
const Precision = 2

// Context applies one strategy at a time and owns the rounding policy.
type Context struct {
	strategy Strategy
}

// NewContext creates a Context holding s.
func NewContext(s Strategy) *Context {
	return &Context{strategy: s}
}

// SetStrategy swaps the current strategy.
func (c *Context) SetStrategy(s Strategy) {
	c.strategy = s
}

// Execute runs the current strategy and rounds its output to Precision places.
func (c *Context) Execute(values []float64) Value {
	v := c.strategy.Calculate(values)
	if !v.isSet {
		return Scalar(Round(v.scalar))
	}

	rounded := make([]float64, len(v.set))
	for i, n := range v.set {
		rounded[i] = Round(n)
	}
	return Value{set: rounded, isSet: true}
}

// Round rounds half away from zero to Precision places. NaN and infinities
// are returned unchanged.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(Precision).InexactFloat64()
}

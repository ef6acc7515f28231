package analytics

import "encoding/json"

// Value is the result of one aggregate: a single number, or a set of numbers for mode.
type Value struct {
	scalar float64
	set    []float64
	isSet  bool
}

// Scalar wraps a single-number result.
func Scalar(v float64) Value {
	return Value{scalar: v}
}

// Set wraps a multi-valued result. The slice is copied.
func Set(vs []float64) Value {
	return Value{set: append([]float64{}, vs...), isSet: true}
}

// IsSet reports whether the value holds a set.
func (v Value) IsSet() bool { return v.isSet }

// Float returns the scalar result; ok is false for sets.
func (v Value) Float() (float64, bool) {
	if v.isSet {
		return 0, false
	}
	return v.scalar, true
}

// Values returns a copy of the set result, or the scalar as a one-element slice.
func (v Value) Values() []float64 {
	if !v.isSet {
		return []float64{v.scalar}
	}
	return append([]float64{}, v.set...)
}

// MarshalJSON encodes scalars as numbers and sets as arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsSet() {
		return json.Marshal(v.Values())
	}
	return json.Marshal(v.scalar)
}

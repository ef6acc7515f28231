package energy

import "fmt"

// HasProductionData reports whether all twelve production fit fields are recorded.
func HasProductionData(p Profile) bool {
	for _, q := range p.Quarters {
		if q.Output == nil || q.Temperature == nil || q.Radiation == nil {
			return false
		}
	}
	return true
}

// FitProduction derives one production coefficient per quarter: the generation predicted from the
// quarter's temperature and radiation divided by the generation the user recorded.
func FitProduction(p Profile, surfaceArea float64) ([]float64, error) {
	if !HasProductionData(p) {
		return nil, fmt.Errorf("%w: user %s has no quarterly production data", ErrMissingCoefficientData, p.UserID)
	}

	out := make([]float64, len(p.Quarters))
	for i, q := range p.Quarters {
		if *q.Output == 0 {
			return nil, fmt.Errorf("%w: q%d_w is zero", ErrInvalidRecord, i+1)
		}
		out[i] = Generation(surfaceArea, *q.Radiation, *q.Temperature) / *q.Output
	}
	return out, nil
}

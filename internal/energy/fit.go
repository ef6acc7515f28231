package energy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMissingCoefficientData means the quarterly observations needed for a fit are not recorded.
	ErrMissingCoefficientData = errors.New("missing coefficient data")
	errSingularSystem         = errors.New("svd factorisation failed")
)

// SignConvention selects how the solved daylight coefficient is signed.
type SignConvention int

const (
	// SignSolved keeps the daylight coefficient as solved.
	SignSolved SignConvention = iota
	// SignNegativeDaylight forces the daylight coefficient to be non-positive.
	SignNegativeDaylight
)

func (s SignConvention) String() string {
	if s == SignNegativeDaylight {
		return "negative"
	}
	return "solved"
}

// ParseSignConvention parses "solved" or "negative".
func ParseSignConvention(s string) (SignConvention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "solved":
		return SignSolved, nil
	case "negative":
		return SignNegativeDaylight, nil
	}
	return SignSolved, fmt.Errorf("unknown daylight sign convention %q", s)
}

// Coefficients are a user's consumption sensitivities.
type Coefficients struct {
	Temp     float64 `json:"temp_coefficient"`
	Daylight float64 `json:"daylight_coefficient"`
}

// DefaultCoefficients is the unpersonalised baseline used when a user has no quarterly history.
func DefaultCoefficients() Coefficients {
	return Coefficients{Temp: 1, Daylight: 1}
}

// SolveLeastSquares solves a·x = b through the SVD pseudo-inverse of a.
// Singular values that are not positive contribute nothing to the solution.
func SolveLeastSquares(a [][]float64, b []float64) ([]float64, error) {
	rows := len(a)
	if rows == 0 || rows != len(b) {
		return nil, fmt.Errorf("least squares: %d rows for %d observations", rows, len(b))
	}
	cols := len(a[0])
	data := make([]float64, 0, rows*cols)
	for i, row := range a {
		if len(row) != cols {
			return nil, fmt.Errorf("least squares: row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}

	A := mat.NewDense(rows, cols, data)
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return nil, errSingularSystem
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	// x = V·S⁺·Uᵀ·b
	var ub mat.VecDense
	ub.MulVec(u.T(), mat.NewVecDense(rows, append([]float64(nil), b...)))
	for i, s := range values {
		if s > 0 {
			ub.SetVec(i, ub.AtVec(i)/s)
		} else {
			ub.SetVec(i, 0)
		}
	}

	var x mat.VecDense
	x.MulVec(&v, &ub)
	return x.RawVector().Data, nil
}

// HasConsumptionData reports whether all twelve consumption fit fields are recorded.
func HasConsumptionData(p Profile) bool {
	for _, q := range p.Quarters {
		if q.Output == nil || q.Temperature == nil || q.Daylight == nil {
			return false
		}
	}
	return true
}

// FitConsumption fits temperature and daylight coefficients to the user's quarterly consumption.
func FitConsumption(p Profile, sign SignConvention) (Coefficients, error) {
	if !HasConsumptionData(p) {
		return Coefficients{}, fmt.Errorf("%w: user %s", ErrMissingCoefficientData, p.UserID)
	}

	a := make([][]float64, len(p.Quarters))
	b := make([]float64, len(p.Quarters))
	for i, q := range p.Quarters {
		a[i] = []float64{*q.Temperature, *q.Daylight}
		b[i] = *q.Output
	}

	x, err := SolveLeastSquares(a, b)
	if err != nil {
		return Coefficients{}, fmt.Errorf("fit consumption for user %s: %w", p.UserID, err)
	}

	c := Coefficients{Temp: math.Abs(x[0]), Daylight: x[1]}
	if sign == SignNegativeDaylight {
		c.Daylight = -math.Abs(x[1])
	}
	return c, nil
}

// Fitter fits and caches coefficients on user records.
type Fitter struct {
	users UserStore
	sign  SignConvention
}

func NewFitter(users UserStore, sign SignConvention) *Fitter {
	return &Fitter{users: users, sign: sign}
}

// Ensure returns the user's consumption coefficients, fitting and persisting them when the record
// holds none. ok is false when the record lacks quarterly data and the default was substituted.
func (f *Fitter) Ensure(ctx context.Context, p Profile) (c Coefficients, ok bool, err error) {
	if p.TempCoefficient != 0 && p.DaylightCoefficient != 0 {
		return Coefficients{Temp: p.TempCoefficient, Daylight: p.DaylightCoefficient}, true, nil
	}

	c, err = FitConsumption(p, f.sign)
	if errors.Is(err, ErrMissingCoefficientData) {
		log.Printf("DEBUG: energy: no quarterly consumption data for user %s, using default coefficients", p.UserID)
		return DefaultCoefficients(), false, nil
	}
	if err != nil {
		return Coefficients{}, false, err
	}

	if err := f.persist(ctx, p.UserID, Record{
		FieldTempCoefficient:     FormatFloat(c.Temp),
		FieldDaylightCoefficient: FormatFloat(c.Daylight),
	}); err != nil {
		return Coefficients{}, false, err
	}
	log.Printf("INFO: energy: fitted coefficients for user %s: temp=%g daylight=%g", p.UserID, c.Temp, c.Daylight)
	return c, true, nil
}

// Recompute discards any cached coefficients and fits them again.
func (f *Fitter) Recompute(ctx context.Context, p Profile) (Coefficients, error) {
	p.TempCoefficient, p.DaylightCoefficient = 0, 0
	c, ok, err := f.Ensure(ctx, p)
	if err != nil {
		return Coefficients{}, err
	}
	if !ok {
		return Coefficients{}, fmt.Errorf("%w: user %s", ErrMissingCoefficientData, p.UserID)
	}
	return c, nil
}

// EnsureProduction fits and persists seasonal production coefficients when the user is eligible,
// and returns the coefficients the user ends up with.
func (f *Fitter) EnsureProduction(ctx context.Context, p Profile, surfaceArea float64) ([]float64, error) {
	if len(p.ProductionCoefficient) > 0 || !HasProductionData(p) {
		return p.ProductionCoefficient, nil
	}

	coeffs, err := FitProduction(p, surfaceArea)
	if err != nil {
		return nil, err
	}
	if err := f.persist(ctx, p.UserID, Record{FieldProductionCoefficient: FormatList(coeffs)}); err != nil {
		return nil, err
	}
	log.Printf("INFO: energy: fitted production coefficients for user %s: %v", p.UserID, coeffs)
	return coeffs, nil
}

func (f *Fitter) persist(ctx context.Context, userID string, fields Record) error {
	if userID == "" || f.users == nil {
		return nil
	}
	if err := f.users.UpdateUser(ctx, userID, fields); err != nil {
		return fmt.Errorf("persist coefficients for user %s: %w", userID, err)
	}
	return nil
}

package incidence

import (
	"math"

	"oncofit/domain/core"

	"gonum.org/v1/gonum/floats"
)

// Curve is an age-incidence curve for one year and site selection.
// Rates are per 100,000 population; ages are group midpoints in years.
type Curve struct {
	Year  int       `json:"year"`
	Site  string    `json:"site"`
	Ages  []float64 `json:"ages"`
	Rates []float64 `json:"rates"`
}

// Len returns the number of points
func (c Curve) Len() int {
	return len(c.Ages)
}

// Validate checks the curve invariants: equal lengths, at least one point,
// finite values and strictly increasing ages.
func (c Curve) Validate() error {
	if len(c.Ages) != len(c.Rates) {
		return core.NewShapeError("ages/rates", len(c.Ages), len(c.Rates))
	}
	if len(c.Ages) == 0 {
		return core.ErrInsufficientData
	}
	for i := range c.Ages {
		if !isFinite(c.Ages[i]) || !isFinite(c.Rates[i]) {
			return core.ErrNonFinite
		}
		if i > 0 && c.Ages[i] <= c.Ages[i-1] {
			return core.ErrUnsortedAges
		}
	}
	return nil
}

// MaxRate returns the largest observed rate, or 0 for an empty curve
func (c Curve) MaxRate() float64 {
	if len(c.Rates) == 0 {
		return 0
	}
	return floats.Max(c.Rates)
}

// AnnualRate is the mean age-adjusted rate observed in one year
type AnnualRate struct {
	Year     int     `json:"year"`
	MeanRate float64 `json:"mean_rate"`
	Count    int     `json:"count"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Package model implements the mutation-accumulation model of
// age-dependent malignancy risk.
//
// A tissue holds M independent clones. Each clone divides
// age × divisions_per_year times and every division carries a driver hit
// with probability p·(1-r). A clone is at risk once it holds C hits; the
// tissue is at risk once any clone is:
//
//	p_cell(a) = P(hits >= C in a·divisions_per_year divisions)
//	P(a)      = 1 - (1 - p_cell(a))^M
package model

import (
	"math"

	"oncofit/internal/probability"

	"gonum.org/v1/gonum/floats"
)

// Model is immutable after New and safe for concurrent use
type Model struct {
	params Parameters
	tail   probability.PoissonTail
}

// Option configures a Model
type Option func(*Model)

// WithTail selects the Poisson tail strategy used when C > 1
func WithTail(tail probability.PoissonTail) Option {
	return func(m *Model) {
		if tail != nil {
			m.tail = tail
		}
	}
}

// New validates params and builds a model
func New(params Parameters, opts ...Option) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		params: params,
		tail:   probability.DefaultTail,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Parameters returns a copy of the parameters the model was built with
func (m *Model) Parameters() Parameters {
	return m.params
}

// Tail returns the Poisson tail strategy in use
func (m *Model) Tail() probability.PoissonTail {
	return m.tail
}

// Predict returns the malignancy probability at each age, in input order.
// Ages must be non-negative.
func (m *Model) Predict(ages []float64) []float64 {
	pEff := m.params.EffectiveP()
	out := make([]float64, len(ages))
	for i, age := range ages {
		n := age * m.params.DivisionsPerYear
		pCell := probability.AtLeast(n, pEff, m.params.C, m.tail)
		out[i] = tissueRisk(pCell, m.params.M)
	}
	return out
}

// PredictScaled rescales Predict so its maximum equals scaleToMax, putting
// the curve on an empirical rate scale. With no scaleToMax the unscaled
// predictions are returned. An all-zero prediction stays all zero.
func (m *Model) PredictScaled(ages []float64, scaleToMax ...float64) []float64 {
	pred := m.Predict(ages)
	if len(scaleToMax) == 0 {
		return pred
	}
	return ScaleToMax(pred, scaleToMax[0])
}

// ScaleToMax linearly rescales values in place so the largest equals target
func ScaleToMax(values []float64, target float64) []float64 {
	if len(values) == 0 {
		return values
	}
	max := floats.Max(values)
	if max == 0 {
		for i := range values {
			values[i] = 0
		}
		return values
	}
	for i, v := range values {
		values[i] = v / max * target
	}
	return values
}

// tissueRisk is 1-(1-pCell)^M without losing precision for tiny pCell
func tissueRisk(pCell float64, clones int) float64 {
	if pCell <= 0 {
		return 0
	}
	if pCell >= 1 {
		return 1
	}
	return -math.Expm1(float64(clones) * math.Log1p(-pCell))
}

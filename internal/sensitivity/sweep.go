// Package sensitivity varies one model parameter at a time and scores
// each variant against an observed curve.
package sensitivity

import (
	"fmt"
	"math"

	"oncofit/domain/core"
	domain "oncofit/domain/incidence"
	"oncofit/internal/fit"
	"oncofit/internal/model"
	"oncofit/internal/probability"

	"github.com/dustin/go-humanize"
)

// Parameter names accepted in sweeps
const (
	ParamP                = "p"
	ParamM                = "M"
	ParamDivisionsPerYear = "divisions_per_year"
	ParamC                = "C"
	ParamR                = "r"
)

// Sweep lists the values one parameter takes while the others stay fixed
type Sweep struct {
	Param  string    `yaml:"param" json:"param"`
	Values []float64 `yaml:"values" json:"values"`
}

// Variant is one evaluated point of a sweep
type Variant struct {
	Param      string           `json:"param"`
	Value      float64          `json:"value"`
	Label      string           `json:"label"`
	Parameters model.Parameters `json:"parameters"`
	Predicted  []float64        `json:"predicted"`
	Fit        fit.Report       `json:"fit"`
}

// Apply returns base with param set to value. M and C must be whole numbers.
func Apply(base model.Parameters, param string, value float64) (model.Parameters, error) {
	out := base
	switch param {
	case ParamP:
		out.P = value
	case ParamDivisionsPerYear:
		out.DivisionsPerYear = value
	case ParamR:
		out.R = value
	case ParamM, ParamC:
		if value != math.Trunc(value) || math.IsInf(value, 0) {
			return base, core.NewParameterError(param, fmt.Sprintf("must be a whole number, got %v", value))
		}
		if param == ParamM {
			out.M = int(value)
		} else {
			out.C = int(value)
		}
	default:
		return base, fmt.Errorf("%w: %q", core.ErrUnknownParameter, param)
	}
	return out, out.Validate()
}

// Label formats a sweep point: small values in scientific notation,
// large ones with thousands separators.
func Label(param string, value float64) string {
	if value < 1 {
		return fmt.Sprintf("%s = %.2e", param, value)
	}
	return fmt.Sprintf("%s = %s", param, humanize.Commaf(value))
}

// Run evaluates every sweep value against curve. Predictions are scaled so
// their maximum equals the largest observed rate.
func Run(base model.Parameters, curve domain.Curve, sweeps []Sweep, tail probability.PoissonTail) ([]Variant, error) {
	if err := curve.Validate(); err != nil {
		return nil, err
	}
	scale := curve.MaxRate()

	var variants []Variant
	for _, sweep := range sweeps {
		if len(sweep.Values) == 0 {
			return nil, fmt.Errorf("sweep over %q has no values", sweep.Param)
		}
		for _, value := range sweep.Values {
			params, err := Apply(base, sweep.Param, value)
			if err != nil {
				return nil, err
			}
			m, err := model.New(params, model.WithTail(tail))
			if err != nil {
				return nil, err
			}
			predicted := m.PredictScaled(curve.Ages, scale)
			report, err := fit.Evaluate(curve.Rates, predicted)
			if err != nil {
				return nil, err
			}
			variants = append(variants, Variant{
				Param:      sweep.Param,
				Value:      value,
				Label:      Label(sweep.Param, value),
				Parameters: params,
				Predicted:  predicted,
				Fit:        report,
			})
		}
	}
	return variants, nil
}

// Best returns the variant with the lowest MSE, or false when empty
func Best(variants []Variant) (Variant, bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	best := variants[0]
	for _, v := range variants[1:] {
		if v.Fit.MSE < best.Fit.MSE {
			best = v
		}
	}
	return best, true
}

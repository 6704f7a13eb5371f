package model

import (
	"fmt"
	"math"

	"oncofit/domain/core"
)

// Parameters are the biological assumptions behind a model. They are
// evaluated, not fitted, so a model never changes them after construction.
type Parameters struct {
	// P is the per-division driver-mutation probability
	P float64 `json:"p" yaml:"p"`
	// M is the number of independent stem-cell clones in the tissue
	M int `json:"M" yaml:"M"`
	// DivisionsPerYear is the effective stem-cell division rate
	DivisionsPerYear float64 `json:"divisions_per_year" yaml:"divisions_per_year"`
	// C is the clonal threshold: driver hits a clone needs before it counts
	C int `json:"C" yaml:"C"`
	// R is the fraction of mutations repaired, reducing P to P·(1-R)
	R float64 `json:"r" yaml:"r"`
}

// DefaultParameters returns the reference values used for adult
// all-sites incidence.
func DefaultParameters() Parameters {
	return Parameters{
		P:                2e-9,
		M:                500000,
		DivisionsPerYear: 2.5,
		C:                1,
		R:                0,
	}
}

// Validate checks each field against its domain
func (p Parameters) Validate() error {
	if !(p.P > 0 && p.P < 1) {
		return core.NewParameterError("p", fmt.Sprintf("must be in (0,1), got %v", p.P))
	}
	if p.M < 1 {
		return core.NewParameterError("M", fmt.Sprintf("must be >= 1, got %d", p.M))
	}
	if !(p.DivisionsPerYear > 0) || math.IsInf(p.DivisionsPerYear, 0) {
		return core.NewParameterError("divisions_per_year", fmt.Sprintf("must be a positive finite number, got %v", p.DivisionsPerYear))
	}
	if p.C < 1 {
		return core.NewParameterError("C", fmt.Sprintf("must be >= 1, got %d", p.C))
	}
	if !(p.R >= 0 && p.R <= 1) {
		return core.NewParameterError("r", fmt.Sprintf("must be in [0,1], got %v", p.R))
	}
	return nil
}

// EffectiveP is the per-division probability after repair
func (p Parameters) EffectiveP() float64 {
	return p.P * (1 - p.R)
}

// Fingerprint hashes the parameter set for report headers
func (p Parameters) Fingerprint() core.ParameterHash {
	return core.ComputeParameterHash(p.AsMap())
}

// AsMap returns the parameters keyed by their external names
func (p Parameters) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"p":                  p.P,
		"M":                  p.M,
		"divisions_per_year": p.DivisionsPerYear,
		"C":                  p.C,
		"r":                  p.R,
	}
}

func (p Parameters) String() string {
	return fmt.Sprintf("p=%.3g M=%d divisions_per_year=%g C=%d r=%g", p.P, p.M, p.DivisionsPerYear, p.C, p.R)
}

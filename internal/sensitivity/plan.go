package sensitivity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is a YAML sweep definition:
//
//	sweeps:
//	  - param: p
//	    values: [1e-9, 2e-9, 5e-9]
//	  - param: M
//	    values: [100000, 500000]
type Plan struct {
	Sweeps []Sweep `yaml:"sweeps"`
}

// LoadPlan reads a plan file
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes plan YAML
func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse sweep plan: %w", err)
	}
	if len(plan.Sweeps) == 0 {
		return nil, fmt.Errorf("sweep plan defines no sweeps")
	}
	return &plan, nil
}

// DefaultPlan mirrors the reference analysis: p over one decade and M
// over two orders of magnitude.
func DefaultPlan() *Plan {
	return &Plan{Sweeps: []Sweep{
		{Param: ParamP, Values: []float64{1e-9, 2e-9, 5e-9, 1e-8}},
		{Param: ParamM, Values: []float64{1e4, 1e5, 5e5, 1e6}},
	}}
}

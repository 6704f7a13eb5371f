package fit

import (
	"math"

	"github.com/montanaflynn/stats"
)

// GoodFitFraction sets the half-width of the good-fit band as a fraction
// of the largest observed rate.
const GoodFitFraction = 0.1

// ResidualSummary splits residuals by sign and counts those inside the
// good-fit band. A residual of zero counts as underestimated.
type ResidualSummary struct {
	Threshold       float64 `json:"threshold"`
	Underestimated  int     `json:"underestimated"`
	Overestimated   int     `json:"overestimated"`
	WithinThreshold int     `json:"within_threshold"`
}

// Classify summarizes report residuals against the observed series they
// came from.
func Classify(report Report, observed []float64) ResidualSummary {
	summary := ResidualSummary{}
	if max, err := stats.Max(observed); err == nil {
		summary.Threshold = GoodFitFraction * max
	}
	for _, r := range report.Residuals {
		if r >= 0 {
			summary.Underestimated++
		} else {
			summary.Overestimated++
		}
		if math.Abs(r) <= summary.Threshold {
			summary.WithinThreshold++
		}
	}
	return summary
}

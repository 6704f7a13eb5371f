// Package fit scores predicted incidence curves against observed ones.
package fit

import (
	"math"

	"oncofit/domain/core"

	"github.com/montanaflynn/stats"
)

// Report holds regression-quality statistics for one observed/predicted
// pair on a shared age grid. R2 is NaN when the observed series is
// constant, since the total sum of squares is zero.
type Report struct {
	MSE       float64   `json:"mse"`
	RMSE      float64   `json:"rmse"`
	MAE       float64   `json:"mae"`
	R2        float64   `json:"r2"`
	Residuals []float64 `json:"residuals"`
}

// R2Defined reports whether R2 carries a value
func (r Report) R2Defined() bool {
	return !math.IsNaN(r.R2)
}

// Evaluate computes residuals (observed - predicted) and MSE, RMSE, MAE and
// R². Both series must be non-empty and of equal length.
func Evaluate(observed, predicted []float64) (Report, error) {
	if len(observed) != len(predicted) {
		return Report{}, core.NewShapeError("observed/predicted", len(observed), len(predicted))
	}
	if len(observed) == 0 {
		return Report{}, core.ErrInsufficientData
	}

	residuals := make([]float64, len(observed))
	squared := make([]float64, len(observed))
	absolute := make([]float64, len(observed))
	for i := range observed {
		residuals[i] = observed[i] - predicted[i]
		squared[i] = residuals[i] * residuals[i]
		absolute[i] = math.Abs(residuals[i])
	}

	mse, err := stats.Mean(squared)
	if err != nil {
		return Report{}, err
	}
	mae, err := stats.Mean(absolute)
	if err != nil {
		return Report{}, err
	}
	ssRes, err := stats.Sum(squared)
	if err != nil {
		return Report{}, err
	}
	ssTot, err := totalSumOfSquares(observed)
	if err != nil {
		return Report{}, err
	}

	r2 := math.NaN()
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}

	return Report{
		MSE:       mse,
		RMSE:      math.Sqrt(mse),
		MAE:       mae,
		R2:        r2,
		Residuals: residuals,
	}, nil
}

// totalSumOfSquares is the squared deviation from the mean summed over observed
func totalSumOfSquares(observed []float64) (float64, error) {
	variance, err := stats.PopulationVariance(observed)
	if err != nil {
		return 0, err
	}
	return variance * float64(len(observed)), nil
}

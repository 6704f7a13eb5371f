// Package calibrate searches the mutation probability that best matches an
// observed age-incidence curve once predictions are put on the observed
// rate scale.
package calibrate

import (
	"fmt"
	"math"

	domain "oncofit/domain/incidence"
	"oncofit/internal/fit"
	"oncofit/internal/model"
	"oncofit/internal/probability"

	"gonum.org/v1/gonum/optimize"
)

// Search bounds for log10(p)
const (
	MinLog10P = -15.0
	MaxLog10P = -1.0
)

// Settings bound the optimizer
type Settings struct {
	MaxIterations      int
	MaxFuncEvaluations int
	Tail               probability.PoissonTail
}

// DefaultSettings are enough for the one-dimensional search to converge
func DefaultSettings() Settings {
	return Settings{MaxIterations: 200, MaxFuncEvaluations: 1000}
}

// Result is the outcome of a calibration
type Result struct {
	Initial     model.Parameters `json:"initial"`
	Parameters  model.Parameters `json:"parameters"`
	InitialFit  fit.Report       `json:"initial_fit"`
	Fit         fit.Report       `json:"fit"`
	Predicted   []float64        `json:"predicted"`
	Evaluations int              `json:"evaluations"`
	Status      string           `json:"status"`
}

// Calibrate minimizes the MSE between curve rates and predictions scaled
// to the curve maximum over x = log10(p), holding every other parameter at
// its base value. The returned fit is never worse than the base fit.
func Calibrate(base model.Parameters, curve domain.Curve, settings Settings) (*Result, error) {
	if err := curve.Validate(); err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	scale := curve.MaxRate()

	evaluate := func(params model.Parameters) ([]float64, fit.Report, error) {
		m, err := model.New(params, model.WithTail(settings.Tail))
		if err != nil {
			return nil, fit.Report{}, err
		}
		predicted := m.PredictScaled(curve.Ages, scale)
		report, err := fit.Evaluate(curve.Rates, predicted)
		return predicted, report, err
	}

	initialPred, initialFit, err := evaluate(base)
	if err != nil {
		return nil, err
	}

	objective := func(x []float64) float64 {
		if x[0] < MinLog10P || x[0] > MaxLog10P || math.IsNaN(x[0]) {
			return math.Inf(1)
		}
		params := base
		params.P = math.Pow(10, x[0])
		_, report, err := evaluate(params)
		if err != nil {
			return math.Inf(1)
		}
		return report.MSE
	}

	problem := optimize.Problem{Func: objective}
	optSettings := &optimize.Settings{
		MajorIterations: settings.MaxIterations,
		FuncEvaluations: settings.MaxFuncEvaluations,
	}
	start := []float64{clampLog10(math.Log10(base.P))}

	opt, err := optimize.Minimize(problem, start, optSettings, &optimize.NelderMead{})
	if err != nil && opt == nil {
		return nil, fmt.Errorf("calibration failed: %w", err)
	}

	result := &Result{
		Initial:     base,
		Parameters:  base,
		InitialFit:  initialFit,
		Fit:         initialFit,
		Predicted:   initialPred,
		Evaluations: opt.Stats.FuncEvaluations,
		Status:      opt.Status.String(),
	}

	if opt.F < initialFit.MSE {
		params := base
		params.P = math.Pow(10, opt.X[0])
		predicted, report, err := evaluate(params)
		if err != nil {
			return nil, err
		}
		if report.MSE <= initialFit.MSE {
			result.Parameters = params
			result.Fit = report
			result.Predicted = predicted
		}
	}
	return result, nil
}

func clampLog10(x float64) float64 {
	return math.Max(MinLog10P, math.Min(MaxLog10P, x))
}

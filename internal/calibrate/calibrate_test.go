package calibrate

import (
	"testing"

	"oncofit/domain/core"
	domain "oncofit/domain/incidence"
	"oncofit/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticCurve(t *testing.T, truth model.Parameters, scale float64) domain.Curve {
	t.Helper()
	ages := []float64{2.5, 12, 22, 32, 42, 52, 62, 72, 87.5}
	m, err := model.New(truth)
	require.NoError(t, err)
	return domain.Curve{Year: 2020, Ages: ages, Rates: m.PredictScaled(ages, scale)}
}

func TestCalibrate_RecoversMutationProbability(t *testing.T) {
	truth := model.Parameters{P: 1e-4, M: 100, DivisionsPerYear: 10, C: 1}
	curve := syntheticCurve(t, truth, 1000)

	start := truth
	start.P = 1e-5

	result, err := Calibrate(start, curve, DefaultSettings())
	require.NoError(t, err)

	assert.InEpsilon(t, truth.P, result.Parameters.P, 0.05)
	assert.Less(t, result.Fit.MSE, result.InitialFit.MSE*0.01)
	assert.Equal(t, start, result.Initial)
	assert.Equal(t, truth.M, result.Parameters.M)
	assert.Positive(t, result.Evaluations)
	assert.NotEmpty(t, result.Status)
	assert.Len(t, result.Predicted, curve.Len())
}

func TestCalibrate_NeverWorsensFit(t *testing.T) {
	curve := domain.Curve{
		Ages:  []float64{2.5, 22, 42, 62, 72, 87.5},
		Rates: []float64{20, 90, 400, 1500, 2160, 2100},
	}
	for _, c := range []int{1, 2, 3} {
		base := model.DefaultParameters()
		base.C = c

		result, err := Calibrate(base, curve, DefaultSettings())
		require.NoError(t, err, "C=%d", c)
		assert.LessOrEqual(t, result.Fit.MSE, result.InitialFit.MSE, "C=%d", c)
		assert.True(t, result.Parameters.P > 0 && result.Parameters.P < 1)
	}
}

func TestCalibrate_InvalidInput(t *testing.T) {
	_, err := Calibrate(model.DefaultParameters(), domain.Curve{}, DefaultSettings())
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	bad := model.DefaultParameters()
	bad.M = 0
	curve := domain.Curve{Ages: []float64{10, 20}, Rates: []float64{1, 2}}
	_, err = Calibrate(bad, curve, DefaultSettings())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

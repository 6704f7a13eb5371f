package probability

import (
	"fmt"
	"math"
	"testing"

	"oncofit/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestAtLeast_SingleHitMatchesClosedForm(t *testing.T) {
	for _, p := range []float64{1e-9, 2e-9, 1e-4, 0.01, 0.3, 0.9} {
		for _, n := range []float64{0, 0.5, 1, 2.5, 40, 160, 1e4, 2.5e5, 1e6} {
			want := 1 - math.Pow(1-p, n)
			got := AtLeast(n, p, 1, nil)
			assert.InDelta(t, want, got, 1e-12, "n=%v p=%v", n, p)
		}
	}
}

// Lifetime division counts for the reference tissues: up to 100 years at
// 2.5 divisions per year, p on the 1e-9 scale.
func TestAtLeast_SingleHitReferenceRange(t *testing.T) {
	for _, p := range []float64{1e-9, 2e-9, 5e-9, 1e-8} {
		for age := 0.0; age <= 100; age++ {
			n := age * 2.5
			assert.InDelta(t, 1-math.Pow(1-p, n), AtLeast(n, p, 1, nil), 1e-12, "n=%v p=%v", n, p)
		}
	}
	assert.Equal(t, 1-math.Pow(1-2e-9, 2.5e5), AtLeast(2.5e5, 2e-9, 1, nil))
}

func TestAtLeast_ThresholdAboveTrials(t *testing.T) {
	tests := []struct {
		n float64
		k int
	}{
		{0, 2},
		{1.5, 2},
		{2, 3},
		{49.9, 50},
	}
	for _, tt := range tests {
		for _, tail := range []PoissonTail{GonumTail{}, RecurrenceTail{}} {
			assert.Equal(t, 0.0, AtLeast(tt.n, 0.5, tt.k, tail), "n=%v k=%d tail=%s", tt.n, tt.k, tail.Name())
		}
	}
}

func TestAtLeast_TinyLambdaShortCircuits(t *testing.T) {
	assert.Equal(t, 0.0, AtLeast(10, 1e-12, 2, nil))
	assert.Greater(t, AtLeast(1e4, 1e-9, 2, nil), 0.0)
}

func TestAtLeast_PoissonApproximatesBinomial(t *testing.T) {
	const (
		n = 1e4
		p = 1e-4
	)
	for _, k := range []int{2, 3, 4} {
		exact := 1 - distuv.Binomial{N: n, P: p}.CDF(float64(k-1))
		approx := AtLeast(n, p, k, nil)
		assert.InDelta(t, exact, approx, 1e-4, "k=%d", k)
	}
}

func TestAtLeast_MonotoneInTrials(t *testing.T) {
	prev := 0.0
	for n := 2.0; n <= 400; n += 2 {
		got := AtLeast(n, 1e-3, 3, nil)
		require.GreaterOrEqual(t, got, prev, "n=%v", n)
		prev = got
	}
}

func TestTailStrategies_Agree(t *testing.T) {
	lambdas := []float64{1e-8, 1e-3, 0.1, 0.5, 1, 2, 5, 20, 100, 500, 2000}
	ks := []int{1, 2, 3, 5, 10, 50, 200}

	for _, lambda := range lambdas {
		for _, k := range ks {
			t.Run(fmt.Sprintf("k=%d/lambda=%g", k, lambda), func(t *testing.T) {
				g := GonumTail{}.UpperTail(k, lambda)
				r := RecurrenceTail{}.UpperTail(k, lambda)
				assert.InDelta(t, g, r, TailTolerance)
				assert.True(t, g >= 0 && g <= 1, "gonum tail out of range: %v", g)
				assert.True(t, r >= 0 && r <= 1, "recurrence tail out of range: %v", r)
			})
		}
	}
}

func TestTailStrategies_MatchPoissonCDF(t *testing.T) {
	for _, lambda := range []float64{0.5, 1, 3, 10, 40} {
		for _, k := range []int{1, 2, 4, 8, 16} {
			want := 1 - distuv.Poisson{Lambda: lambda}.CDF(float64(k-1))
			assert.InDelta(t, want, GonumTail{}.UpperTail(k, lambda), TailTolerance, "k=%d lambda=%v", k, lambda)
			assert.InDelta(t, want, RecurrenceTail{}.UpperTail(k, lambda), TailTolerance, "k=%d lambda=%v", k, lambda)
		}
	}
}

// For small lambda the tail is dominated by its first term; both strategies
// must keep relative precision where 1-CDF would cancel to noise.
func TestTailStrategies_RelativePrecisionForSmallLambda(t *testing.T) {
	lambda := 1e-6
	want := lambda * lambda / 2 * math.Exp(-lambda) * (1 + lambda/3 + lambda*lambda/12)
	assert.InEpsilon(t, want, RecurrenceTail{}.UpperTail(2, lambda), 1e-9)
	assert.InEpsilon(t, want, GonumTail{}.UpperTail(2, lambda), 1e-9)
}

func TestTailStrategies_Edges(t *testing.T) {
	for _, tail := range []PoissonTail{GonumTail{}, RecurrenceTail{}} {
		assert.Equal(t, 1.0, tail.UpperTail(0, 3), tail.Name())
		assert.Equal(t, 0.0, tail.UpperTail(2, 0), tail.Name())
		assert.InDelta(t, 1.0, tail.UpperTail(2, 1e6), 1e-12, tail.Name())
	}
}

func TestTailByName(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantErr  bool
	}{
		{"", TailGonum, false},
		{"gonum", TailGonum, false},
		{" Recurrence ", TailRecurrence, false},
		{"exact", "", true},
	}
	for _, tt := range tests {
		tail, err := TailByName(tt.name)
		if tt.wantErr {
			assert.ErrorIs(t, err, core.ErrUnknownTail)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.wantName, tail.Name())
	}
}

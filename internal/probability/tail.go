package probability

import (
	"fmt"
	"math"
	"strings"

	"oncofit/domain/core"

	"gonum.org/v1/gonum/mathext"
)

// PoissonTail computes P(X >= k) for X ~ Poisson(lambda).
// Implementations must agree to within TailTolerance.
type PoissonTail interface {
	UpperTail(k int, lambda float64) float64
	Name() string
}

// TailTolerance is the absolute agreement required between tail strategies
const TailTolerance = 1e-9

const (
	TailGonum      = "gonum"
	TailRecurrence = "recurrence"
)

// GonumTail evaluates the tail through the regularized lower incomplete
// gamma function, P(X >= k) = P(k, lambda). This equals
// 1 - distuv.Poisson{Lambda: lambda}.CDF(k-1) without the cancellation
// that form suffers when the tail is tiny.
type GonumTail struct{}

func (GonumTail) Name() string { return TailGonum }

func (GonumTail) UpperTail(k int, lambda float64) float64 {
	if k <= 0 {
		return 1
	}
	if lambda <= 0 {
		return 0
	}
	return clamp01(mathext.GammaIncReg(float64(k), lambda))
}

// RecurrenceTail sums Poisson terms t_i = e^-λ λ^i / i! iteratively,
// starting from the term at the k boundary and walking away from it so
// every step shrinks the term. Only the starting term is computed in log
// space; no factorial or power is formed directly.
type RecurrenceTail struct{}

const (
	recurrenceEpsilon  = 1e-17
	recurrenceMaxTerms = 100000
)

func (RecurrenceTail) Name() string { return TailRecurrence }

func (RecurrenceTail) UpperTail(k int, lambda float64) float64 {
	if k <= 0 {
		return 1
	}
	if lambda <= 0 {
		return 0
	}

	if lambda < float64(k) {
		// Terms decrease for i >= k, so sum the upper tail directly.
		term := poissonTerm(k, lambda)
		sum := 0.0
		for i := k; i < k+recurrenceMaxTerms; i++ {
			sum += term
			term *= lambda / float64(i+1)
			if term <= sum*recurrenceEpsilon {
				break
			}
		}
		return clamp01(sum)
	}

	// Terms decrease for i < k going down, so sum the CDF and complement it.
	term := poissonTerm(k-1, lambda)
	cdf := 0.0
	for i := k - 1; i >= 0; i-- {
		cdf += term
		if term <= cdf*recurrenceEpsilon {
			break
		}
		term *= float64(i) / lambda
	}
	return clamp01(1 - cdf)
}

// poissonTerm returns e^-λ λ^i / i! evaluated in log space
func poissonTerm(i int, lambda float64) float64 {
	lg, _ := math.Lgamma(float64(i) + 1)
	return math.Exp(float64(i)*math.Log(lambda) - lambda - lg)
}

// TailByName resolves a strategy name from config or flags
func TailByName(name string) (PoissonTail, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TailGonum:
		return GonumTail{}, nil
	case TailRecurrence:
		return RecurrenceTail{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", core.ErrUnknownTail, name, TailGonum, TailRecurrence)
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Package probability computes the chance that a clone collects at least
// k driver mutations over n divisions.
package probability

import "math"

// MinLambda is the expected hit count below which a multi-hit tail is
// reported as exactly zero.
const MinLambda = 1e-10

// DefaultTail is used when AtLeast is given a nil strategy
var DefaultTail PoissonTail = GonumTail{}

// AtLeast returns P(X >= k) where X counts successes in n trials of
// probability p. n may be fractional (age × divisions per year).
//
// k == 1 uses the exact closed form 1-(1-p)^n. For k > 1 the binomial tail
// is replaced by the Poisson tail with rate n·p, which is accurate for the
// large-n, small-p regime the model works in.
//
// Preconditions: 0 < p < 1, n >= 0, k >= 1. They are not checked.
func AtLeast(n, p float64, k int, tail PoissonTail) float64 {
	if k <= 0 {
		return 1
	}
	if k == 1 {
		return 1 - math.Pow(1-p, n)
	}
	if float64(k) > n {
		return 0
	}
	lambda := n * p
	if lambda < MinLambda {
		return 0
	}
	if tail == nil {
		tail = DefaultTail
	}
	return tail.UpperTail(k, lambda)
}

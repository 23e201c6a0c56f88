package macpp

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// IntegralApprox is a Monte Carlo estimate of the kernel mass that falls
// inside the window,
//
//	(1/B) sum_k sum_b 1[ C_k + h*eps_kb in W ],
//
// with eps_kb standard bivariate normal. Fresh draws are taken on every
// call; the estimate is deliberately not cached between proposals.
func IntegralApprox(parents *Pattern, h float64, w *Window, b int, rng *rand.Rand) (float64, error) {
	if !(h > 0) || math.IsInf(h, 0) {
		return 0, fmt.Errorf("%w: bandwidth %v", ErrNumerical, h)
	}
	if b < 1 {
		return 0, fmt.Errorf("%w: Monte Carlo size %d", ErrConfiguration, b)
	}
	if len(parents.X) != len(parents.Y) {
		return 0, fmt.Errorf("%w: ragged parent coordinates", ErrShapeMismatch)
	}
	hits := 0
	for k := range parents.X {
		cx, cy := parents.X[k], parents.Y[k]
		for i := 0; i < b; i++ {
			x := cx + h*rng.NormFloat64()
			y := cy + h*rng.NormFloat64()
			if w.Contains(x, y) {
				hits++
			}
		}
	}
	return float64(hits) / float64(b), nil
}

package macpp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// KernelLogSum computes the pairwise sufficient statistic
//
//	sum_i log( sum_k K_h(Y_i - C_k) )
//
// for an isotropic Gaussian kernel with per-coordinate standard deviation h.
// The inner sum is evaluated with log-sum-exp so distant pairs do not
// underflow. An empty offspring or parent set contributes 0.
func KernelLogSum(offspring, parents *Pattern, h float64) (float64, error) {
	if !(h > 0) || math.IsInf(h, 0) {
		return 0, fmt.Errorf("%w: bandwidth %v", ErrNumerical, h)
	}
	if len(offspring.X) != len(offspring.Y) || len(parents.X) != len(parents.Y) {
		return 0, fmt.Errorf("%w: ragged coordinates", ErrShapeMismatch)
	}
	if offspring.N() == 0 || parents.N() == 0 {
		return 0, nil
	}

	inv2h2 := 1 / (2 * h * h)
	logNorm := math.Log(2 * math.Pi * h * h)
	logK := make([]float64, parents.N())
	sum := 0.0
	for i := range offspring.X {
		yx, yy := offspring.X[i], offspring.Y[i]
		for k := range parents.X {
			dx := yx - parents.X[k]
			dy := yy - parents.Y[k]
			logK[k] = -(dx*dx + dy*dy) * inv2h2
		}
		sum += floats.LogSumExp(logK) - logNorm
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, fmt.Errorf("%w: kernel log-sum is %v at h=%v", ErrNumerical, sum, h)
	}
	return sum, nil
}

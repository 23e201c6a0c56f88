package macpp

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// offspringChain is the per offspring type part of the chain state. The
// cached bignum1 and bignum2 always belong to the current h; a bandwidth
// update replaces all three together or none of them.
type offspringChain struct {
	label       string
	parentLabel string
	parents     *Pattern
	offspring   *Pattern

	mu0     float64
	h       float64
	bignum1 float64 // Monte Carlo in-window kernel mass at h
	bignum2 float64 // kernel log-sum at h

	step float64
	rng  *rand.Rand

	proposed    int
	accepted    int
	lastOutcome string
}

// init computes the cached statistics for the current h.
func (c *offspringChain) init(w *Window, b int) error {
	b1, err := IntegralApprox(c.parents, c.h, w, b, c.rng)
	if err != nil {
		return fmt.Errorf("offspring %q: %w", c.label, err)
	}
	b2, err := KernelLogSum(c.offspring, c.parents, c.h)
	if err != nil {
		return fmt.Errorf("offspring %q: %w", c.label, err)
	}
	c.bignum1, c.bignum2 = b1, b2
	return nil
}

// logLikelihood is the Poisson process log-likelihood in h, up to terms
// that do not depend on h.
func (c *offspringChain) logLikelihood(bignum1, bignum2 float64) float64 {
	return -c.mu0*bignum1 + bignum2
}

// updateBandwidth is one random walk Metropolis step for h under a
// half-normal prior with scale hsd.
func (c *offspringChain) updateBandwidth(w *Window, b int, hsd float64) error {
	c.proposed++
	hNew := c.h + c.step*c.rng.NormFloat64()
	if hNew <= 0 {
		c.lastOutcome = outcomeNonPositive
		return nil
	}
	logPrior := -0.5 * ((hNew/hsd)*(hNew/hsd) - (c.h/hsd)*(c.h/hsd))

	b1, err := IntegralApprox(c.parents, hNew, w, b, c.rng)
	if err != nil {
		return fmt.Errorf("offspring %q: %w", c.label, err)
	}
	b2, err := KernelLogSum(c.offspring, c.parents, hNew)
	if err != nil {
		return fmt.Errorf("offspring %q: %w", c.label, err)
	}

	logA := c.logLikelihood(b1, b2) - c.logLikelihood(c.bignum1, c.bignum2) + logPrior
	if math.IsNaN(logA) {
		return fmt.Errorf("%w: offspring %q acceptance ratio is NaN at h=%v", ErrNumerical, c.label, hNew)
	}
	if math.Log(c.rng.Float64()) < logA {
		c.h, c.bignum1, c.bignum2 = hNew, b1, b2
		c.accepted++
		c.lastOutcome = outcomeAccepted
		return nil
	}
	c.lastOutcome = outcomeRejected
	return nil
}

func (c *offspringChain) acceptance() float64 {
	if c.proposed == 0 {
		return 0
	}
	return float64(c.accepted) / float64(c.proposed)
}

// conjugateGamma draws from the Gamma(a+count, b+exposure) posterior of a
// Poisson intensity. exposure is the window area, or the in-window kernel
// mass for offspring intensities.
func conjugateGamma(a, b float64, count int, exposure float64, src rand.Source) float64 {
	return distuv.Gamma{Alpha: a + float64(count), Beta: b + exposure, Src: src}.Rand()
}

// halfNormalScale is the bandwidth prior scale: hclimp times the window
// diagonal, divided by the 99th percentile of a standard normal.
func halfNormalScale(hclimp, diagonal float64) float64 {
	return hclimp * diagonal / distuv.UnitNormal.Quantile(0.99)
}

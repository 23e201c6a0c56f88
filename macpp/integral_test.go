package macpp

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegralApproxInterior(t *testing.T) {
	w := unitSquare(t)
	rng := rand.New(rand.NewPCG(1, 1))
	par := points([]float64{0.5, 0.4}, []float64{0.5, 0.6})
	got, err := IntegralApprox(par, 0.001, w, 100, rng)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestIntegralApproxCorner(t *testing.T) {
	w := unitSquare(t)
	rng := rand.New(rand.NewPCG(2, 1))
	par := points([]float64{0}, []float64{0})
	got, err := IntegralApprox(par, 0.05, w, 200000, rng)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got, 0.01)
}

func TestIntegralApproxSeeds(t *testing.T) {
	w := unitSquare(t)
	par := points([]float64{0.1, 0.5, 0.9}, []float64{0.2, 0.95, 0.5})
	a, err := IntegralApprox(par, 0.1, w, 50000, rand.New(rand.NewPCG(7, 0)))
	require.NoError(t, err)
	b, err := IntegralApprox(par, 0.1, w, 50000, rand.New(rand.NewPCG(8, 0)))
	require.NoError(t, err)
	assert.InDelta(t, a, b, 0.03)
	assert.Greater(t, a, 0.0)
	assert.Less(t, a, 3.0)
}

func TestIntegralApproxFreshDraws(t *testing.T) {
	w := unitSquare(t)
	rng := rand.New(rand.NewPCG(9, 0))
	par := points([]float64{0.05}, []float64{0.5})
	a, err := IntegralApprox(par, 0.1, w, 50, rng)
	require.NoError(t, err)
	same := true
	for i := 0; i < 20; i++ {
		b, err := IntegralApprox(par, 0.1, w, 50, rng)
		require.NoError(t, err)
		if b != a {
			same = false
		}
	}
	assert.False(t, same)
}

func TestIntegralApproxErrors(t *testing.T) {
	w := unitSquare(t)
	rng := rand.New(rand.NewPCG(1, 1))
	par := points([]float64{0.5}, []float64{0.5})
	_, err := IntegralApprox(par, 0.1, w, 0, rng)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = IntegralApprox(par, 0, w, 10, rng)
	assert.ErrorIs(t, err, ErrNumerical)

	got, err := IntegralApprox(points([]float64{}, []float64{}), 0.1, w, 10, rng)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

package macpp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialBandwidthKnownDistance(t *testing.T) {
	par := points([]float64{0}, []float64{0})
	off := points([]float64{1, 0, -1, 0}, []float64{0, 1, 0, -1})
	h, err := InitialBandwidth(off, par)
	require.NoError(t, err)
	assert.InDelta(t, 1/math.Sqrt(math.Pi/2), h, 1e-12)
}

func TestInitialBandwidthNearestParent(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	off := randomPoints(rng, 50)
	par := randomPoints(rng, 40)

	total := 0.0
	for i := range off.X {
		best := math.Inf(1)
		for k := range par.X {
			best = math.Min(best, math.Hypot(off.X[i]-par.X[k], off.Y[i]-par.Y[k]))
		}
		total += best
	}
	want := total / float64(off.N()) / math.Sqrt(math.Pi/2)

	got, err := InitialBandwidth(off, par)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestInitialBandwidthInsufficient(t *testing.T) {
	some := points([]float64{0.5}, []float64{0.5})
	empty := points([]float64{}, []float64{})
	_, err := InitialBandwidth(empty, some)
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = InitialBandwidth(some, empty)
	assert.ErrorIs(t, err, ErrInsufficientData)
	_, err = InitialBandwidth(some, some)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestJitterBandwidth(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	assert.Equal(t, 0.3, JitterBandwidth(0.3, 0, rng))

	const n = 100000
	sum := 0.0
	for i := 0; i < n; i++ {
		h := JitterBandwidth(0.3, 0.2, rng)
		require.GreaterOrEqual(t, h, 0.3*0.8)
		require.LessOrEqual(t, h, 0.3*1.2)
		sum += h
	}
	assert.InDelta(t, 0.3, sum/n, 0.002)
}

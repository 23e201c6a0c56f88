package macpp

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// planePoint satisfies kdtree.Comparable.
type planePoint struct {
	x, y float64
}

func (p planePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(planePoint)
	switch d {
	case 0:
		return p.x - q.x
	case 1:
		return p.y - q.y
	default:
		panic("illegal dimension")
	}
}

func (p planePoint) Dims() int { return 2 }

// Distance is squared Euclidean distance.
func (p planePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(planePoint)
	dx := p.x - q.x
	dy := p.y - q.y
	return dx*dx + dy*dy
}

type planePoints []planePoint

func (p planePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p planePoints) Len() int                              { return len(p) }
func (p planePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p planePoints) Pivot(d kdtree.Dim) int {
	plane := pointPlane{planePoints: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfRandoms(plane, 100))
}

type pointPlane struct {
	planePoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.planePoints[i].x < p.planePoints[j].x
	case 1:
		return p.planePoints[i].y < p.planePoints[j].y
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{planePoints: p.planePoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.planePoints[i], p.planePoints[j] = p.planePoints[j], p.planePoints[i]
}

// rayleighMean is E|Z| / sigma for a 2-d isotropic normal Z.
var rayleighMean = math.Sqrt(math.Pi / 2)

// InitialBandwidth is the starting bandwidth for one offspring type: the mean
// distance from each offspring point to its nearest parent, divided by the
// Rayleigh mean so it is on the scale of the per-coordinate kernel spread.
func InitialBandwidth(offspring, parents *Pattern) (float64, error) {
	if offspring.N() == 0 || parents.N() == 0 {
		return 0, fmt.Errorf("%w: bandwidth needs offspring and parent points, have %d and %d",
			ErrInsufficientData, offspring.N(), parents.N())
	}
	pts := make(planePoints, parents.N())
	for k := range parents.X {
		pts[k] = planePoint{parents.X[k], parents.Y[k]}
	}
	tree := kdtree.New(pts, false)

	total := 0.0
	for i := range offspring.X {
		_, d2 := tree.Nearest(planePoint{offspring.X[i], offspring.Y[i]})
		total += math.Sqrt(d2)
	}
	h := total / float64(offspring.N()) / rayleighMean
	if !(h > 0) || math.IsInf(h, 0) {
		return 0, fmt.Errorf("%w: offspring coincide with parents, bandwidth %v", ErrInsufficientData, h)
	}
	return h, nil
}

// JitterBandwidth multiplies h by 1 + jitter*U(-1, 1). The noise has mean
// zero, so it decorrelates chains without shifting the estimate. jitter must
// lie in [0, 1).
func JitterBandwidth(h, jitter float64, rng *rand.Rand) float64 {
	if jitter <= 0 {
		return h
	}
	return h * (1 + jitter*(2*rng.Float64()-1))
}

package macpp

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Window is the observation region: an axis aligned rectangle or a simple
// polygon. Containment is boundary inclusive in both cases.
type Window struct {
	bound   orb.Bound
	ring    orb.Ring // nil for rectangles
	area    float64
	polygon bool
}

// NewRectWindow returns the rectangle xrange × yrange. Both ranges are
// [min, max] with min < max.
func NewRectWindow(xrange, yrange [2]float64) (*Window, error) {
	if !(xrange[0] < xrange[1]) || !(yrange[0] < yrange[1]) {
		return nil, fmt.Errorf("%w: rectangle window needs min < max, got x=%v y=%v", ErrConfiguration, xrange, yrange)
	}
	for _, v := range []float64{xrange[0], xrange[1], yrange[0], yrange[1]} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: rectangle window bounds must be finite", ErrConfiguration)
		}
	}
	b := orb.Bound{Min: orb.Point{xrange[0], yrange[0]}, Max: orb.Point{xrange[1], yrange[1]}}
	return &Window{
		bound: b,
		area:  (xrange[1] - xrange[0]) * (yrange[1] - yrange[0]),
	}, nil
}

// NewPolygonWindow returns the polygon with the given vertex ring. The ring
// may be open or closed. Self intersections are not detected.
func NewPolygonWindow(vertices []orb.Point) (*Window, error) {
	ring := make(orb.Ring, len(vertices), len(vertices)+1)
	copy(ring, vertices)
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("%w: polygon window needs at least 3 vertices, got %d", ErrConfiguration, len(ring))
	}
	ring = append(ring, ring[0])
	area := math.Abs(planar.Area(ring))
	if !(area > 0) || math.IsInf(area, 0) {
		return nil, fmt.Errorf("%w: polygon window has area %v", ErrConfiguration, area)
	}
	return &Window{bound: ring.Bound(), ring: ring, area: area, polygon: true}, nil
}

// ConvexHullWindow returns the convex hull of the points as a polygon window.
func ConvexHullWindow(xs, ys []float64) (*Window, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x values, %d y values", ErrShapeMismatch, len(xs), len(ys))
	}
	pts := make([]orb.Point, len(xs))
	for i := range xs {
		pts[i] = orb.Point{xs[i], ys[i]}
	}
	hull := convexHull(pts)
	if len(hull) < 3 {
		return nil, fmt.Errorf("%w: convex hull of %d points is degenerate", ErrInsufficientData, len(xs))
	}
	return NewPolygonWindow(hull)
}

// convexHull is Andrew's monotone chain. Collinear points are dropped and
// the result is counter-clockwise and open.
func convexHull(pts []orb.Point) []orb.Point {
	if len(pts) < 3 {
		return nil
	}
	sorted := make([]orb.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})
	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}
	hull := make([]orb.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// IsPolygon reports whether the window is a polygon rather than a rectangle.
func (w *Window) IsPolygon() bool { return w.polygon }

// Area is strictly positive.
func (w *Window) Area() float64 { return w.area }

// Bound is the bounding box of the window.
func (w *Window) Bound() orb.Bound { return w.bound }

// Ring returns a copy of the closed vertex ring, or nil for rectangles.
func (w *Window) Ring() orb.Ring {
	if w.ring == nil {
		return nil
	}
	return append(orb.Ring(nil), w.ring...)
}

// Diagonal is the length of the bounding box diagonal.
func (w *Window) Diagonal() float64 {
	return math.Hypot(w.bound.Max[0]-w.bound.Min[0], w.bound.Max[1]-w.bound.Min[1])
}

// Contains reports whether (x, y) is inside or on the boundary.
func (w *Window) Contains(x, y float64) bool {
	p := orb.Point{x, y}
	if !w.bound.Contains(p) {
		return false
	}
	if !w.polygon {
		return true
	}
	if onRing(w.ring, p) {
		return true
	}
	return planar.RingContains(w.ring, p)
}

// Inside returns 1 for every point inside or on the boundary, else 0.
func (w *Window) Inside(xs, ys []float64) ([]int, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d x values, %d y values", ErrShapeMismatch, len(xs), len(ys))
	}
	out := make([]int, len(xs))
	for i := range xs {
		if w.Contains(xs[i], ys[i]) {
			out[i] = 1
		}
	}
	return out, nil
}

// onRing reports whether p lies on one of the edges of the closed ring.
func onRing(r orb.Ring, p orb.Point) bool {
	for i := 0; i+1 < len(r); i++ {
		a, b := r[i], r[i+1]
		cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
		scale := math.Max(math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1]))
		if math.Abs(cross) > 1e-12*math.Max(scale*scale, 1) {
			continue
		}
		if p[0] >= math.Min(a[0], b[0]) && p[0] <= math.Max(a[0], b[0]) &&
			p[1] >= math.Min(a[1], b[1]) && p[1] <= math.Max(a[1], b[1]) {
			return true
		}
	}
	return false
}

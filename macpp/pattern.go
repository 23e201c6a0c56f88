package macpp

import (
	"fmt"
	"sort"
)

// Pattern is a marked point pattern observed in a window. Sub-patterns
// produced by Split share the parent window.
type Pattern struct {
	X      []float64
	Y      []float64
	Marks  []string
	Window *Window
}

// NewPattern checks that coordinates and marks line up. marks may be nil for
// an unmarked pattern.
func NewPattern(x, y []float64, marks []string, w *Window) (*Pattern, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x values, %d y values", ErrShapeMismatch, len(x), len(y))
	}
	if marks != nil && len(marks) != len(x) {
		return nil, fmt.Errorf("%w: %d points, %d marks", ErrShapeMismatch, len(x), len(marks))
	}
	return &Pattern{X: x, Y: y, Marks: marks, Window: w}, nil
}

// N is the number of points.
func (p *Pattern) N() int { return len(p.X) }

// Split returns the points whose mark equals label exactly, in their
// original order. No match gives an empty pattern, not an error.
func (p *Pattern) Split(label string) *Pattern {
	sub := &Pattern{X: []float64{}, Y: []float64{}, Marks: []string{}, Window: p.Window}
	for i, m := range p.Marks {
		if m != label {
			continue
		}
		sub.X = append(sub.X, p.X[i])
		sub.Y = append(sub.Y, p.Y[i])
		sub.Marks = append(sub.Marks, m)
	}
	return sub
}

// Labels returns the distinct marks in lexicographic order.
func (p *Pattern) Labels() []string {
	seen := make(map[string]struct{})
	for _, m := range p.Marks {
		seen[m] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for m := range seen {
		labels = append(labels, m)
	}
	sort.Strings(labels)
	return labels
}

// Counts returns the number of points per mark.
func (p *Pattern) Counts() map[string]int {
	counts := make(map[string]int)
	for _, m := range p.Marks {
		counts[m]++
	}
	return counts
}

// outside returns the index of the first point not in the window, or -1.
func (p *Pattern) outside() int {
	if p.Window == nil {
		return -1
	}
	for i := range p.X {
		if !p.Window.Contains(p.X[i], p.Y[i]) {
			return i
		}
	}
	return -1
}

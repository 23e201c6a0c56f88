package macpp

import "gonum.org/v1/gonum/mat"

// sampleStore holds the retained draws, one row per recorded iteration. Its
// size is fixed before the loop starts.
type sampleStore struct {
	next    int
	lambdaC *mat.Dense
	mu0     *mat.Dense
	h       *mat.Dense
	lambdaO *mat.Dense
}

func newSampleStore(rows, parents, offspring, unrelated int) *sampleStore {
	return &sampleStore{
		lambdaC: newDense(rows, parents),
		mu0:     newDense(rows, offspring),
		h:       newDense(rows, offspring),
		lambdaO: newDense(rows, unrelated),
	}
}

// newDense returns nil for an empty shape; mat.NewDense panics on those.
func newDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

func (s *sampleStore) full() bool {
	return s.mu0 == nil || s.next >= s.mu0.RawMatrix().Rows
}

// append writes r into the next free row.
func (s *sampleStore) append(r Row) {
	if s.full() {
		return
	}
	setRow(s.lambdaC, s.next, r.LambdaC)
	setRow(s.mu0, s.next, r.Mu0)
	setRow(s.h, s.next, r.H)
	setRow(s.lambdaO, s.next, r.LambdaO)
	s.next++
}

func setRow(m *mat.Dense, i int, v []float64) {
	if m == nil {
		return
	}
	m.SetRow(i, v)
}

// retainedRows is the number of recorded iterations for a schedule.
func retainedRows(iters, burn, thin int) int {
	if thin < 1 || iters <= burn {
		return 0
	}
	return (iters - burn) / thin
}

// retained reports whether 1-based iteration i is recorded.
func retained(i, burn, thin int) bool {
	return i > burn && (i-burn)%thin == 0
}

package macpp

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Result is the thinned, burned-in posterior sample. Matrices have one row
// per retained iteration. LambdaC is nil when every parent type is also an
// offspring type, LambdaO is nil when there are no unrelated types.
type Result struct {
	RunID string

	ParentTypes    []string
	OffspringTypes []string
	UnrelatedTypes []string

	LambdaC *mat.Dense
	Mu0     *mat.Dense
	H       *mat.Dense
	LambdaO *mat.Dense

	// Acceptance is the Metropolis acceptance rate per offspring type over
	// all iterations.
	Acceptance []float64

	Iters int
	Burn  int
	Thin  int
}

// Summary holds posterior means keyed by type label.
type Summary struct {
	LambdaC map[string]float64
	Mu0     map[string]float64
	H       map[string]float64
	LambdaO map[string]float64
}

// Summary returns the column means of every sample matrix.
func (r *Result) Summary() Summary {
	return Summary{
		LambdaC: columnMeans(r.LambdaC, r.ParentTypes),
		Mu0:     columnMeans(r.Mu0, r.OffspringTypes),
		H:       columnMeans(r.H, r.OffspringTypes),
		LambdaO: columnMeans(r.LambdaO, r.UnrelatedTypes),
	}
}

func columnMeans(m *mat.Dense, labels []string) map[string]float64 {
	out := make(map[string]float64, len(labels))
	if m == nil {
		return out
	}
	for j, label := range labels {
		out[label] = stat.Mean(mat.Col(nil, j, m), nil)
	}
	return out
}

func toMatrixJSON(m *mat.Dense, labels []string) *matrixJSON {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return &matrixJSON{Columns: labels, Rows: rows}
}

func fromMatrixJSON(mj *matrixJSON) (*mat.Dense, []string, error) {
	if mj == nil || len(mj.Rows) == 0 || len(mj.Columns) == 0 {
		return nil, nil, nil
	}
	c := len(mj.Columns)
	data := make([]float64, 0, len(mj.Rows)*c)
	for i, row := range mj.Rows {
		if len(row) != c {
			return nil, nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShapeMismatch, i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(mj.Rows), c, data), mj.Columns, nil
}

func (r *Result) save() ([]byte, interface{}) {
	rj := &resultJSON{
		RunID:      r.RunID,
		Iters:      r.Iters,
		Burn:       r.Burn,
		Thin:       r.Thin,
		LambdaC:    toMatrixJSON(r.LambdaC, r.ParentTypes),
		Mu0:        toMatrixJSON(r.Mu0, r.OffspringTypes),
		H:          toMatrixJSON(r.H, r.OffspringTypes),
		LambdaO:    toMatrixJSON(r.LambdaO, r.UnrelatedTypes),
		Acceptance: r.Acceptance,
	}
	v, err := json.Marshal(rj)
	if err != nil {
		return nil, rj
	}
	return v, rj
}

// Save writes the result as JSON. saveFormat is "indent" or "notindent".
func Save(r *Result, saveFile string, saveFormat string) error {
	v, rj := r.save()
	switch saveFormat {
	case "indent":
		var err error
		v, err = json.MarshalIndent(rj, "", " ")
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
	case "notindent":
		if v == nil {
			return fmt.Errorf("save result: encode failed")
		}
	default:
		return fmt.Errorf("%w: save format %q, want indent or notindent", ErrConfiguration, saveFormat)
	}
	if err := os.WriteFile(saveFile, v, 0o644); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// LoadResult reads a file written by Save.
func LoadResult(loadFile string) (*Result, error) {
	v, err := os.ReadFile(loadFile)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	var rj resultJSON
	if err := json.Unmarshal(v, &rj); err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	r := &Result{RunID: rj.RunID, Iters: rj.Iters, Burn: rj.Burn, Thin: rj.Thin, Acceptance: rj.Acceptance}
	if r.LambdaC, r.ParentTypes, err = fromMatrixJSON(rj.LambdaC); err != nil {
		return nil, err
	}
	if r.Mu0, r.OffspringTypes, err = fromMatrixJSON(rj.Mu0); err != nil {
		return nil, err
	}
	if r.H, _, err = fromMatrixJSON(rj.H); err != nil {
		return nil, err
	}
	if r.LambdaO, r.UnrelatedTypes, err = fromMatrixJSON(rj.LambdaO); err != nil {
		return nil, err
	}
	return r, nil
}

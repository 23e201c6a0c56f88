package macpp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testResult() *Result {
	return &Result{
		RunID:          "run-1",
		ParentTypes:    []string{"A"},
		OffspringTypes: []string{"B", "C"},
		LambdaC:        mat.NewDense(3, 1, []float64{1, 2, 3}),
		Mu0:            mat.NewDense(3, 2, []float64{4, 1, 5, 2, 6, 3}),
		H:              mat.NewDense(3, 2, []float64{0.1, 0.2, 0.2, 0.3, 0.3, 0.4}),
		Acceptance:     []float64{0.25, 0.5},
		Iters:          30,
		Burn:           0,
		Thin:           10,
	}
}

func TestResultSummary(t *testing.T) {
	s := testResult().Summary()
	assert.InDelta(t, 2, s.LambdaC["A"], 1e-12)
	assert.InDelta(t, 5, s.Mu0["B"], 1e-12)
	assert.InDelta(t, 2, s.Mu0["C"], 1e-12)
	assert.InDelta(t, 0.2, s.H["B"], 1e-12)
	assert.InDelta(t, 0.3, s.H["C"], 1e-12)
	assert.Empty(t, s.LambdaO)
}

func TestSaveLoadResult(t *testing.T) {
	for _, format := range []string{"indent", "notindent"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "result.json")
			want := testResult()
			require.NoError(t, Save(want, path, format))

			got, err := LoadResult(path)
			require.NoError(t, err)
			assert.Equal(t, want.RunID, got.RunID)
			assert.Equal(t, want.ParentTypes, got.ParentTypes)
			assert.Equal(t, want.OffspringTypes, got.OffspringTypes)
			assert.Nil(t, got.UnrelatedTypes)
			assert.Nil(t, got.LambdaO)
			assert.True(t, mat.Equal(want.LambdaC, got.LambdaC))
			assert.True(t, mat.Equal(want.Mu0, got.Mu0))
			assert.True(t, mat.Equal(want.H, got.H))
			assert.Equal(t, want.Acceptance, got.Acceptance)
			assert.Equal(t, 30, got.Iters)
			assert.Equal(t, 10, got.Thin)
		})
	}
}

func TestSaveResultErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	assert.ErrorIs(t, Save(testResult(), path, "yaml"), ErrConfiguration)

	require.NoError(t, os.WriteFile(path, []byte(`{"mu0":{"columns":["B","C"],"rows":[[1]]}}`), 0o644))
	_, err := LoadResult(path)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = LoadResult(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

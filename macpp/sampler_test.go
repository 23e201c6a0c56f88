package macpp

import (
	"bytes"
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/SumanM47/MACPP/logging"
)

// clusteredPattern places four parents of type "A" on an inner square of the
// unit square and perOffspring Gaussian offspring of each label around them,
// with spread h. Unrelated "D" points are uniform.
func clusteredPattern(t *testing.T, seed uint64, h float64, offspring []string, perOffspring, unrelated int) *Pattern {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, 99))
	px := []float64{0.3, 0.7, 0.3, 0.7}
	py := []float64{0.3, 0.3, 0.7, 0.7}

	var xs, ys []float64
	var marks []string
	for k := range px {
		xs, ys, marks = append(xs, px[k]), append(ys, py[k]), append(marks, "A")
	}
	for _, label := range offspring {
		for n := 0; n < perOffspring; {
			k := rng.IntN(len(px))
			x := px[k] + h*rng.NormFloat64()
			y := py[k] + h*rng.NormFloat64()
			if x < 0 || x > 1 || y < 0 || y > 1 {
				continue
			}
			xs, ys, marks = append(xs, x), append(ys, y), append(marks, label)
			n++
		}
	}
	for n := 0; n < unrelated; n++ {
		xs, ys, marks = append(xs, rng.Float64()), append(ys, rng.Float64()), append(marks, "D")
	}
	p, err := NewPattern(xs, ys, marks, unitSquare(t))
	require.NoError(t, err)
	return p
}

func TestSamplerCornerParents(t *testing.T) {
	// Each corner keeps a quarter of its kernel mass inside the window, so
	// Bignum1 is about 1 and mu0 is about 20 rather than 20/4.
	rng := rand.New(rand.NewPCG(10, 99))
	xs := []float64{0, 1, 0, 1}
	ys := []float64{0, 0, 1, 1}
	marks := []string{"A", "A", "A", "A"}
	for n := 0; n < 20; {
		k := rng.IntN(4)
		x, y := xs[k]+0.1*rng.NormFloat64(), ys[k]+0.1*rng.NormFloat64()
		if x < 0 || x > 1 || y < 0 || y > 1 {
			continue
		}
		xs, ys, marks = append(xs, x), append(ys, y), append(marks, "B")
		n++
	}
	p, err := NewPattern(xs, ys, marks, unitSquare(t))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Parents = []string{"A"}
	cfg.Offspring = []string{"B"}
	cfg.Iters, cfg.Burn, cfg.Thin = 2000, 1000, 1
	cfg.Seed = 11
	s, err := NewSampler(p, cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	sum := res.Summary()
	assert.InDelta(t, 0.1, sum.H["B"], 0.05)
	assert.InDelta(t, 20, sum.Mu0["B"], 6)
}

func shortConfig(offspring ...string) Config {
	cfg := DefaultConfig()
	cfg.Parents = []string{"A"}
	cfg.Offspring = offspring
	cfg.Iters, cfg.Burn, cfg.Thin = 60, 10, 5
	cfg.Seed = 42
	return cfg
}

func TestSamplerRecoversParameters(t *testing.T) {
	p := clusteredPattern(t, 1, 0.1, []string{"B"}, 20, 0)
	cfg := DefaultConfig()
	cfg.Parents = []string{"A"}
	cfg.Offspring = []string{"B"}
	cfg.Iters, cfg.Burn, cfg.Thin = 3000, 1000, 2
	cfg.Seed = 7

	s, err := NewSampler(p, cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	rows, cols := res.Mu0.Dims()
	assert.Equal(t, 1000, rows)
	assert.Equal(t, 1, cols)
	sum := res.Summary()
	assert.InDelta(t, 5, sum.Mu0["B"], 0.75)
	assert.InDelta(t, 0.1, sum.H["B"], 0.05)
	assert.InDelta(t, 4, sum.LambdaC["A"], 3)
	assert.Greater(t, res.Acceptance[0], 0.05)
	assert.Less(t, res.Acceptance[0], 0.95)
	assert.Nil(t, res.LambdaO)
	assert.Empty(t, res.UnrelatedTypes)
}

func TestSamplerPartition(t *testing.T) {
	// A -> B -> C chain with D unrelated: B is both a parent and an offspring.
	p := clusteredPattern(t, 2, 0.05, []string{"B"}, 10, 6)
	rng := rand.New(rand.NewPCG(3, 3))
	for i := 0; i < 10; i++ {
		x := p.Split("B").X[i%10] + 0.02*rng.NormFloat64()
		y := p.Split("B").Y[i%10] + 0.02*rng.NormFloat64()
		if x < 0 || x > 1 || y < 0 || y > 1 {
			continue
		}
		p.X, p.Y, p.Marks = append(p.X, x), append(p.Y, y), append(p.Marks, "C")
	}
	cfg := shortConfig("B", "C")
	cfg.Parents = []string{"A", "B"}

	s, err := NewSampler(p, cfg)
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.ParentTypes)
	assert.Equal(t, []string{"B", "C"}, res.OffspringTypes)
	assert.Equal(t, []string{"D"}, res.UnrelatedTypes)
	for _, m := range []*mat.Dense{res.LambdaC, res.LambdaO} {
		r, c := m.Dims()
		assert.Equal(t, 10, r)
		assert.Equal(t, 1, c)
	}
	for _, m := range []*mat.Dense{res.Mu0, res.H} {
		r, c := m.Dims()
		assert.Equal(t, 10, r)
		assert.Equal(t, 2, c)
	}
	assert.Equal(t, 60, res.Iters)
}

func TestSamplerDeterministic(t *testing.T) {
	run := func(threads int) *Result {
		p := clusteredPattern(t, 4, 0.08, []string{"B", "C", "E"}, 8, 5)
		cfg := shortConfig("B", "C", "E")
		cfg.Threads = threads
		cfg.Jitter = 0.1
		s, err := NewSampler(p, cfg, WithRunID("fixed"))
		require.NoError(t, err)
		res, err := s.Run(context.Background())
		require.NoError(t, err)
		return res
	}
	a, b, c := run(1), run(1), run(3)
	for _, other := range []*Result{b, c} {
		assert.True(t, mat.Equal(a.H, other.H))
		assert.True(t, mat.Equal(a.Mu0, other.Mu0))
		assert.True(t, mat.Equal(a.LambdaC, other.LambdaC))
		assert.True(t, mat.Equal(a.LambdaO, other.LambdaO))
		assert.Equal(t, a.Acceptance, other.Acceptance)
	}
	assert.Equal(t, "fixed", a.RunID)
}

func TestSamplerCheckpointMatchesResult(t *testing.T) {
	for _, name := range []string{"chain.json", "chain.db"} {
		t.Run(name, func(t *testing.T) {
			p := clusteredPattern(t, 5, 0.1, []string{"B"}, 12, 4)
			cfg := shortConfig("B")
			cfg.Checkpoint = true
			cfg.CheckpointPath = filepath.Join(t.TempDir(), name)
			cfg.CheckpointEvery = 16

			reg := prometheus.NewRegistry()
			m := NewMetrics(reg)
			s, err := NewSampler(p, cfg, WithMetrics(m))
			require.NoError(t, err)
			res, err := s.Run(context.Background())
			require.NoError(t, err)

			cp, err := LoadCheckpoint(cfg.CheckpointPath)
			require.NoError(t, err)
			assert.Equal(t, s.RunID(), cp.RunID)
			assert.Equal(t, res.ParentTypes, cp.ParentTypes)
			assert.Equal(t, res.UnrelatedTypes, cp.UnrelatedTypes)
			require.Len(t, cp.Rows, cfg.Iters)
			for i, r := range cp.Rows {
				require.Equal(t, i+1, r.Iteration)
			}

			rows, _ := res.Mu0.Dims()
			for k := 0; k < rows; k++ {
				it := cfg.Burn + (k+1)*cfg.Thin
				r := cp.Rows[it-1]
				assert.Equal(t, mat.Row(nil, k, res.Mu0), r.Mu0, "iteration %d", it)
				assert.Equal(t, mat.Row(nil, k, res.H), r.H, "iteration %d", it)
				assert.Equal(t, mat.Row(nil, k, res.LambdaC), r.LambdaC, "iteration %d", it)
				assert.Equal(t, mat.Row(nil, k, res.LambdaO), r.LambdaO, "iteration %d", it)
			}

			assert.Equal(t, float64(cfg.Iters), testutil.ToFloat64(m.Iterations))
			assert.Equal(t, 4.0, testutil.ToFloat64(m.CheckpointFlushes))
			assert.Equal(t, float64(cfg.Iters), testutil.ToFloat64(m.CheckpointRows))
			proposals := testutil.ToFloat64(m.Proposals.WithLabelValues("B", outcomeAccepted)) +
				testutil.ToFloat64(m.Proposals.WithLabelValues("B", outcomeRejected)) +
				testutil.ToFloat64(m.Proposals.WithLabelValues("B", outcomeNonPositive))
			assert.Equal(t, float64(cfg.Iters), proposals)
		})
	}
}

func TestSamplerCancel(t *testing.T) {
	p := clusteredPattern(t, 6, 0.1, []string{"B"}, 10, 0)
	cfg := shortConfig("B")
	path := filepath.Join(t.TempDir(), "chain.json")
	sink, err := NewJSONSink(path, CheckpointHeader{RunID: "cancelled"})
	require.NoError(t, err)

	s, err := NewSampler(p, cfg, WithCheckpointSink(sink))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	cp, err := LoadCheckpoint(path)
	require.NoError(t, err)
	assert.Empty(t, cp.Rows)
}

func TestSamplerLogsAndProgress(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := clusteredPattern(t, 8, 0.1, []string{"B"}, 10, 0)
	var progress bytes.Buffer
	s, err := NewSampler(p, shortConfig("B"),
		WithLogger(logging.NewLoggerFromCore(core)),
		WithProgress(&progress),
		WithRunID("logged"))
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("chain initialised").Len())
	assert.Equal(t, 1, logs.FilterMessage("warmup complete").Len())
	finished := logs.FilterMessage("chain finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "logged", finished[0].ContextMap()["run_id"])
	assert.NotEmpty(t, progress.String())
}

func TestNewSamplerErrors(t *testing.T) {
	p := clusteredPattern(t, 9, 0.1, []string{"B"}, 10, 0)

	cfg := shortConfig("B", "C", "E")
	cfg.Parents = []string{"A", "B"}
	_, err := NewSampler(p, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	cfg = shortConfig("B")
	cfg.Checkpoint = true
	_, err = NewSampler(p, cfg)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewSampler(p, shortConfig("Z"))
	assert.ErrorIs(t, err, ErrInsufficientData)

	cfg = shortConfig("B")
	cfg.Parents = []string{"Q"}
	_, err = NewSampler(p, cfg)
	assert.ErrorIs(t, err, ErrInsufficientData)

	outside := &Pattern{X: append([]float64{1.5}, p.X...), Y: append([]float64{0.5}, p.Y...), Marks: append([]string{"A"}, p.Marks...), Window: p.Window}
	_, err = NewSampler(outside, shortConfig("B"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewSampler(&Pattern{X: p.X, Y: p.Y, Marks: p.Marks}, shortConfig("B"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewSampler(&Pattern{X: p.X, Y: p.Y[:3], Marks: p.Marks, Window: p.Window}, shortConfig("B"))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

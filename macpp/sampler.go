package macpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"

	"github.com/SumanM47/MACPP/logging"
)

// streamMaster is the PCG stream of the Gibbs updates. Offspring type j
// draws from stream j+1.
const streamMaster = 0

// Sampler runs the Metropolis-within-Gibbs chain for one pattern. The
// partition of the pattern is built once in NewSampler and never changes.
type Sampler struct {
	cfg    Config
	window *Window
	runID  string

	parentTypes    []string
	parentCounts   []int
	unrelatedTypes []string
	unrelatedCount []int
	chains         []*offspringChain

	lambdaC []float64
	lambdaO []float64
	hsd     float64
	rng     *rand.Rand

	logger   logging.Logger
	metrics  *Metrics
	sink     CheckpointSink
	progress io.Writer
}

// Option customises a Sampler.
type Option func(*Sampler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// WithMetrics records chain progress into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Sampler) { s.metrics = m }
}

// WithCheckpointSink checkpoints every iteration into sink, regardless of
// Config.Checkpoint. Run closes the sink.
func WithCheckpointSink(sink CheckpointSink) Option {
	return func(s *Sampler) { s.sink = sink }
}

// WithProgress draws a progress bar on w while Run iterates.
func WithProgress(w io.Writer) Option {
	return func(s *Sampler) { s.progress = w }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(s *Sampler) { s.runID = id }
}

// NewSampler partitions the pattern, computes initial bandwidths and cached
// statistics, and returns a sampler ready to Run.
func NewSampler(p *Pattern, cfg Config, opts ...Option) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil || p.Window == nil {
		return nil, fmt.Errorf("%w: pattern has no window", ErrConfiguration)
	}
	if len(p.X) != len(p.Y) || len(p.Marks) != len(p.X) {
		return nil, fmt.Errorf("%w: %d x, %d y, %d marks", ErrShapeMismatch, len(p.X), len(p.Y), len(p.Marks))
	}
	if i := p.outside(); i >= 0 {
		return nil, fmt.Errorf("%w: point %d (%v, %v) lies outside the window", ErrConfiguration, i, p.X[i], p.Y[i])
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}

	s := &Sampler{
		cfg:    cfg,
		window: p.Window,
		runID:  uuid.NewString(),
		hsd:    halfNormalScale(cfg.HClimp, p.Window.Diagonal()),
		rng:    rand.New(rand.NewPCG(cfg.Seed, streamMaster)),
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.String("run_id", s.runID))

	counts := p.Counts()
	offspringSet := make(map[string]bool, len(cfg.Offspring))
	for _, o := range cfg.Offspring {
		offspringSet[o] = true
	}
	used := make(map[string]bool)
	for _, par := range cfg.Parents {
		used[par] = true
		if offspringSet[par] || containsString(s.parentTypes, par) {
			continue
		}
		s.parentTypes = append(s.parentTypes, par)
		s.parentCounts = append(s.parentCounts, counts[par])
		s.lambdaC = append(s.lambdaC, float64(counts[par])/p.Window.Area())
	}
	for _, label := range p.Labels() {
		if used[label] || offspringSet[label] {
			continue
		}
		s.unrelatedTypes = append(s.unrelatedTypes, label)
		s.unrelatedCount = append(s.unrelatedCount, counts[label])
		s.lambdaO = append(s.lambdaO, float64(counts[label])/p.Window.Area())
	}

	for j, label := range cfg.Offspring {
		c := &offspringChain{
			label:       label,
			parentLabel: cfg.parentOf(j),
			offspring:   p.Split(label),
			parents:     p.Split(cfg.parentOf(j)),
			rng:         rand.New(rand.NewPCG(cfg.Seed, uint64(j+1))),
		}
		h, err := InitialBandwidth(c.offspring, c.parents)
		if err != nil {
			return nil, fmt.Errorf("offspring %q of parent %q: %w", label, c.parentLabel, err)
		}
		c.h = JitterBandwidth(h, cfg.Jitter, c.rng)
		c.step = cfg.ProposalSD
		if c.step == 0 {
			c.step = cfg.ProposalScale * h
		}
		c.mu0 = float64(c.offspring.N()) / float64(c.parents.N())
		if err := c.init(p.Window, cfg.MonteCarlo); err != nil {
			return nil, err
		}
		s.chains = append(s.chains, c)
	}

	s.logger.Info("chain initialised",
		logging.Strings("parent_types", s.parentTypes),
		logging.Strings("offspring_types", cfg.Offspring),
		logging.Strings("unrelated_types", s.unrelatedTypes),
		logging.Floats("h", s.bandwidths()),
		logging.Float64("hsd", s.hsd),
		logging.Float64("window_area", p.Window.Area()),
	)
	return s, nil
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// RunID identifies this chain in logs, checkpoints and results.
func (s *Sampler) RunID() string { return s.runID }

func (s *Sampler) bandwidths() []float64 {
	h := make([]float64, len(s.chains))
	for j, c := range s.chains {
		h[j] = c.h
	}
	return h
}

func (s *Sampler) header() CheckpointHeader {
	return CheckpointHeader{
		RunID:          s.runID,
		ParentTypes:    s.parentTypes,
		OffspringTypes: s.cfg.Offspring,
		UnrelatedTypes: s.unrelatedTypes,
	}
}

// Run iterates the chain and returns the retained draws. Cancellation is
// checked between iterations; buffered checkpoint rows are flushed first.
// A numerical failure aborts the chain without a final flush.
func (s *Sampler) Run(ctx context.Context) (*Result, error) {
	cfg := s.cfg
	sink := s.sink
	if sink == nil && cfg.Checkpoint {
		var err error
		if sink, err = OpenCheckpointSink(cfg.CheckpointPath, s.header()); err != nil {
			return nil, err
		}
	}
	var buf *checkpointBuffer
	if sink != nil {
		defer func() { _ = sink.Close() }()
		buf = newCheckpointBuffer(cfg.CheckpointEvery)
	}

	var bar *pb.ProgressBar
	if s.progress != nil {
		bar = pb.New(cfg.Iters)
		bar.SetWriter(s.progress)
		bar.Start()
		defer bar.Finish()
	}

	store := newSampleStore(retainedRows(cfg.Iters, cfg.Burn, cfg.Thin), len(s.parentTypes), len(s.chains), len(s.unrelatedTypes))
	start := time.Now()
	for i := 1; i <= cfg.Iters; i++ {
		if err := ctx.Err(); err != nil {
			if buf != nil {
				if ferr := s.flush(context.WithoutCancel(ctx), buf, sink); ferr != nil {
					err = errors.Join(err, ferr)
				}
			}
			return nil, fmt.Errorf("chain stopped at iteration %d: %w", i, err)
		}
		if err := s.iterate(); err != nil {
			s.logger.Error("chain aborted", logging.Int("iteration", i), logging.Err(err))
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		row := s.row(i)
		if retained(i, cfg.Burn, cfg.Thin) {
			store.append(row)
		}
		if buf != nil {
			if full := buf.append(row); full || i == cfg.Iters {
				if err := s.flush(context.WithoutCancel(ctx), buf, sink); err != nil {
					return nil, fmt.Errorf("iteration %d: checkpoint: %w", i, err)
				}
			}
		}

		if s.metrics != nil {
			s.metrics.Iterations.Inc()
		}
		if bar != nil {
			bar.Increment()
		}
		if i == cfg.Burn {
			s.logger.Info("warmup complete", logging.Int("iteration", i), logging.Floats("h", s.bandwidths()))
		}
	}

	res := &Result{
		RunID:          s.runID,
		ParentTypes:    s.parentTypes,
		OffspringTypes: append([]string(nil), cfg.Offspring...),
		UnrelatedTypes: s.unrelatedTypes,
		LambdaC:        store.lambdaC,
		Mu0:            store.mu0,
		H:              store.h,
		LambdaO:        store.lambdaO,
		Acceptance:     make([]float64, len(s.chains)),
		Iters:          cfg.Iters,
		Burn:           cfg.Burn,
		Thin:           cfg.Thin,
	}
	for j, c := range s.chains {
		res.Acceptance[j] = c.acceptance()
	}
	s.logger.Info("chain finished",
		logging.Int("retained", store.next),
		logging.Floats("acceptance", res.Acceptance),
		logging.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// iterate performs one full sweep, in the fixed order: unrelated
// intensities, parent intensities, offspring intensities, bandwidths.
func (s *Sampler) iterate() error {
	area := s.window.Area()
	hp := s.cfg.Hyper
	for k, n := range s.unrelatedCount {
		s.lambdaO[k] = conjugateGamma(hp.AO, hp.BO, n, area, s.rng)
	}
	for p, n := range s.parentCounts {
		s.lambdaC[p] = conjugateGamma(hp.AL, hp.BL, n, area, s.rng)
	}
	for _, c := range s.chains {
		c.mu0 = conjugateGamma(hp.AM, hp.BM, c.offspring.N(), c.bignum1, s.rng)
	}
	if err := forEachChain(s.chains, s.cfg.Threads, func(c *offspringChain) error {
		return c.updateBandwidth(s.window, s.cfg.MonteCarlo, s.hsd)
	}); err != nil {
		return err
	}
	if s.metrics != nil {
		for _, c := range s.chains {
			s.metrics.Proposals.WithLabelValues(c.label, c.lastOutcome).Inc()
			s.metrics.Bandwidth.WithLabelValues(c.label).Set(c.h)
		}
	}
	return nil
}

// row snapshots the current state. The slices are fresh copies.
func (s *Sampler) row(i int) Row {
	r := Row{
		Iteration: i,
		LambdaC:   append([]float64(nil), s.lambdaC...),
		LambdaO:   append([]float64(nil), s.lambdaO...),
		Mu0:       make([]float64, len(s.chains)),
		H:         make([]float64, len(s.chains)),
	}
	for j, c := range s.chains {
		r.Mu0[j] = c.mu0
		r.H[j] = c.h
	}
	return r
}

func (s *Sampler) flush(ctx context.Context, buf *checkpointBuffer, sink CheckpointSink) error {
	n, err := buf.flush(ctx, sink)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	s.logger.Debug("checkpoint flushed", logging.Int("rows", n))
	if s.metrics != nil {
		s.metrics.CheckpointFlushes.Inc()
		s.metrics.CheckpointRows.Add(float64(n))
	}
	return nil
}

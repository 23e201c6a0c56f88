package macpp

import (
	"fmt"
	"math"
)

// Hyperparameters are the shape/rate pairs of the Gamma priors on the
// parent (AL, BL), unrelated (AO, BO) and offspring (AM, BM) intensities.
type Hyperparameters struct {
	AL, BL float64
	AO, BO float64
	AM, BM float64
}

// Config is the model and schedule of one chain.
type Config struct {
	// Parents has one label shared by all offspring types, or one label per
	// offspring type.
	Parents   []string
	Offspring []string

	Hyper Hyperparameters
	// HClimp scales the half-normal bandwidth prior: its 99th percentile is
	// HClimp times the window diagonal.
	HClimp float64
	// MonteCarlo is B, the draws per parent point in the integral estimate.
	MonteCarlo int

	Iters int
	Burn  int
	Thin  int

	// ProposalSD is the random walk step for h. When zero the step for type
	// j is ProposalScale times its initial bandwidth.
	ProposalSD    float64
	ProposalScale float64
	// Jitter perturbs each initial bandwidth by a factor in 1±Jitter.
	Jitter float64

	Seed    uint64
	Threads int

	Checkpoint      bool
	CheckpointPath  string
	CheckpointEvery int
}

// DefaultConfig returns a configuration with every numeric knob set.
// Parents and Offspring must still be filled in.
func DefaultConfig() Config {
	return Config{
		Hyper:           Hyperparameters{AL: 0.01, BL: 0.01, AO: 0.01, BO: 0.01, AM: 0.01, BM: 0.01},
		HClimp:          0.5,
		MonteCarlo:      100,
		Iters:           20000,
		Burn:            10000,
		Thin:            10,
		ProposalScale:   0.25,
		Threads:         1,
		CheckpointEvery: DefaultCheckpointCapacity,
	}
}

// Validate checks everything that can be checked without the data.
func (c Config) Validate() error {
	if len(c.Offspring) == 0 {
		return fmt.Errorf("%w: no offspring types", ErrConfiguration)
	}
	if len(c.Parents) != 1 && len(c.Parents) != len(c.Offspring) {
		return fmt.Errorf("%w: %d parent types for %d offspring types, want 1 or %d",
			ErrConfiguration, len(c.Parents), len(c.Offspring), len(c.Offspring))
	}
	seen := make(map[string]bool, len(c.Offspring))
	for j, o := range c.Offspring {
		if seen[o] {
			return fmt.Errorf("%w: offspring type %q listed twice", ErrConfiguration, o)
		}
		seen[o] = true
		if c.parentOf(j) == o {
			return fmt.Errorf("%w: type %q is its own parent", ErrConfiguration, o)
		}
	}
	h := c.Hyper
	for name, v := range map[string]float64{"al": h.AL, "bl": h.BL, "ao": h.AO, "bo": h.BO, "am": h.AM, "bm": h.BM} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: hyperparameter %s must be positive, got %v", ErrConfiguration, name, v)
		}
	}
	if !(c.HClimp > 0) {
		return fmt.Errorf("%w: hclimp must be positive, got %v", ErrConfiguration, c.HClimp)
	}
	if c.MonteCarlo < 1 {
		return fmt.Errorf("%w: Monte Carlo size must be at least 1, got %d", ErrConfiguration, c.MonteCarlo)
	}
	if c.Thin < 1 || c.Burn < 0 {
		return fmt.Errorf("%w: burn %d, thin %d", ErrConfiguration, c.Burn, c.Thin)
	}
	if retainedRows(c.Iters, c.Burn, c.Thin) < 1 {
		return fmt.Errorf("%w: iters %d, burn %d, thin %d retain no samples", ErrConfiguration, c.Iters, c.Burn, c.Thin)
	}
	if c.ProposalSD < 0 || (c.ProposalSD == 0 && !(c.ProposalScale > 0)) {
		return fmt.Errorf("%w: need a positive proposal_sd or proposal_scale", ErrConfiguration)
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		return fmt.Errorf("%w: jitter must be in [0, 1), got %v", ErrConfiguration, c.Jitter)
	}
	if c.Checkpoint && c.CheckpointPath == "" {
		return fmt.Errorf("%w: checkpointing requested without a destination", ErrConfiguration)
	}
	return nil
}

func (c Config) parentOf(j int) string {
	if len(c.Parents) == 1 {
		return c.Parents[0]
	}
	return c.Parents[j]
}

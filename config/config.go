// Package config loads the settings of a sampler run from a YAML file and
// MACPP_* environment variables.
package config

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/SumanM47/MACPP/logging"
	"github.com/SumanM47/MACPP/macpp"
)

// Window modes.
const (
	WindowAsIs       = "asis"
	WindowConvexHull = "convexhull"
)

// Config is the root configuration of one run.
type Config struct {
	Input      InputConfig       `mapstructure:"input"`
	Window     WindowConfig      `mapstructure:"window"`
	Model      ModelConfig       `mapstructure:"model"`
	Chain      ChainConfig       `mapstructure:"chain"`
	Checkpoint CheckpointConfig  `mapstructure:"checkpoint"`
	Output     OutputConfig      `mapstructure:"output"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Log        logging.LogConfig `mapstructure:"log"`
}

// InputConfig locates the marked point CSV.
type InputConfig struct {
	Path       string `mapstructure:"path"`
	XColumn    string `mapstructure:"x_column"`
	YColumn    string `mapstructure:"y_column"`
	MarkColumn string `mapstructure:"mark_column"`
}

// WindowConfig describes the observation window. In asis mode either
// Polygon (a list of [x, y] vertices) or XRange and YRange must be set.
type WindowConfig struct {
	Mode    string      `mapstructure:"mode"` // "asis" | "convexhull"
	XRange  []float64   `mapstructure:"xrange"`
	YRange  []float64   `mapstructure:"yrange"`
	Polygon [][]float64 `mapstructure:"polygon"`
}

// ModelConfig holds the type structure and priors.
type ModelConfig struct {
	Parents       []string `mapstructure:"parents"`
	Offspring     []string `mapstructure:"offspring"`
	AL            float64  `mapstructure:"al"`
	BL            float64  `mapstructure:"bl"`
	AO            float64  `mapstructure:"ao"`
	BO            float64  `mapstructure:"bo"`
	AM            float64  `mapstructure:"am"`
	BM            float64  `mapstructure:"bm"`
	HClimp        float64  `mapstructure:"hclimp"`
	MonteCarlo    int      `mapstructure:"monte_carlo"`
	ProposalSD    float64  `mapstructure:"proposal_sd"`
	ProposalScale float64  `mapstructure:"proposal_scale"`
	Jitter        float64  `mapstructure:"jitter"`
}

// ChainConfig is the MCMC schedule.
type ChainConfig struct {
	Iters   int    `mapstructure:"iters"`
	Burn    int    `mapstructure:"burn"`
	Thin    int    `mapstructure:"thin"`
	Seed    uint64 `mapstructure:"seed"`
	Threads int    `mapstructure:"threads"`
}

// CheckpointConfig controls per-iteration persistence. A path ending in .db,
// .sqlite or .sqlite3 selects the SQLite backend.
type CheckpointConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Every   int    `mapstructure:"every"`
}

// OutputConfig is where the retained samples go.
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // "indent" | "notindent"
}

// MetricsConfig enables a Prometheus textfile written when the run ends.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Validate checks the settings the sampler itself does not know about, then
// the sampler configuration. Errors wrap macpp.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Input.Path == "" {
		return fmt.Errorf("%w: input.path is required", macpp.ErrConfiguration)
	}
	switch c.Window.Mode {
	case WindowConvexHull:
	case WindowAsIs:
		if len(c.Window.Polygon) == 0 && (len(c.Window.XRange) != 2 || len(c.Window.YRange) != 2) {
			return fmt.Errorf("%w: window.mode asis needs window.polygon or two-element window.xrange and window.yrange", macpp.ErrConfiguration)
		}
		for i, v := range c.Window.Polygon {
			if len(v) != 2 {
				return fmt.Errorf("%w: window.polygon vertex %d has %d coordinates", macpp.ErrConfiguration, i, len(v))
			}
		}
	default:
		return fmt.Errorf("%w: window.mode %q, want %s or %s", macpp.ErrConfiguration, c.Window.Mode, WindowAsIs, WindowConvexHull)
	}
	if c.Output.Format != "indent" && c.Output.Format != "notindent" {
		return fmt.Errorf("%w: output.format %q, want indent or notindent", macpp.ErrConfiguration, c.Output.Format)
	}
	return c.Sampler().Validate()
}

// Sampler converts the model, chain and checkpoint sections.
func (c *Config) Sampler() macpp.Config {
	m := c.Model
	return macpp.Config{
		Parents:         m.Parents,
		Offspring:       m.Offspring,
		Hyper:           macpp.Hyperparameters{AL: m.AL, BL: m.BL, AO: m.AO, BO: m.BO, AM: m.AM, BM: m.BM},
		HClimp:          m.HClimp,
		MonteCarlo:      m.MonteCarlo,
		Iters:           c.Chain.Iters,
		Burn:            c.Chain.Burn,
		Thin:            c.Chain.Thin,
		ProposalSD:      m.ProposalSD,
		ProposalScale:   m.ProposalScale,
		Jitter:          m.Jitter,
		Seed:            c.Chain.Seed,
		Threads:         c.Chain.Threads,
		Checkpoint:      c.Checkpoint.Enabled,
		CheckpointPath:  c.Checkpoint.Path,
		CheckpointEvery: c.Checkpoint.Every,
	}
}

// Columns returns the CSV header names.
func (c *Config) Columns() macpp.Columns {
	return macpp.Columns{X: c.Input.XColumn, Y: c.Input.YColumn, Mark: c.Input.MarkColumn}
}

// BuildWindow returns the observation window for points xs, ys. The points
// are only used in convexhull mode.
func (c *Config) BuildWindow(xs, ys []float64) (*macpp.Window, error) {
	w := c.Window
	switch {
	case w.Mode == WindowConvexHull:
		return macpp.ConvexHullWindow(xs, ys)
	case len(w.Polygon) > 0:
		vs := make([]orb.Point, len(w.Polygon))
		for i, v := range w.Polygon {
			if len(v) != 2 {
				return nil, fmt.Errorf("%w: polygon vertex %d", macpp.ErrConfiguration, i)
			}
			vs[i] = orb.Point{v[0], v[1]}
		}
		return macpp.NewPolygonWindow(vs)
	case len(w.XRange) == 2 && len(w.YRange) == 2:
		return macpp.NewRectWindow([2]float64{w.XRange[0], w.XRange[1]}, [2]float64{w.YRange[0], w.YRange[1]})
	}
	return nil, fmt.Errorf("%w: window is not set", macpp.ErrConfiguration)
}

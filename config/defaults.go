package config

import (
	"github.com/spf13/viper"

	"github.com/SumanM47/MACPP/macpp"
)

const (
	DefaultHyperparameter = 0.01
	DefaultHClimp         = 0.5
	DefaultMonteCarlo     = 100
	DefaultProposalScale  = 0.25

	DefaultIters   = 20000
	DefaultBurn    = 10000
	DefaultThin    = 10
	DefaultThreads = 1

	DefaultCheckpointEvery = macpp.DefaultCheckpointCapacity

	DefaultWindowMode   = WindowAsIs
	DefaultOutputPath   = "macpp_result.json"
	DefaultOutputFormat = "indent"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills zero-value fields in cfg. Burn, jitter, seed and
// proposal_sd are left alone because zero is a meaningful value for each;
// file and environment loading default them through viper instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	in := &cfg.Input
	if in.XColumn == "" {
		in.XColumn = macpp.DefaultColumns.X
	}
	if in.YColumn == "" {
		in.YColumn = macpp.DefaultColumns.Y
	}
	if in.MarkColumn == "" {
		in.MarkColumn = macpp.DefaultColumns.Mark
	}
	if cfg.Window.Mode == "" {
		cfg.Window.Mode = DefaultWindowMode
	}

	m := &cfg.Model
	for _, v := range []*float64{&m.AL, &m.BL, &m.AO, &m.BO, &m.AM, &m.BM} {
		if *v == 0 {
			*v = DefaultHyperparameter
		}
	}
	if m.HClimp == 0 {
		m.HClimp = DefaultHClimp
	}
	if m.MonteCarlo == 0 {
		m.MonteCarlo = DefaultMonteCarlo
	}
	if m.ProposalScale == 0 {
		m.ProposalScale = DefaultProposalScale
	}

	if cfg.Chain.Iters == 0 {
		cfg.Chain.Iters = DefaultIters
	}
	if cfg.Chain.Thin == 0 {
		cfg.Chain.Thin = DefaultThin
	}
	if cfg.Chain.Threads == 0 {
		cfg.Chain.Threads = DefaultThreads
	}
	if cfg.Checkpoint.Every == 0 {
		cfg.Checkpoint.Every = DefaultCheckpointEvery
	}

	if cfg.Output.Path == "" {
		cfg.Output.Path = DefaultOutputPath
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// setDefaults registers every key with viper. Unmarshal only consults the
// environment for keys viper knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "")
	v.SetDefault("input.x_column", macpp.DefaultColumns.X)
	v.SetDefault("input.y_column", macpp.DefaultColumns.Y)
	v.SetDefault("input.mark_column", macpp.DefaultColumns.Mark)

	v.SetDefault("window.mode", DefaultWindowMode)
	v.SetDefault("window.xrange", []float64{})
	v.SetDefault("window.yrange", []float64{})
	v.SetDefault("window.polygon", [][]float64{})

	v.SetDefault("model.parents", []string{})
	v.SetDefault("model.offspring", []string{})
	for _, k := range []string{"al", "bl", "ao", "bo", "am", "bm"} {
		v.SetDefault("model."+k, DefaultHyperparameter)
	}
	v.SetDefault("model.hclimp", DefaultHClimp)
	v.SetDefault("model.monte_carlo", DefaultMonteCarlo)
	v.SetDefault("model.proposal_sd", 0.0)
	v.SetDefault("model.proposal_scale", DefaultProposalScale)
	v.SetDefault("model.jitter", 0.0)

	v.SetDefault("chain.iters", DefaultIters)
	v.SetDefault("chain.burn", DefaultBurn)
	v.SetDefault("chain.thin", DefaultThin)
	v.SetDefault("chain.seed", 0)
	v.SetDefault("chain.threads", DefaultThreads)

	v.SetDefault("checkpoint.enabled", false)
	v.SetDefault("checkpoint.path", "")
	v.SetDefault("checkpoint.every", DefaultCheckpointEvery)

	v.SetDefault("output.path", DefaultOutputPath)
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{})
}

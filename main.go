package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/SumanM47/MACPP/config"
	"github.com/SumanM47/MACPP/logging"
	"github.com/SumanM47/MACPP/macpp"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

type fitOptions struct {
	output   string
	threads  int
	seed     int64
	progress bool
}

func main() {
	_ = godotenv.Load(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "macpp:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "macpp",
		Short:         "Bayesian fitting of multitype aggregated clustered point patterns",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (default: MACPP_* environment only)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides log.level")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format (json, console); overrides log.format")

	cmd.AddCommand(newFitCmd(opts), newCheckpointCmd())
	return cmd
}

func newFitCmd(root *rootOptions) *cobra.Command {
	opts := &fitOptions{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Run the sampler on a marked point pattern",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Path = opts.output
			}
			if cmd.Flags().Changed("threads") {
				cfg.Chain.Threads = opts.threads
			}
			if cmd.Flags().Changed("seed") {
				cfg.Chain.Seed = uint64(opts.seed)
			}
			logger, err := logging.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			logging.SetDefault(logger)

			var progress io.Writer
			if opts.progress {
				progress = cmd.ErrOrStderr()
			}
			return runFit(cmd.Context(), cfg, logger, progress)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "result file; overrides output.path")
	f.IntVar(&opts.threads, "threads", 1, "goroutines for bandwidth updates; overrides chain.threads")
	f.Int64Var(&opts.seed, "seed", 0, "random seed; overrides chain.seed")
	f.BoolVar(&opts.progress, "progress", true, "draw a progress bar on stderr")
	return cmd
}

func loadConfig(root *rootOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if root.configPath == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(root.configPath)
	}
	if err != nil {
		return nil, err
	}
	if root.logLevel != "" {
		cfg.Log.Level = root.logLevel
	}
	if root.logFormat != "" {
		cfg.Log.Format = root.logFormat
	}
	return cfg, nil
}

// runFit loads the pattern, runs one chain and writes the result and, when
// configured, the metrics textfile.
func runFit(ctx context.Context, cfg *config.Config, logger logging.Logger, progress io.Writer) error {
	dc, err := macpp.NewDataContainer(cfg.Input.Path, cfg.Columns())
	if err != nil {
		return err
	}
	w, err := cfg.BuildWindow(dc.X, dc.Y)
	if err != nil {
		return err
	}
	p, err := dc.Pattern(w)
	if err != nil {
		return err
	}
	logger.Info("pattern loaded",
		logging.String("path", cfg.Input.Path),
		logging.Int("points", dc.Size),
		logging.Strings("types", p.Labels()),
		logging.Float64("window_area", w.Area()),
	)

	reg := prometheus.NewRegistry()
	opts := []macpp.Option{macpp.WithLogger(logger), macpp.WithMetrics(macpp.NewMetrics(reg))}
	if progress != nil {
		opts = append(opts, macpp.WithProgress(progress))
	}
	s, err := macpp.NewSampler(p, cfg.Sampler(), opts...)
	if err != nil {
		return err
	}
	res, runErr := s.Run(ctx)
	if cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Metrics.Textfile, reg); err != nil {
			logger.Warn("metrics textfile not written", logging.String("path", cfg.Metrics.Textfile), logging.Err(err))
		}
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) && cfg.Checkpoint.Enabled {
			logger.Warn("run interrupted", logging.String("checkpoint", cfg.Checkpoint.Path))
		}
		return runErr
	}
	if err := macpp.Save(res, cfg.Output.Path, cfg.Output.Format); err != nil {
		return err
	}
	logger.Info("result saved", logging.String("path", cfg.Output.Path), logging.String("run_id", res.RunID))
	return nil
}

func newCheckpointCmd() *cobra.Command {
	var skip int
	cmd := &cobra.Command{
		Use:   "checkpoint <path>",
		Short: "Summarise a checkpoint written by fit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cp, err := macpp.LoadCheckpoint(args[0])
			if err != nil {
				return err
			}
			return printCheckpoint(cmd.OutOrStdout(), cp, skip)
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "leading iterations excluded from the means")
	return cmd
}

// printCheckpoint writes the run header and the mean of every parameter over
// the rows after the first skip iterations.
func printCheckpoint(out io.Writer, cp *macpp.Checkpoint, skip int) error {
	rows := cp.Rows
	if skip > 0 {
		if skip >= len(rows) {
			rows = nil
		} else {
			rows = rows[skip:]
		}
	}
	fmt.Fprintf(out, "run %s: %d rows", cp.RunID, len(cp.Rows))
	if n := len(cp.Rows); n > 0 {
		fmt.Fprintf(out, ", last iteration %d", cp.Rows[n-1].Iteration)
	}
	fmt.Fprintln(out)
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "parameter\ttype\tmean")
	column := func(pick func(macpp.Row) []float64, j int) []float64 {
		v := make([]float64, 0, len(rows))
		for _, r := range rows {
			if vals := pick(r); j < len(vals) {
				v = append(v, vals[j])
			}
		}
		return v
	}
	block := func(name string, labels []string, pick func(macpp.Row) []float64) {
		for j, label := range labels {
			fmt.Fprintf(tw, "%s\t%s\t%.6g\n", name, label, stat.Mean(column(pick, j), nil))
		}
	}
	block("lambda_c", cp.ParentTypes, func(r macpp.Row) []float64 { return r.LambdaC })
	block("mu0", cp.OffspringTypes, func(r macpp.Row) []float64 { return r.Mu0 })
	block("h", cp.OffspringTypes, func(r macpp.Row) []float64 { return r.H })
	block("lambda_o", cp.UnrelatedTypes, func(r macpp.Row) []float64 { return r.LambdaO })
	return tw.Flush()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/arnavshah/roster-solver/pkg/config"
	"github.com/arnavshah/roster-solver/pkg/logging"
	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/arnavshah/roster-solver/pkg/service"
	"github.com/arnavshah/roster-solver/pkg/solver"
	"github.com/arnavshah/roster-solver/pkg/tableio"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=..."
var Version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
}

// BuildCLI returns the rosterctl root command
func BuildCLI() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Build per-day staff schedules from availability and capability sheets",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default "+config.DefaultPath+" when present)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level, overrides the config")

	root.AddCommand(buildSolveCommand(g), buildValidateCommand(g), buildBackendsCommand())
	return root
}

// setup loads the configuration and builds the logger for a command
func (g *globalFlags) setup() (*config.Config, *zap.Logger, error) {
	config.LoadEnvFiles()
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

type solveFlags struct {
	input     string
	out       string
	format    string
	trials    int
	objective string
	seed      int64
	workers   int
	backend   string
	days      []string
	verbose   bool
}

func buildSolveCommand(g *globalFlags) *cobra.Command {
	f := &solveFlags{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve every day of a dataset and write the schedule",
		Example: "  rosterctl solve -i ./data\n" +
			"  rosterctl solve -i roster.yaml --trials 5 --seed 42 -o schedule.csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd, g, f)
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "dataset directory of CSV sheets, or a .json/.yaml file")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&f.format, "format", "csv", "output format: csv or json")
	cmd.Flags().IntVarP(&f.trials, "trials", "t", 0, "schedules per day (default from config)")
	cmd.Flags().StringVar(&f.objective, "objective", "", "objective form: penalty or weighted")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "seed for reproducible tie-breaking")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "days solved in parallel (default GOMAXPROCS)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "solver backend ("+strings.Join(solver.Backends(), ", ")+")")
	cmd.Flags().StringSliceVar(&f.days, "days", nil, "only solve these days")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "solver tracing")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runSolve(cmd *cobra.Command, g *globalFlags, f *solveFlags) error {
	if f.format != "csv" && f.format != "json" {
		return fmt.Errorf("unknown format %q", f.format)
	}
	cfg, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if f.backend != "" {
		cfg.Solver.Backend = f.backend
	}
	if f.verbose {
		cfg.Solver.Verbose = true
	}

	ds, err := tableio.LoadFile(f.input)
	if err != nil {
		return err
	}

	req := service.Request{
		Source:    "cli",
		Trials:    f.trials,
		Objective: f.objective,
		Days:      f.days,
		Workers:   f.workers,
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &f.seed
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := service.New(cfg.Solver, cfg.Policy, service.WithLogger(logger)).Run(ctx, ds, req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	if err := writeOutcome(w, f.format, out, ds); err != nil {
		return err
	}

	for _, fail := range out.Failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s trial %d unassigned: %s\n", fail.Day, fail.Trial, fail.Reason)
	}
	logger.Info("schedule written",
		zap.Int("entries", len(out.Schedule)),
		zap.Int("failures", len(out.Failures)),
		zap.Duration("took", out.Took),
	)
	return nil
}

func writeOutcome(w io.Writer, format string, out *service.Outcome, ds *models.Dataset) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models.ScheduleResponse{Schedule: out.Schedule, Failures: out.Failures})
	}
	return tableio.WriteSchedule(w, out.Schedule, out.Roster.Roles(), ds.Weights)
}

func buildValidateCommand(g *globalFlags) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a dataset without solving it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ds, err := tableio.LoadFile(input)
			if err != nil {
				return err
			}
			r, err := service.New(cfg.Solver, cfg.Policy, service.WithLogger(logger)).Validate(ds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d employees, %d roles, %d days\n",
				len(r.Employees()), len(r.Roles()), len(r.Days()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "dataset directory of CSV sheets, or a .json/.yaml file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func buildBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the solver backends compiled into this binary",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range solver.Backends() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pqv2x/falconsweep/internal/config"
	"github.com/pqv2x/falconsweep/internal/harness"
	"github.com/pqv2x/falconsweep/internal/history"
	"github.com/pqv2x/falconsweep/internal/sweep"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	Binary        string
	Config        string
	Runs          int
	Scheme        string
	FragmentSizes []int
	Compressions  []string
	Vehicles      int
	Messages      int
	PacketLoss    float64
	MetricsFile   string
	LogDir        string
	Note          string
	SleepMS       int
	BasePort      int
	Mode          string
	DryRun        bool
	KeepTemp      bool
	SweepFile     string
	HistoryDB     string

	// NewSupervisor allows substituting the subprocess supervisor (for
	// testing). Nil means the real one.
	NewSupervisor harness.SupervisorFactory
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a benchmark sweep",
		Long: `Execute paired receiver/transmitter iterations of the falcon_sim binary
for every combination of the requested sweep dimensions, then summarize
the latency metrics captured per combination.

Example:
  falconsweep run --binary build/falcon-sim/falcon_sim --runs 10
  falconsweep run --scheme falcon --fragment-sizes 256,512,1024 --compression zlib
  falconsweep run --sweep-file sweeps/fragmentation.yaml --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Binary, "binary", "build/falcon-sim/falcon_sim", "path to the falcon_sim executable")
	flags.StringVar(&opts.Config, "config", "falcon-sim/config.json", "path to the base configuration document")
	flags.IntVar(&opts.Runs, "runs", 10, "iterations per combination")
	flags.StringVar(&opts.Scheme, "scheme", "falcon", "signature scheme (ecdsa|falcon)")
	flags.IntSliceVar(&opts.FragmentSizes, "fragment-sizes", nil, "Falcon fragment sizes to sweep")
	flags.StringSliceVar(&opts.Compressions, "compression", nil, "compression hints to sweep")
	flags.IntVar(&opts.Vehicles, "vehicles", 0, "override the scenario vehicle count")
	flags.IntVar(&opts.Messages, "messages", 0, "override the scenario message count")
	flags.Float64Var(&opts.PacketLoss, "packet-loss", 0, "simulated fragment loss rate (0.0-1.0)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "falcon_metrics.csv", "shared metrics CSV path")
	flags.StringVar(&opts.LogDir, "log-dir", "", "directory for per-run process logs")
	flags.StringVar(&opts.Note, "note", "", "free-form note stored with each metrics entry")
	flags.IntVar(&opts.SleepMS, "sleep-ms", 200, "receiver settle delay in milliseconds")
	flags.IntVar(&opts.BasePort, "base-port", 0, "override the test UDP port")
	flags.StringVar(&opts.Mode, "mode", "dsrc", "link technology (dsrc|cv2x)")
	flags.BoolVar(&opts.DryRun, "dry-run", false, "print the expanded plan without running anything")
	flags.BoolVar(&opts.KeepTemp, "keep-temp-config", false, "keep materialized configuration artifacts")
	flags.StringVar(&opts.SweepFile, "sweep-file", "", "YAML sweep definition (flags override file values)")
	flags.StringVar(&opts.HistoryDB, "history-db", "", "SQLite file to archive per-combination summaries")

	return cmd
}

func runSweep(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if opts.SweepFile != "" {
		file, err := sweep.LoadFile(opts.SweepFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load sweep file", err)
		}
		applySweepFile(opts, file, cmd)
		if file.Name != "" {
			logger.Info("loaded sweep definition", "name", file.Name, "path", opts.SweepFile)
		}
	}

	if err := validateRunOptions(opts); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}
	if opts.Scheme == "ecdsa" && len(opts.FragmentSizes) > 0 {
		logger.Warn("fragment sizes are ignored by the ecdsa scheme")
	}

	base, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load base configuration", err)
	}

	var store *history.Store
	if opts.HistoryDB != "" {
		store, err = history.Open(opts.HistoryDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Error("error closing history database", "error", closeErr)
			}
		}()
	}

	h := &harness.Harness{
		Binary:         opts.Binary,
		Mode:           opts.Mode,
		Config:         base,
		Scheme:         opts.Scheme,
		Runs:           opts.Runs,
		FragmentSizes:  opts.FragmentSizes,
		Compressions:   opts.Compressions,
		Overrides:      scenarioOverrides(opts),
		PacketLoss:     opts.PacketLoss,
		BasePort:       optionalPort(opts.BasePort),
		Note:           opts.Note,
		MetricsFile:    opts.MetricsFile,
		LogDir:         opts.LogDir,
		SettleDelay:    time.Duration(opts.SleepMS) * time.Millisecond,
		DryRun:         opts.DryRun,
		KeepTempConfig: opts.KeepTemp,
		History:        store,
		Output:         cmd.OutOrStdout(),
		Logger:         logger,
		NewSupervisor:  opts.NewSupervisor,
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, aborting sweep", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := h.Execute(ctx); err != nil {
		if err == context.Canceled {
			return NewExitError(ExitFailure, "sweep aborted")
		}
		return WrapExitError(ExitFailure, "sweep failed", err)
	}
	return nil
}

// applySweepFile fills in options from the sweep file for every flag the
// user did not set explicitly. Command-line flags always win.
func applySweepFile(opts *RunOptions, f *sweep.File, cmd *cobra.Command) {
	changed := cmd.Flags().Changed

	if f.Scheme != "" && !changed("scheme") {
		opts.Scheme = f.Scheme
	}
	if f.Runs > 0 && !changed("runs") {
		opts.Runs = f.Runs
	}
	if len(f.FragmentSizes) > 0 && !changed("fragment-sizes") {
		opts.FragmentSizes = f.FragmentSizes
	}
	if len(f.Compressions) > 0 && !changed("compression") {
		opts.Compressions = f.Compressions
	}
	if f.Vehicles != nil && !changed("vehicles") {
		opts.Vehicles = *f.Vehicles
	}
	if f.Messages != nil && !changed("messages") {
		opts.Messages = *f.Messages
	}
	if f.PacketLoss > 0 && !changed("packet-loss") {
		opts.PacketLoss = f.PacketLoss
	}
	if f.BasePort != nil && !changed("base-port") {
		opts.BasePort = *f.BasePort
	}
	if f.Note != "" && !changed("note") {
		opts.Note = f.Note
	}
}

func validateRunOptions(opts *RunOptions) error {
	if opts.Scheme != "ecdsa" && opts.Scheme != "falcon" {
		return fmt.Errorf("scheme must be \"ecdsa\" or \"falcon\", got %q", opts.Scheme)
	}
	if opts.Mode != "dsrc" && opts.Mode != "cv2x" {
		return fmt.Errorf("mode must be \"dsrc\" or \"cv2x\", got %q", opts.Mode)
	}
	if opts.Runs < 0 {
		return fmt.Errorf("runs must be non-negative, got %d", opts.Runs)
	}
	if opts.PacketLoss < 0 || opts.PacketLoss > 1 {
		return fmt.Errorf("packet-loss must be within [0.0, 1.0], got %g", opts.PacketLoss)
	}
	for _, size := range opts.FragmentSizes {
		if size <= 0 {
			return fmt.Errorf("fragment sizes must be positive, got %d", size)
		}
	}
	if opts.BasePort < 0 || opts.BasePort > 65535 {
		return fmt.Errorf("base-port must be within [1, 65535], got %d", opts.BasePort)
	}
	return nil
}

func scenarioOverrides(opts *RunOptions) config.Overrides {
	ov := config.Overrides{}
	if opts.Vehicles > 0 {
		v := opts.Vehicles
		ov.Vehicles = &v
	}
	if opts.Messages > 0 {
		v := opts.Messages
		ov.Messages = &v
	}
	return ov
}

func optionalPort(port int) *int {
	if port == 0 {
		return nil
	}
	return &port
}

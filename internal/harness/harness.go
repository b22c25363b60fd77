// Package harness orchestrates a full benchmark sweep: it expands the
// requested dimensions into combinations, materializes a configuration
// artifact per combination, supervises the paired iterations, and
// correlates the resulting metrics back to each combination's tag.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pqv2x/falconsweep/internal/config"
	"github.com/pqv2x/falconsweep/internal/history"
	"github.com/pqv2x/falconsweep/internal/metrics"
	"github.com/pqv2x/falconsweep/internal/runner"
	"github.com/pqv2x/falconsweep/internal/sweep"
)

// RunSupervisor executes one paired iteration. Satisfied by
// *runner.Supervisor; tests substitute a stub.
type RunSupervisor interface {
	Run(ctx context.Context, runID int) error
}

// SupervisorFactory builds the supervisor for one combination from its
// environment base and materialized configuration artifact.
type SupervisorFactory func(env runner.Env, configPath string) RunSupervisor

// Harness drives one sweep invocation. Combinations execute strictly
// sequentially; the only OS-level parallelism is the receiver/transmitter
// pair inside a single iteration.
type Harness struct {
	// Binary is the path to the benchmark executable.
	Binary string

	// Mode is the link technology argument ("dsrc" or "cv2x").
	Mode string

	// Config is the loaded base configuration document.
	Config *config.Document

	// Scheme is the signature scheme under test ("ecdsa" or "falcon").
	Scheme string

	// Runs is the number of iterations per combination.
	Runs int

	// FragmentSizes and Compressions are the sweep dimensions. Empty
	// lists inherit the base configuration's values.
	FragmentSizes []int
	Compressions  []string

	// Overrides are the scenario-count overrides applied to every
	// combination.
	Overrides config.Overrides

	// PacketLoss is the simulated fragment loss rate; zero disables it.
	PacketLoss float64

	// BasePort overrides the test port when set.
	BasePort *int

	// Note is the free-form label appended to every combination's tag.
	Note string

	// MetricsFile is the shared CSV file the binary appends to.
	MetricsFile string

	// LogDir, when set, receives per-run process logs.
	LogDir string

	// SettleDelay is the receiver-to-transmitter start gap. Zero means
	// the supervisor default.
	SettleDelay time.Duration

	// DryRun prints the expanded plan and stops before any side effect.
	DryRun bool

	// KeepTempConfig leaves the materialized artifacts on disk for
	// inspection instead of deleting them after each combination.
	KeepTempConfig bool

	// History, when non-nil, receives one archived summary row per
	// combination.
	History *history.Store

	// Output receives plan and summary lines. Defaults to os.Stdout.
	Output io.Writer

	Logger *slog.Logger

	// NewSupervisor overrides supervisor construction. Tests use this to
	// substitute a stub; nil means the real subprocess supervisor.
	NewSupervisor SupervisorFactory
}

// Execute runs the sweep.
//
// For each planned combination: build the tag, materialize the
// configuration artifact, run iterations 0..Runs-1 sequentially (aborting
// the combination on the first failure), then read and summarize the
// metrics captured under the tag. The artifact is deleted when the
// combination finishes, pass or fail, unless KeepTempConfig is set.
//
// The first run failure is returned after its partial summary has been
// reported; remaining combinations are not attempted.
func (h *Harness) Execute(ctx context.Context) error {
	plan := sweep.Plan(h.FragmentSizes, h.Compressions, h.Config.Defaults())

	if h.DryRun {
		h.printPlan(plan)
		return nil
	}

	if _, err := os.Stat(h.Binary); err != nil {
		return fmt.Errorf("benchmark binary not found at %s: %w", h.Binary, err)
	}
	if err := metrics.EnsureHeader(h.MetricsFile); err != nil {
		return err
	}

	for i, combination := range plan {
		h.logger().Info("starting combination",
			"index", i+1, "total", len(plan), "combination", combination.String())
		if err := h.executeCombination(ctx, combination); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) executeCombination(ctx context.Context, c sweep.Combination) error {
	tag := sweep.NewTag(h.Scheme, c, sweep.TagOptions{
		PacketLoss: h.PacketLoss,
		BasePort:   h.BasePort,
		Note:       h.Note,
	})

	configPath, err := config.Materialize(h.Config, h.Scheme, h.Overrides, c)
	if err != nil {
		return err
	}
	defer func() {
		if h.KeepTempConfig {
			h.logger().Info("keeping configuration artifact", "path", configPath)
			return
		}
		if err := os.Remove(configPath); err != nil {
			h.logger().Warn("failed to remove configuration artifact",
				"path", configPath, "error", err)
		}
	}()

	supervisor := h.newSupervisor(tag, configPath)

	completed := 0
	var runErr error
	for run := 0; run < h.Runs; run++ {
		h.logger().Info("run", "id", run+1, "of", h.Runs, "tag", tag.String())
		if err := supervisor.Run(ctx, run); err != nil {
			runErr = err
			break
		}
		completed++
	}

	// The partial summary is reported even when a run failed: completed
	// iterations have already written their metrics rows.
	summary := h.reportSummary(tag, completed)

	if h.History != nil && runErr == nil {
		result := history.SweepResult{
			Tag:           tag.String(),
			Scheme:        h.Scheme,
			RunsRequested: h.Runs,
			RunsCompleted: completed,
			Summary:       summary,
		}
		if err := h.History.RecordSummary(ctx, result); err != nil {
			h.logger().Warn("failed to archive sweep result", "error", err)
		}
	}

	return runErr
}

func (h *Harness) newSupervisor(tag sweep.Tag, configPath string) RunSupervisor {
	env := runner.BaseEnv(os.Environ(), runner.EnvParams{
		Scheme:       h.Scheme,
		MetricsFile:  h.MetricsFile,
		PacketLoss:   h.PacketLoss,
		BasePort:     h.BasePort,
		FragmentSize: tag.FragmentSize,
		Compression:  tag.Compression,
		Tag:          tag.String(),
	})
	if h.NewSupervisor != nil {
		return h.NewSupervisor(env, configPath)
	}
	return &runner.Supervisor{
		Binary:      h.Binary,
		Mode:        h.Mode,
		Env:         env,
		ConfigPath:  configPath,
		SettleDelay: h.SettleDelay,
		LogDir:      h.LogDir,
		Output:      h.output(),
		Logger:      h.logger(),
	}
}

// reportSummary reads the metrics captured under the tag and prints the
// per-combination summary block. A correlation miss is reported
// explicitly rather than as an empty table.
func (h *Harness) reportSummary(tag sweep.Tag, completed int) metrics.Summary {
	w := h.output()

	records, err := metrics.Read(h.MetricsFile, tag.String())
	if err != nil {
		h.logger().Warn("failed to read metrics", "file", h.MetricsFile, "error", err)
		records = nil
	}
	summary := metrics.Summarize(records)

	if summary.Empty() {
		fmt.Fprintf(w, "No metrics captured for %s\n", tag)
		return summary
	}

	fmt.Fprintf(w, "Summary for %s (%d/%d runs completed):\n", tag, completed, h.Runs)
	fmt.Fprintf(w, "  samples:      %d\n", summary.Count)
	fmt.Fprintf(w, "  avg_total_us: %.2f (%.4f ms)\n", summary.MeanTotalUS, summary.MeanTotalMS)
	fmt.Fprintf(w, "  stdev_us:     %.2f\n", summary.StdevTotalUS)
	fmt.Fprintf(w, "  min/max_us:   %.2f / %.2f\n", summary.MinTotalUS, summary.MaxTotalUS)
	if summary.MeanFirstUS > 0 || summary.MeanLastUS > 0 {
		fmt.Fprintf(w, "  avg_first_us: %.2f  avg_last_us: %.2f\n",
			summary.MeanFirstUS, summary.MeanLastUS)
	}
	return summary
}

func (h *Harness) printPlan(plan []sweep.Combination) {
	w := h.output()
	fmt.Fprintf(w, "Sweep plan: %d combination(s), %d run(s) each, scheme=%s\n",
		len(plan), h.Runs, h.Scheme)
	for i, c := range plan {
		fmt.Fprintf(w, "  %d. %s\n", i+1, c.String())
	}
}

func (h *Harness) output() io.Writer {
	if h.Output != nil {
		return h.Output
	}
	return os.Stdout
}

func (h *Harness) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Process roles, as the external binary names them on its command line.
const (
	SideReceiver    = "receiver"
	SideTransmitter = "transmitter"
)

// DefaultSettleDelay is the wait between starting the receiver and the
// transmitter. It is a best-effort ordering guarantee, not a handshake:
// the binary has no readiness signal, so the harness trusts it to be
// listening within this window.
const DefaultSettleDelay = 200 * time.Millisecond

// RunFailure reports a non-zero exit from one side of a paired iteration.
type RunFailure struct {
	Side   string // "receiver" or "transmitter"
	Status int    // process exit status
	Run    int    // run identifier within the combination
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("%s exited with status %d for run %d", e.Side, e.Status, e.Run)
}

// Supervisor executes paired receiver/transmitter iterations for one
// combination. It is not safe for concurrent use; the orchestrator runs
// iterations strictly sequentially.
type Supervisor struct {
	// Binary is the path to the falcon_sim executable.
	Binary string

	// Mode is the link technology argument ("dsrc" or "cv2x").
	Mode string

	// Env is the combination's environment base.
	Env Env

	// ConfigPath is the materialized configuration artifact for this
	// combination.
	ConfigPath string

	// SettleDelay is the receiver-to-transmitter start gap. Zero means
	// DefaultSettleDelay; negative values are clamped to zero.
	SettleDelay time.Duration

	// LogDir, when non-empty, receives per-run combined output as
	// receiver_run_NNNN.log / transmitter_run_NNNN.log. When empty the
	// output is captured and echoed to Output after each process exits.
	LogDir string

	// Output is where captured process output is echoed when LogDir is
	// unset. Defaults to os.Stdout.
	Output io.Writer

	Logger *slog.Logger
}

// Run executes exactly one paired iteration for runID.
//
// Protocol: start receiver, wait the settle delay, start transmitter with
// the same environment, wait for the transmitter, then for the receiver.
// A non-zero exit from either side yields a *RunFailure (transmitter
// checked first, since it drives the exchange). There is no timeout on
// the waits; cancelling ctx kills both processes.
func (s *Supervisor) Run(ctx context.Context, runID int) error {
	env := s.Env.ForRun(runID, s.ConfigPath)

	receiver, err := s.launch(ctx, SideReceiver, runID, env)
	if err != nil {
		return fmt.Errorf("failed to start receiver for run %d: %w", runID, err)
	}

	delay := s.SettleDelay
	if delay == 0 {
		delay = DefaultSettleDelay
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			receiver.abandon()
			return ctx.Err()
		}
	}

	transmitter, err := s.launch(ctx, SideTransmitter, runID, env)
	if err != nil {
		receiver.abandon()
		return fmt.Errorf("failed to start transmitter for run %d: %w", runID, err)
	}

	// The transmitter terminates the exchange; observe it first.
	transmitterStatus := transmitter.wait(s.Output)
	receiverStatus := receiver.wait(s.Output)

	if err := ctx.Err(); err != nil {
		return err
	}
	if transmitterStatus != 0 {
		return &RunFailure{Side: SideTransmitter, Status: transmitterStatus, Run: runID}
	}
	if receiverStatus != 0 {
		return &RunFailure{Side: SideReceiver, Status: receiverStatus, Run: runID}
	}
	return nil
}

// process tracks one launched side and its output sink.
type process struct {
	cmd     *exec.Cmd
	logFile *os.File
	capture *bytes.Buffer
}

func (s *Supervisor) launch(ctx context.Context, side string, runID int, env []string) (*process, error) {
	cmd := exec.CommandContext(ctx, s.Binary, s.Mode, side, "nogui", "--test")
	cmd.Env = env

	p := &process{cmd: cmd}
	if s.LogDir != "" {
		logPath := filepath.Join(s.LogDir, fmt.Sprintf("%s_run_%04d.log", side, runID))
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.Create(logPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
		p.logFile = f
	} else {
		buf := &bytes.Buffer{}
		cmd.Stdout = buf
		cmd.Stderr = buf
		p.capture = buf
	}

	if err := cmd.Start(); err != nil {
		if p.logFile != nil {
			p.logFile.Close()
		}
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.Debug("process started", "side", side, "run", runID, "pid", cmd.Process.Pid)
	}
	return p, nil
}

// wait blocks until the process exits, drains its output, and returns the
// exit status. Start errors are unreachable here; Wait failures that are
// not exit errors are reported as status -1.
func (p *process) wait(echo io.Writer) int {
	err := p.cmd.Wait()
	if p.logFile != nil {
		p.logFile.Close()
	} else if p.capture != nil {
		if out := strings.TrimSpace(p.capture.String()); out != "" {
			if echo == nil {
				echo = os.Stdout
			}
			fmt.Fprintln(echo, out)
		}
	}

	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// abandon kills a process whose partner failed to start and reaps it.
func (p *process) abandon() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	if p.logFile != nil {
		p.logFile.Close()
	}
}

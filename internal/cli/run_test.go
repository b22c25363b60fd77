package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStub creates a shell script standing in for the benchmark binary.
// The receiver role appends one metrics row the way the real binary
// would; STUB_EXIT_TRANSMITTER forces a transmitter failure.
func writeStub(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub requires a POSIX shell")
	}

	script := `#!/bin/sh
role="$2"
if [ "$role" = "receiver" ]; then
  printf '%s,%s,1500,,,%s\n' "$V2X_METRICS_RUN" "$V2X_SIGNATURE_SCHEME" "$V2X_METRICS_NOTE" >> "$V2X_METRICS_FILE"
fi
if [ "$role" = "transmitter" ] && [ -n "$STUB_EXIT_TRANSMITTER" ]; then
  exit "$STUB_EXIT_TRANSMITTER"
fi
exit 0
`
	path := filepath.Join(t.TempDir(), "falcon_sim")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func writeBaseConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"scenario": {"numVehicles": 3, "numMessages": 10}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"run"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_EndToEnd(t *testing.T) {
	binary := writeStub(t)
	configPath := writeBaseConfig(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics.csv")

	out, err := executeRun(t,
		"--binary", binary,
		"--config", configPath,
		"--metrics-file", metricsFile,
		"--runs", "2",
		"--sleep-ms", "10",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Summary for scheme=falcon (2/2 runs completed)")
	assert.Contains(t, out, "samples:      2")
	assert.Contains(t, out, "avg_total_us: 1500.00")
}

func TestRunCommand_TransmitterFailure(t *testing.T) {
	binary := writeStub(t)
	configPath := writeBaseConfig(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics.csv")
	t.Setenv("STUB_EXIT_TRANSMITTER", "2")

	_, err := executeRun(t,
		"--binary", binary,
		"--config", configPath,
		"--metrics-file", metricsFile,
		"--runs", "5",
		"--sleep-ms", "10",
	)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "transmitter exited with status 2")
}

func TestRunCommand_DryRun(t *testing.T) {
	configPath := writeBaseConfig(t)

	out, err := executeRun(t,
		"--config", configPath,
		"--fragment-sizes", "256,512",
		"--compression", "zlib",
		"--dry-run",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Sweep plan: 2 combination(s)")
	assert.Contains(t, out, "fragment_size=256, compression=zlib")
	assert.Contains(t, out, "fragment_size=512, compression=zlib")
}

func TestRunCommand_SweepFileMerge(t *testing.T) {
	configPath := writeBaseConfig(t)
	sweepFile := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(sweepFile, []byte(`
name: fragmentation
scheme: falcon
runs: 7
fragment_sizes: [256, 512]
`), 0644))

	// --runs on the command line overrides the file's value; the file's
	// fragment sizes survive.
	out, err := executeRun(t,
		"--config", configPath,
		"--sweep-file", sweepFile,
		"--runs", "3",
		"--dry-run",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "2 combination(s), 3 run(s) each")
	assert.Contains(t, out, "fragment_size=256")
	assert.Contains(t, out, "fragment_size=512")
}

func TestRunCommand_SweepFileUnknownField(t *testing.T) {
	configPath := writeBaseConfig(t)
	sweepFile := filepath.Join(t.TempDir(), "sweep.yaml")
	require.NoError(t, os.WriteFile(sweepFile, []byte("fragment_size: [256]\n"), 0644))

	_, err := executeRun(t, "--config", configPath, "--sweep-file", sweepFile, "--dry-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommand_MissingConfig(t *testing.T) {
	_, err := executeRun(t,
		"--config", filepath.Join(t.TempDir(), "missing.json"),
		"--dry-run",
	)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load base configuration")
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	configPath := writeBaseConfig(t)

	cases := map[string][]string{
		"bad scheme":    {"--scheme", "rsa"},
		"bad mode":      {"--mode", "wifi"},
		"loss above 1":  {"--packet-loss", "1.5"},
		"negative runs": {"--runs", "-1"},
		"zero fragment": {"--fragment-sizes", "0"},
	}
	for name, extra := range cases {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"--config", configPath, "--dry-run"}, extra...)
			_, err := executeRun(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestRunCommand_HistoryArchive(t *testing.T) {
	binary := writeStub(t)
	configPath := writeBaseConfig(t)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.csv")
	historyDB := filepath.Join(dir, "history.db")

	_, err := executeRun(t,
		"--binary", binary,
		"--config", configPath,
		"--metrics-file", metricsFile,
		"--history-db", historyDB,
		"--runs", "1",
		"--sleep-ms", "10",
	)
	require.NoError(t, err)

	_, statErr := os.Stat(historyDB)
	assert.NoError(t, statErr, "history database should have been created")
}

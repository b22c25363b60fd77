// Package runner builds per-run environments and supervises one paired
// receiver/transmitter iteration of the external benchmark executable.
package runner

import (
	"sort"
	"strconv"
	"strings"
)

// Environment variable names consumed by the falcon_sim binary. The
// harness is the producer side of this contract; absence of an optional
// variable is meaningful and must never be replaced by an empty string.
const (
	EnvScheme        = "V2X_SIGNATURE_SCHEME"
	EnvMetricsFile   = "V2X_METRICS_FILE"
	EnvMetricsRun    = "V2X_METRICS_RUN"
	EnvMetricsNote   = "V2X_METRICS_NOTE"
	EnvConfigPath    = "V2X_CONFIG_PATH"
	EnvPacketLoss    = "V2X_PACKET_LOSS_RATE"
	EnvTestPort      = "V2X_TEST_PORT"
	EnvFragmentBytes = "V2X_FALCON_FRAGMENT_BYTES"
	EnvCompression   = "V2X_FALCON_COMPRESSION"
)

// optionalVars are scrubbed from the parent environment before overlays
// are applied, so a variable exported by the invoking shell (or left over
// from a wrapper script) cannot leak into a run that did not set it.
var optionalVars = []string{
	EnvPacketLoss,
	EnvTestPort,
	EnvFragmentBytes,
	EnvCompression,
	EnvMetricsRun,
	EnvMetricsNote,
	EnvConfigPath,
}

// Env is the immutable per-combination environment base. Per-iteration
// values (run id, config path) are layered on by ForRun, which always
// builds a fresh copy - nothing is ever mutated in place, so a dimension
// absent from one combination cannot inherit a value from the previous
// one.
type Env struct {
	vars map[string]string
}

// EnvParams are the per-combination overlays applied on top of the parent
// process environment.
type EnvParams struct {
	Scheme       string
	MetricsFile  string
	PacketLoss   float64 // set only when > 0
	BasePort     *int    // set only when non-nil
	FragmentSize *int    // set only when non-nil
	Compression  *string // set only when non-nil
	Tag          string  // correlation tag, written as the metrics note
}

// BaseEnv builds the environment shared by every iteration of one
// combination. Overlays are applied in a fixed order; later entries mask
// earlier ones for the same key.
func BaseEnv(parent []string, p EnvParams) Env {
	vars := make(map[string]string, len(parent)+8)
	for _, kv := range parent {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	for _, k := range optionalVars {
		delete(vars, k)
	}

	vars[EnvScheme] = p.Scheme
	vars[EnvMetricsFile] = p.MetricsFile
	if p.PacketLoss > 0 {
		vars[EnvPacketLoss] = strconv.FormatFloat(p.PacketLoss, 'f', 6, 64)
	}
	if p.BasePort != nil {
		vars[EnvTestPort] = strconv.Itoa(*p.BasePort)
	}
	if p.FragmentSize != nil {
		vars[EnvFragmentBytes] = strconv.Itoa(*p.FragmentSize)
	}
	if p.Compression != nil {
		vars[EnvCompression] = *p.Compression
	}
	vars[EnvMetricsNote] = p.Tag

	return Env{vars: vars}
}

// Lookup reports the value of a variable and whether it is present.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// ForRun renders the environment for one iteration: the base plus the run
// identifier and the configuration artifact path, as a KEY=VALUE slice
// suitable for exec.Cmd. Keys are sorted for deterministic output.
func (e Env) ForRun(runID int, configPath string) []string {
	merged := make(map[string]string, len(e.vars)+2)
	for k, v := range e.vars {
		merged[k] = v
	}
	merged[EnvMetricsRun] = strconv.Itoa(runID)
	merged[EnvConfigPath] = configPath

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

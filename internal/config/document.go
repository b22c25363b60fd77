// Package config loads the base benchmark configuration, validates it
// once against an embedded CUE schema, and materializes per-combination
// configuration artifacts for the external executable.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/pqv2x/falconsweep/internal/sweep"
)

//go:embed schema.cue
var schemaCUE string

// Document is the typed form of the falcon_sim configuration file.
// The JSON shape is fixed by the external binary (scenario.signatureScheme,
// scenario.numVehicles, scenario.numMessages, scenario.falcon.*).
type Document struct {
	Scenario Scenario `json:"scenario"`
}

// Scenario holds the benchmark scenario parameters.
type Scenario struct {
	SignatureScheme string  `json:"signatureScheme,omitempty"`
	NumVehicles     int     `json:"numVehicles"`
	NumMessages     int     `json:"numMessages"`
	Falcon          *Falcon `json:"falcon,omitempty"`
}

// Falcon holds the Falcon-specific override region. Both fields are
// optional: absence lets the binary use its compiled-in defaults.
type Falcon struct {
	FragmentBytes *int    `json:"fragmentBytes,omitempty"`
	Compression   *string `json:"compression,omitempty"`
}

// Load reads the base configuration from path and validates its structure
// against the embedded schema. A structurally invalid document is a fatal
// configuration error: no process may be launched with it.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read base configuration: %w", err)
	}

	if err := validateSchema(path, data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse base configuration: %w", err)
	}
	return &doc, nil
}

// Validate checks a configuration file against the schema without
// building a Document. Used by the validate command.
func Validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	return validateSchema(path, data)
}

// validateSchema unifies the raw JSON with the embedded CUE schema.
func validateSchema(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	expr, err := cuejson.Extract(path, data)
	if err != nil {
		return fmt.Errorf("failed to parse configuration JSON: %w", err)
	}
	value := ctx.BuildExpr(expr)
	if err := value.Err(); err != nil {
		return fmt.Errorf("failed to build configuration value: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("configuration does not match schema: %w", err)
	}
	return nil
}

// Defaults extracts the planner fallbacks for the sweep dimensions.
func (d *Document) Defaults() sweep.Defaults {
	defaults := sweep.Defaults{}
	if d.Scenario.Falcon != nil {
		defaults.FragmentSize = d.Scenario.Falcon.FragmentBytes
		defaults.Compression = d.Scenario.Falcon.Compression
	}
	return defaults
}

// Clone returns a deep, independent copy of the document.
func (d *Document) Clone() *Document {
	cp := *d
	if d.Scenario.Falcon != nil {
		falcon := Falcon{}
		if d.Scenario.Falcon.FragmentBytes != nil {
			v := *d.Scenario.Falcon.FragmentBytes
			falcon.FragmentBytes = &v
		}
		if d.Scenario.Falcon.Compression != nil {
			v := *d.Scenario.Falcon.Compression
			falcon.Compression = &v
		}
		cp.Scenario.Falcon = &falcon
	}
	return &cp
}

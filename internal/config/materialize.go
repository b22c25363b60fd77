package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/pqv2x/falconsweep/internal/sweep"
)

// Overrides carries the optional scenario-count overrides applied to
// every combination of a sweep.
type Overrides struct {
	Vehicles *int
	Messages *int
}

// Materialize derives a configuration artifact for one combination.
//
// The base document is never mutated: the derived document is a deep copy
// with the scheme set, vehicle/message counts overridden when provided,
// and the falcon fragment/compression fields overridden only when the
// combination carries them. The result is written to a uniquely named
// file in the OS temp directory; the caller owns its deletion.
func Materialize(base *Document, scheme string, ov Overrides, c sweep.Combination) (string, error) {
	doc := base.Clone()
	doc.Scenario.SignatureScheme = scheme
	if ov.Vehicles != nil {
		doc.Scenario.NumVehicles = *ov.Vehicles
	}
	if ov.Messages != nil {
		doc.Scenario.NumMessages = *ov.Messages
	}

	if c.FragmentSize != nil || c.Compression != nil {
		if doc.Scenario.Falcon == nil {
			doc.Scenario.Falcon = &Falcon{}
		}
		if c.FragmentSize != nil {
			v := *c.FragmentSize
			doc.Scenario.Falcon.FragmentBytes = &v
		}
		if c.Compression != nil {
			v := *c.Compression
			doc.Scenario.Falcon.Compression = &v
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize derived configuration: %w", err)
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("pqv2_remote_%s.json", uuid.NewString()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write configuration artifact: %w", err)
	}
	return path, nil
}

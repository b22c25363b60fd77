package sweep

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a declarative sweep definition. It mirrors the run command's
// flags so a recurring experiment can be checked in next to its base
// configuration instead of living in shell history. Flags given on the
// command line override the corresponding file values.
type File struct {
	// Name labels the sweep in logs. Optional.
	Name string `yaml:"name,omitempty"`

	// Scheme selects the signature scheme ("ecdsa" or "falcon").
	Scheme string `yaml:"scheme,omitempty"`

	// Runs is the number of iterations per combination.
	Runs int `yaml:"runs,omitempty"`

	// FragmentSizes and Compressions are the sweep dimensions.
	// An empty list means "inherit the base configuration default".
	FragmentSizes []int    `yaml:"fragment_sizes,omitempty"`
	Compressions  []string `yaml:"compressions,omitempty"`

	// Vehicles and Messages override the scenario counts when set.
	Vehicles *int `yaml:"vehicles,omitempty"`
	Messages *int `yaml:"messages,omitempty"`

	// PacketLoss is the simulated fragment loss rate (0.0-1.0).
	PacketLoss float64 `yaml:"packet_loss,omitempty"`

	// BasePort overrides the test UDP port when set.
	BasePort *int `yaml:"base_port,omitempty"`

	// Note is stored alongside metrics entries.
	Note string `yaml:"note,omitempty"`
}

// LoadFile reads and parses a sweep definition YAML file.
// Unknown fields are rejected to catch typos early.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep file: %w", err)
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid sweep file: %w", err)
	}
	return &f, nil
}

func (f *File) validate() error {
	if f.Scheme != "" && f.Scheme != "ecdsa" && f.Scheme != "falcon" {
		return fmt.Errorf("scheme must be \"ecdsa\" or \"falcon\", got %q", f.Scheme)
	}
	if f.Runs < 0 {
		return fmt.Errorf("runs must be non-negative, got %d", f.Runs)
	}
	if f.PacketLoss < 0 || f.PacketLoss > 1 {
		return fmt.Errorf("packet_loss must be within [0.0, 1.0], got %g", f.PacketLoss)
	}
	for i, size := range f.FragmentSizes {
		if size <= 0 {
			return fmt.Errorf("fragment_sizes[%d]: must be positive, got %d", i, size)
		}
	}
	if f.BasePort != nil && (*f.BasePort < 1 || *f.BasePort > 65535) {
		return fmt.Errorf("base_port must be within [1, 65535], got %d", *f.BasePort)
	}
	return nil
}

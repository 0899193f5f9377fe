package device

import (
	"fmt"
	"iter"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/doorman/internal/registry"
)

// File is the on-disk layout of a device list.
//
//	devices:
//	  - address: "AA:BB:CC:DD:EE:FF"
//	    name: "alice phone"
//	    rssi_reference: -70
type File struct {
	Devices []Device `yaml:"devices"`
}

// ParseFile decodes a YAML device list without validating its entries.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing device file: %w", err)
	}
	return &f, nil
}

// FileSource returns a registry source reading the YAML device file at path.
//
// The file is read when iteration starts. Each device is normalised before
// it is yielded; iteration stops with an error at the first invalid device.
func FileSource(path string) iter.Seq2[registry.Entry[Address, Device], error] {
	return func(yield func(registry.Entry[Address, Device], error) bool) {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
		if err != nil {
			yield(registry.Entry[Address, Device]{}, fmt.Errorf("reading device file: %w", err))
			return
		}

		f, err := ParseFile(data)
		if err != nil {
			yield(registry.Entry[Address, Device]{}, err)
			return
		}

		for i, d := range f.Devices {
			nd, err := Normalize(d)
			if err != nil {
				yield(registry.Entry[Address, Device]{}, fmt.Errorf("device %d in %s: %w", i+1, path, err))
				return
			}
			if !yield(registry.Entry[Address, Device]{Key: nd.Key(), Device: nd}, nil) {
				return
			}
		}
	}
}

// WriteFile stores devices as a YAML device list at path.
func WriteFile(path string, devices []Device) error {
	data, err := yaml.Marshal(File{Devices: devices})
	if err != nil {
		return fmt.Errorf("encoding device file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing device file: %w", err)
	}
	return nil
}

package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile loads and parses a registry file from the given path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	reg.Path = path

	return reg, nil
}

// Parse parses YAML data into a Registry.
func Parse(data []byte) (*Registry, error) {
	var reg Registry

	err := yaml.Unmarshal(data, &reg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry YAML: %w", err)
	}

	applyDefaults(&reg)

	return &reg, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(reg *Registry) {
	if reg.Version == "" {
		reg.Version = "1"
	}

	for i := range reg.Entities {
		e := &reg.Entities[i]
		if e.Type == "" {
			e.Type = TypeCountry
		}
	}
}

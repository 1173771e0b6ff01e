package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MappingSuffix is appended to the dataset name to form its mapping file.
const MappingSuffix = ".countries.json"

// MappingPath returns <dir>/<dataset>.countries.json. The dataset name is
// taken without directory or extension.
func MappingPath(dir, dataset string) string {
	base := filepath.Base(dataset)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	return filepath.Join(dir, base+MappingSuffix)
}

// WriteJSON writes mapping as an indented JSON object with sorted keys,
// creating the parent directory when needed.
func WriteJSON(path string, mapping map[string]string) error {
	if mapping == nil {
		mapping = map[string]string{}
	}

	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write mapping %s: %w", path, err)
	}

	return nil
}

// ReadJSON reads a mapping written by WriteJSON.
func ReadJSON(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}

	var mapping map[string]string
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse mapping %s: %w", path, err)
	}

	if mapping == nil {
		mapping = map[string]string{}
	}

	return mapping, nil
}

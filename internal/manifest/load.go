package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrManifestUnreadable wraps every failure to read or parse a manifest.
// Callers use it to pick the manifest-failure resolution path.
var ErrManifestUnreadable = errors.New("manifest unreadable")

// Format is the on-disk encoding of a manifest.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from the file extension; anything that is
// not .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestUnreadable, err)
	}
	m, err := Parse(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest and applies the minimal structural checks the
// core relies on. Full schema validation happens upstream.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: parsing yaml: %v", ErrManifestUnreadable, err)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: parsing json: %v", ErrManifestUnreadable, err)
		}
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrManifestUnreadable, errors.Join(errs...))
	}
	return &m, nil
}

// Validate checks the structural invariants the core depends on and returns
// every problem found.
func Validate(m *Manifest) []error {
	if m == nil {
		return []error{fmt.Errorf("manifest is nil")}
	}

	var errs []error
	if len(m.Tasks) == 0 {
		errs = append(errs, fmt.Errorf("tasks: must contain at least one task"))
	}
	for i, t := range m.Tasks {
		if strings.TrimSpace(t.ID) == "" {
			errs = append(errs, fmt.Errorf("tasks[%d].id: must not be empty", i))
		}
	}
	return errs
}

// Marshal encodes m in the given format.
func Marshal(m *Manifest, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(m)
	default:
		return json.MarshalIndent(m, "", "  ")
	}
}

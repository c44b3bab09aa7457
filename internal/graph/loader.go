package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestFile is the on-disk shape of a serialized manifest.
type manifestFile struct {
	Nodes []*Node `yaml:"nodes"`
}

// LoadManifest reads a serialized manifest from a YAML file. Disabled and
// enabled nodes are registered the same way AddNode does.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var f manifestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	m := NewManifest()
	for _, n := range f.Nodes {
		if n.UniqueID == "" {
			return nil, fmt.Errorf("manifest %s: node %q has no unique_id", path, n.Name)
		}
		m.AddNode(n)
	}
	return m, nil
}

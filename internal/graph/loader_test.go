package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadManifestEnabledByDefault(t *testing.T) {
	path := writeManifestFile(t, `
nodes:
  - unique_id: model.my_project.users
    name: users
    package_name: my_project
    resource_type: model
    schema: analytics
    identifier: users
  - unique_id: model.my_project.audit
    name: audit
    package_name: my_project
    resource_type: model
    config:
      materialized: view
  - unique_id: model.my_project.legacy
    name: legacy
    package_name: my_project
    resource_type: model
    config:
      enabled: false
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)

	// No config block at all still means enabled.
	target, disabled := m.ResolveRef("users", "", "", "my_project", "my_project")
	require.NotNil(t, target)
	assert.False(t, disabled)
	assert.True(t, target.Config.Enabled)

	// A config block without an enabled key means enabled too.
	target, disabled = m.ResolveRef("audit", "", "", "my_project", "my_project")
	require.NotNil(t, target)
	assert.False(t, disabled)
	assert.Equal(t, "view", target.Config.Materialized)

	// Only an explicit enabled: false disables.
	target, disabled = m.ResolveRef("legacy", "", "", "my_project", "my_project")
	assert.Nil(t, target)
	assert.True(t, disabled)
}

func TestLoadManifestMissingUniqueID(t *testing.T) {
	path := writeManifestFile(t, `
nodes:
  - name: users
    package_name: my_project
    resource_type: model
`)
	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique_id")
}

func TestLoadManifestMissingFile(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

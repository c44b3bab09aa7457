package macro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMacroFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoaderRegistersExports(t *testing.T) {
	dir := t.TempDir()
	writeMacroFile(t, dir, "aliases.star", `
def generate_alias(name):
    return "stg_" + name

def _private_helper(name):
    return name

not_a_macro = 42
`)

	r := NewRegistry()
	require.NoError(t, NewLoader(dir, "my_project").LoadInto(r))

	m, ok := r.Get("macro.my_project.generate_alias")
	require.True(t, ok)
	assert.Equal(t, "generate_alias", m.Name)
	assert.Equal(t, "my_project", m.PackageName)

	_, ok = r.Get("macro.my_project._private_helper")
	assert.False(t, ok, "underscore-prefixed names stay private")
	_, ok = r.Get("macro.my_project.not_a_macro")
	assert.False(t, ok, "non-callable exports are skipped")
}

func TestLoaderMissingDirectory(t *testing.T) {
	r := NewRegistry()
	err := NewLoader(filepath.Join(t.TempDir(), "absent"), "my_project").LoadInto(r)
	require.NoError(t, err)
	assert.Empty(t, r.Packages())
}

func TestLoaderSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeMacroFile(t, dir, "broken.star", "def oops(:\n")

	err := NewLoader(dir, "my_project").LoadInto(NewRegistry())
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "broken.star")
}

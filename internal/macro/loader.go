package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Loader scans a macros directory for .star files and registers every
// exported function as a macro of the given package.
type Loader struct {
	dir     string
	pkgName string
}

// NewLoader creates a macro loader for one package's macros directory.
func NewLoader(dir, pkgName string) *Loader {
	return &Loader{dir: dir, pkgName: pkgName}
}

// LoadInto loads all .star files and registers their exports. A missing
// directory is not an error; macros are optional.
func (l *Loader) LoadInto(registry *Registry) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to access macros directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("macros path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*.star"))
	if err != nil {
		return fmt.Errorf("failed to scan macros directory: %w", err)
	}

	for _, path := range files {
		if err := l.loadFile(registry, path); err != nil {
			return err
		}
	}
	return nil
}

// loadFile executes one .star file and registers its exported callables.
func (l *Loader) loadFile(registry *Registry, path string) error {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the macros directory
	if err != nil {
		return &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("load:%s", filepath.Base(path)),
		Print: func(_ *starlark.Thread, _ string) {
			// Macro loading should not print.
		},
	}

	opts := &syntax.FileOptions{TopLevelControl: true, GlobalReassign: true}
	globals, err := starlark.ExecFileOptions(opts, thread, path, content, nil)
	if err != nil {
		return &LoadError{File: path, Message: fmt.Sprintf("starlark execution error: %v", err)}
	}

	for name, value := range globals {
		if strings.HasPrefix(name, "_") {
			continue
		}
		if _, ok := value.(starlark.Callable); !ok {
			continue
		}
		registry.Register(&Macro{
			Name:        name,
			PackageName: l.pkgName,
			Fn:          value,
		})
	}
	return nil
}

// LoadError represents an error loading a macro file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("macros/%s: %s", filepath.Base(e.File), e.Message)
}

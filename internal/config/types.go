// Package config provides the immutable run configuration consumed by the
// resolution core. It is loaded once per invocation from the project file,
// environment variables and CLI flags, and treated as read-only afterwards.
package config

import (
	"time"

	"github.com/stratum-data/stratum/internal/relation"
)

// TargetConfig holds database target configuration.
type TargetConfig struct {
	// Name labels the target (dev, prod, ...); exposed to templates.
	Name string `koanf:"name"`

	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Database string `koanf:"database"`
	Schema   string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// SampleWindow is the half-open [Start, End) window of a sampled run.
type SampleWindow struct {
	Start time.Time
	End   time.Time
}

// Flags holds per-invocation settings supplied on the command line.
type Flags struct {
	// Which names the running command (run, compile, clone, ...).
	Which string

	// Empty limits all ref/source reads to zero rows.
	Empty bool

	// Defer substitutes deferred/production relations for targets that are
	// unselected or missing locally.
	Defer bool

	// FavorState prefers the deferred relation for any target not
	// explicitly selected in this run, without probing the local relation.
	FavorState bool

	// Sample restricts event-time-filtered reads to an explicit window.
	Sample *SampleWindow
}

// SampleMode reports whether the invocation carries a sample window.
func (f Flags) SampleMode() bool { return f.Sample != nil }

// PackageConfig describes one dependency package of the root project.
type PackageConfig struct {
	Name string `koanf:"name"`

	// Vars holds the package's variable definitions, with the same scoping
	// shape as the root project's vars block.
	Vars VarBlock `koanf:"vars"`

	// MacroSearchOrder, when set, overrides the packages searched by
	// adapter.dispatch for this package's namespace.
	MacroSearchOrder []string `koanf:"macro_search_order"`
}

// RuntimeConfig is the immutable settings object threaded through every
// resolver and execution context.
type RuntimeConfig struct {
	ProjectName string       `koanf:"name"`
	Target      TargetConfig `koanf:"target"`

	// Quoting is the project-wide quote policy applied to relations created
	// through the database wrapper.
	Quoting relation.QuotePolicy `koanf:"quoting"`

	// Vars holds the root project's variable definitions.
	Vars VarBlock `koanf:"vars"`

	// UseMicrobatch enables batched processing of microbatch-incremental
	// models for this project.
	UseMicrobatch bool `koanf:"use_microbatch_batches"`

	// CLIVars are --vars overrides; they win over any project definition.
	CLIVars map[string]any `koanf:"-"`

	// Dependencies maps package name to its project configuration.
	Dependencies map[string]*PackageConfig `koanf:"dependencies"`

	// Flags are the per-invocation settings.
	Flags Flags `koanf:"-"`

	// SelectedResources lists the unique IDs selected for this run. It is
	// threaded explicitly rather than held in process-wide state.
	SelectedResources []string `koanf:"-"`

	// Env is the invocation's environment variable snapshot.
	Env map[string]string `koanf:"-"`
}

// AdapterType returns the configured adapter type.
func (c *RuntimeConfig) AdapterType() string { return c.Target.Type }

// IsDependency reports whether pkg is a declared dependency package.
func (c *RuntimeConfig) IsDependency(pkg string) bool {
	_, ok := c.Dependencies[pkg]
	return ok
}

// MacroSearchOrderFor returns the configured macro search order for a
// package namespace, or nil when none is configured.
func (c *RuntimeConfig) MacroSearchOrderFor(namespace string) []string {
	if namespace == c.ProjectName {
		return nil
	}
	if dep, ok := c.Dependencies[namespace]; ok {
		return dep.MacroSearchOrder
	}
	return nil
}

// IsSelected reports whether the unique ID was selected for this run.
func (c *RuntimeConfig) IsSelected(uniqueID string) bool {
	for _, id := range c.SelectedResources {
		if id == uniqueID {
			return true
		}
	}
	return false
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the project file.
const ConfigFileName = "stratum.yaml"

// ConfigFileNameAlt is the alternate name of the project file.
const ConfigFileNameAlt = "stratum.yml"

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "STRATUM_"

// Load reads the runtime configuration for a project directory.
// Precedence (highest to lowest): flags > env vars > project file > defaults.
// The flags argument may be nil when no CLI flag set applies.
func Load(dir string, flags *pflag.FlagSet) (*RuntimeConfig, error) {
	k := koanf.New(".")

	// Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"name":                   "stratum",
		"target.name":            "dev",
		"target.type":            "duckdb",
		"target.schema":          "main",
		"use_microbatch_batches": true,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(dir); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg RuntimeConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.Dependencies == nil {
		cfg.Dependencies = map[string]*PackageConfig{}
	}
	for name, dep := range cfg.Dependencies {
		if dep.Name == "" {
			dep.Name = name
		}
	}
	cfg.Env = environSnapshot()

	return &cfg, nil
}

// findConfigFile finds the project file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing stratum.yaml or stratum.yml. Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if findConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func environSnapshot() map[string]string {
	snap := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			snap[kv[:i]] = kv[i+1:]
		}
	}
	return snap
}

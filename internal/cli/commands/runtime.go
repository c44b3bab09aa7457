// Package commands implements the stratum subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stratum-data/stratum/internal/adapter"
	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/graph"
	"github.com/stratum-data/stratum/internal/macro"
	"github.com/stratum-data/stratum/internal/state"
)

// ManifestPath is the manifest location relative to the project root.
const ManifestPath = "target/manifest.yaml"

// MacrosDir is the macros directory relative to the project root.
const MacrosDir = "macros"

// Runtime bundles everything a subcommand needs: loaded configuration, the
// project manifest, the macro registry, a connected adapter and the state
// store.
type Runtime struct {
	ProjectDir string
	Config     *config.RuntimeConfig
	Manifest   *graph.Manifest
	Macros     *macro.Registry
	Adapter    adapter.Adapter
	Store      *state.Store
	Logger     *slog.Logger
}

// NewRuntime loads the project for a command invocation. The returned
// cleanup closes the adapter connection and the state store.
func NewRuntime(cmd *cobra.Command) (*Runtime, func(), error) {
	flags := cmd.Flags()

	dir, _ := flags.GetString("project-dir")
	if root := config.FindProjectRoot(dir); root != "" {
		dir = root
	}

	logger := newLogger(cmd)

	cfg, err := config.Load(dir, flags)
	if err != nil {
		return nil, nil, err
	}
	if err := applyInvocationFlags(cfg, cmd); err != nil {
		return nil, nil, err
	}

	manifest, err := loadManifest(dir)
	if err != nil {
		return nil, nil, err
	}

	registry := macro.NewRegistry()
	macrosDir := filepath.Join(dir, MacrosDir)
	if _, err := os.Stat(macrosDir); err == nil {
		if err := macro.NewLoader(macrosDir, cfg.ProjectName).LoadInto(registry); err != nil {
			return nil, nil, err
		}
	}

	a, err := adapter.New(cfg.Target, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Connect(cmd.Context(), cfg.Target); err != nil {
		return nil, nil, fmt.Errorf("connecting %s adapter: %w", cfg.Target.Type, err)
	}

	store, err := openStore(cmd, dir, logger)
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	rt := &Runtime{
		ProjectDir: dir,
		Config:     cfg,
		Manifest:   manifest,
		Macros:     registry,
		Adapter:    a,
		Store:      store,
		Logger:     logger,
	}
	cleanup := func() {
		a.Close()
		store.Close()
	}

	// Selection names expand against the loaded manifest.
	if selects, _ := flags.GetStringSlice("select"); len(selects) > 0 {
		cfg.SelectedResources = expandSelection(manifest, selects)
	}
	return rt, cleanup, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// applyInvocationFlags fills the per-invocation settings that do not come
// from the project file.
func applyInvocationFlags(cfg *config.RuntimeConfig, cmd *cobra.Command) error {
	flags := cmd.Flags()

	cfg.Flags.Which = cmd.Name()
	cfg.Flags.Empty, _ = flags.GetBool("empty")
	cfg.Flags.Defer, _ = flags.GetBool("defer")
	cfg.Flags.FavorState, _ = flags.GetBool("favor-state")

	start, _ := flags.GetString("sample-start")
	end, _ := flags.GetString("sample-end")
	if start != "" || end != "" {
		window := &config.SampleWindow{}
		var err error
		if window.Start, err = time.Parse(time.RFC3339, start); err != nil {
			return fmt.Errorf("invalid --sample-start: %w", err)
		}
		if window.End, err = time.Parse(time.RFC3339, end); err != nil {
			return fmt.Errorf("invalid --sample-end: %w", err)
		}
		cfg.Flags.Sample = window
	}

	if raw, _ := flags.GetString("vars"); raw != "" {
		vars := map[string]any{}
		if err := yaml.Unmarshal([]byte(raw), &vars); err != nil {
			return fmt.Errorf("invalid --vars: %w", err)
		}
		cfg.CLIVars = vars
	}
	return nil
}

func loadManifest(dir string) (*graph.Manifest, error) {
	path := filepath.Join(dir, filepath.FromSlash(ManifestPath))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return graph.NewManifest(), nil
	}
	return graph.LoadManifest(path)
}

func openStore(cmd *cobra.Command, dir string, logger *slog.Logger) (*state.Store, error) {
	statePath, _ := cmd.Flags().GetString("state-path")
	if !filepath.IsAbs(statePath) {
		statePath = filepath.Join(dir, statePath)
	}
	if stateDir := filepath.Dir(statePath); stateDir != "." {
		if err := os.MkdirAll(stateDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}

	store := state.NewStore(logger)
	if err := store.Open(statePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// expandSelection maps selection tokens (node names or unique IDs) to
// unique IDs. Unknown tokens pass through unchanged so selection against a
// deferred manifest still works.
func expandSelection(manifest *graph.Manifest, tokens []string) []string {
	byName := make(map[string]string)
	for id, n := range manifest.Nodes() {
		byName[n.Name] = id
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if id, ok := byName[token]; ok {
			out = append(out, id)
			continue
		}
		out = append(out, token)
	}
	return out
}

// selectedNodes returns the graph nodes this invocation operates on, in
// stable unique-ID order.
func (rt *Runtime) selectedNodes() []*graph.Node {
	var out []*graph.Node
	for _, n := range rt.Manifest.Nodes() {
		switch n.ResourceType {
		case graph.NodeTypeModel, graph.NodeTypeSeed, graph.NodeTypeSnapshot:
		default:
			continue
		}
		if len(rt.Config.SelectedResources) > 0 && !rt.Config.IsSelected(n.UniqueID) {
			continue
		}
		out = append(out, n)
	}
	sortNodes(out)
	return out
}

func sortNodes(nodes []*graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].UniqueID < nodes[j].UniqueID })
}

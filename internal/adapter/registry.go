package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/stratum-data/stratum/internal/config"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Adapter)
)

// Register adds an adapter factory to the registry.
// Called by adapter implementations in their init() functions.
func Register(name string, factory func(*slog.Logger) Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New creates an adapter instance for the target's configured type.
// A nil logger uses the discard handler.
func New(target config.TargetConfig, logger *slog.Logger) (Adapter, error) {
	if target.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registryMu.RLock()
	factory, ok := registry[target.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownAdapterError{Type: target.Type, Available: List()}
	}
	return factory(logger), nil
}

// List returns all registered adapter names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %v)", e.Type, e.Available)
}

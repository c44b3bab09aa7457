package execctx

import (
	"sync"

	"github.com/stratum-data/stratum/internal/adapter"
)

// MainResultKey is the slot holding the result of the statement currently
// being materialized. It is read repeatedly by hooks and never consumed.
const MainResultKey = "main"

// StoredResult is one stored statement outcome: the adapter's response plus
// the fetched rows, or an arbitrary raw value stored by store_raw_result.
type StoredResult struct {
	Response *adapter.Response
	Table    []map[string]any
	Raw      any
}

type resultState int

const (
	resultAvailable resultState = iota
	resultConsumed
)

type resultEntry struct {
	state resultState
	value *StoredResult
}

// ResultStore holds named statement results for one compiled unit. Each key
// is in one of three states: absent, available, or consumed. Loading an
// available key consumes it; loading a consumed key is an error; loading an
// absent key returns nothing.
type ResultStore struct {
	mu      sync.Mutex
	entries map[string]*resultEntry
}

func NewResultStore() *ResultStore {
	return &ResultStore{entries: make(map[string]*resultEntry)}
}

// Store saves a statement result under the key, resetting any prior state.
func (s *ResultStore) Store(name string, response *adapter.Response, table []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = &resultEntry{value: &StoredResult{Response: response, Table: table}}
}

// StoreRaw saves an arbitrary value under the key.
func (s *ResultStore) StoreRaw(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = &resultEntry{value: &StoredResult{Raw: value}}
}

// Load returns the stored result for the key, consuming it. A key that was
// never stored returns (nil, nil). Loading the same key twice fails, except
// for the main result slot which stays readable for the whole unit.
func (s *ResultStore) Load(name string) (*StoredResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return nil, nil
	}
	if e.state == resultConsumed {
		return nil, &ResultAlreadyLoadedError{Name: name}
	}
	if name != MainResultKey {
		e.state = resultConsumed
	}
	return e.value, nil
}

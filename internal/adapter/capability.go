package adapter

import (
	"fmt"
	"sort"
)

// knownMethods is the closed set of adapter methods a template may call.
var knownMethods = map[string]struct{}{
	"exec":                    {},
	"query":                   {},
	"get_relation":            {},
	"get_columns_in_relation": {},
	"date_function":           {},
	"submit_python_job":       {},
	"type":                    {},
	"dispatch":                {},
}

// CapabilityTable is the explicit method table built once from an adapter's
// declared available-method set. Building the table validates every declared
// name, turning a render-time failure mode into a construction-time check.
type CapabilityTable struct {
	available map[string]struct{}
	stubbed   map[string]struct{}
}

// NewCapabilityTable validates the adapter's declared method sets and
// returns the lookup table used by the database wrapper.
func NewCapabilityTable(a Adapter) (*CapabilityTable, error) {
	t := &CapabilityTable{
		available: make(map[string]struct{}),
		stubbed:   make(map[string]struct{}),
	}
	for _, name := range a.Available() {
		if _, ok := knownMethods[name]; !ok {
			return nil, fmt.Errorf("adapter %s declares unknown method %q", a.Type(), name)
		}
		t.available[name] = struct{}{}
	}
	for _, name := range a.ParseReplacements() {
		if _, ok := t.available[name]; !ok {
			return nil, fmt.Errorf(
				"adapter %s declares parse replacement %q for a method it does not make available",
				a.Type(), name)
		}
		t.stubbed[name] = struct{}{}
	}
	return t, nil
}

// Has reports whether the method is available to templates.
func (t *CapabilityTable) Has(name string) bool {
	_, ok := t.available[name]
	return ok
}

// StubbedAtParse reports whether the method is replaced by a stub at parse
// time.
func (t *CapabilityTable) StubbedAtParse(name string) bool {
	_, ok := t.stubbed[name]
	return ok
}

// Methods returns the sorted available method names.
func (t *CapabilityTable) Methods() []string {
	out := make([]string, 0, len(t.available))
	for name := range t.available {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

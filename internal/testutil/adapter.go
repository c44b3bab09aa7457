package testutil

import (
	"context"
	"fmt"

	"github.com/stratum-data/stratum/internal/adapter"
	"github.com/stratum-data/stratum/internal/config"
	"github.com/stratum-data/stratum/internal/relation"
)

// FakeAdapter is an in-memory adapter for resolver and context tests.
type FakeAdapter struct {
	// AdapterType is returned from Type; defaults to "duckdb".
	AdapterType string

	// Parents extends TypeNames beyond the concrete type.
	Parents []string

	// Relations marks existing relations by "database.schema.identifier".
	Relations map[string]bool

	// Columns is returned from GetColumnsInRelation.
	Columns []relation.Column

	// ExecResponses records executed statements and their canned response.
	Executed []string
	Response *adapter.Response

	// PythonJobs records submitted python jobs.
	PythonJobs []string
}

var _ adapter.Adapter = (*FakeAdapter)(nil)

func (f *FakeAdapter) Type() string {
	if f.AdapterType == "" {
		return "duckdb"
	}
	return f.AdapterType
}

func (f *FakeAdapter) TypeNames() []string {
	return append([]string{f.Type()}, f.Parents...)
}

func (f *FakeAdapter) Available() []string {
	return []string{"exec", "query", "get_relation", "get_columns_in_relation", "date_function", "submit_python_job", "type", "dispatch"}
}

func (f *FakeAdapter) ParseReplacements() []string {
	return []string{"exec", "query", "get_relation", "get_columns_in_relation"}
}

func (f *FakeAdapter) Connect(context.Context, config.TargetConfig) error { return nil }

func (f *FakeAdapter) Close() error { return nil }

func (f *FakeAdapter) Exec(_ context.Context, sqlStr string) (*adapter.Response, error) {
	f.Executed = append(f.Executed, sqlStr)
	if f.Response != nil {
		return f.Response, nil
	}
	return &adapter.Response{Message: "OK", Code: "SUCCESS"}, nil
}

func (f *FakeAdapter) Query(_ context.Context, sqlStr string) (*adapter.Rows, error) {
	f.Executed = append(f.Executed, sqlStr)
	return nil, nil
}

func (f *FakeAdapter) GetRelation(_ context.Context, database, schema, identifier string) (bool, error) {
	key := fmt.Sprintf("%s.%s.%s", database, schema, identifier)
	return f.Relations[key], nil
}

func (f *FakeAdapter) GetColumnsInRelation(context.Context, *relation.Relation) ([]relation.Column, error) {
	return f.Columns, nil
}

func (f *FakeAdapter) DateFunction() string { return "now()" }

func (f *FakeAdapter) SubmitPythonJob(_ context.Context, _ map[string]any, compiledCode string) (*adapter.Response, error) {
	f.PythonJobs = append(f.PythonJobs, compiledCode)
	return &adapter.Response{Message: "OK", Code: "PYTHON"}, nil
}

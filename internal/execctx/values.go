package execctx

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/stratum-data/stratum/internal/adapter"
	"github.com/stratum-data/stratum/internal/relation"
)

// relationValue exposes a resolved relation to templates. Its string form
// is the fully rendered, quoted (and possibly filtered) SQL reference.
type relationValue struct {
	rel *relation.Relation
}

var _ starlark.HasAttrs = (*relationValue)(nil)

func newRelationValue(rel *relation.Relation) *relationValue {
	return &relationValue{rel: rel}
}

func (v *relationValue) String() string        { return v.rel.String() }
func (v *relationValue) Type() string          { return "relation" }
func (v *relationValue) Freeze()               {}
func (v *relationValue) Truth() starlark.Bool  { return starlark.True }
func (v *relationValue) Hash() (uint32, error) { return starlark.String(v.rel.String()).Hash() }

func (v *relationValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "database":
		return starlark.String(v.rel.Database), nil
	case "schema":
		return starlark.String(v.rel.Schema), nil
	case "identifier", "table":
		return starlark.String(v.rel.Identifier), nil
	case "name":
		return starlark.String(v.rel.RenderedName()), nil
	case "is_cte":
		return starlark.Bool(v.rel.Ephemeral), nil
	}
	return nil, nil
}

func (v *relationValue) AttrNames() []string {
	return []string{"database", "identifier", "is_cte", "name", "schema", "table"}
}

// responseValue exposes an adapter response to templates.
type responseValue struct {
	resp *adapter.Response
}

var _ starlark.HasAttrs = (*responseValue)(nil)

func (v *responseValue) String() string {
	return fmt.Sprintf("response(%s)", v.resp.Message)
}
func (v *responseValue) Type() string          { return "adapter_response" }
func (v *responseValue) Freeze()               {}
func (v *responseValue) Truth() starlark.Bool  { return starlark.True }
func (v *responseValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: adapter_response") }

func (v *responseValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "message":
		return starlark.String(v.resp.Message), nil
	case "code":
		return starlark.String(v.resp.Code), nil
	case "rows_affected":
		return starlark.MakeInt64(v.resp.RowsAffected), nil
	}
	return nil, nil
}

func (v *responseValue) AttrNames() []string {
	return []string{"code", "message", "rows_affected"}
}

// resultValue exposes one stored statement result to templates.
type resultValue struct {
	result *StoredResult
}

var _ starlark.HasAttrs = (*resultValue)(nil)

func (v *resultValue) String() string        { return "stored_result" }
func (v *resultValue) Type() string          { return "stored_result" }
func (v *resultValue) Freeze()               {}
func (v *resultValue) Truth() starlark.Bool  { return starlark.True }
func (v *resultValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: stored_result") }

func (v *resultValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "response":
		if v.result.Response == nil {
			return starlark.None, nil
		}
		return &responseValue{resp: v.result.Response}, nil
	case "table":
		rows := make([]any, len(v.result.Table))
		for i, row := range v.result.Table {
			rows[i] = row
		}
		return GoToStarlark(rows)
	case "data":
		return GoToStarlark(v.result.Raw)
	}
	return nil, nil
}

func (v *resultValue) AttrNames() []string {
	return []string{"data", "response", "table"}
}

// validatorValue is a one-of-these-values check produced by validation.any.
type validatorValue struct {
	choices []any
}

var _ starlark.Callable = (*validatorValue)(nil)

func (v *validatorValue) String() string        { return "validation.any" }
func (v *validatorValue) Type() string          { return "validator" }
func (v *validatorValue) Freeze()               {}
func (v *validatorValue) Truth() starlark.Bool  { return starlark.True }
func (v *validatorValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: validator") }
func (v *validatorValue) Name() string          { return "validation.any" }

func (v *validatorValue) check(value any) error {
	for _, c := range v.choices {
		if c == value {
			return nil
		}
	}
	return &ValidationError{Value: value, Expected: v.choices}
}

func (v *validatorValue) CallInternal(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var value starlark.Value
	if err := starlark.UnpackPositionalArgs("validator", args, kwargs, 1, &value); err != nil {
		return nil, err
	}
	gv, err := ToGo(value)
	if err != nil {
		return nil, err
	}
	if err := v.check(gv); err != nil {
		return nil, err
	}
	return starlark.None, nil
}

// rowsToTable drains an adapter row set into the template-facing shape, a
// list of column-keyed maps.
func rowsToTable(rows *adapter.Rows) ([]map[string]any, error) {
	if rows == nil || rows.Rows == nil {
		return nil, nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return out, nil
}

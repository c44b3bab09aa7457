package execctx

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/stratum-data/stratum/internal/resolve"
)

// configValue is the "config" global: callable for inline declarations and
// carrying get/require lookups as attributes.
type configValue struct {
	ctx *Context
}

var (
	_ starlark.Callable = (*configValue)(nil)
	_ starlark.HasAttrs = (*configValue)(nil)
)

func (v *configValue) String() string        { return "config" }
func (v *configValue) Type() string          { return "config" }
func (v *configValue) Freeze()               {}
func (v *configValue) Truth() starlark.Bool  { return starlark.True }
func (v *configValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: config") }
func (v *configValue) Name() string          { return "config" }

func (v *configValue) CallInternal(_ *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	positional := make([]any, len(args))
	for i, a := range args {
		gv, err := ToGo(a)
		if err != nil {
			return nil, err
		}
		positional[i] = gv
	}
	kw, err := kwargsToGo(kwargs)
	if err != nil {
		return nil, err
	}
	if err := v.ctx.configAcc.Call(positional, kw); err != nil {
		return nil, err
	}
	return starlark.String(""), nil
}

func (v *configValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "get":
		return starlark.NewBuiltin("config.get", v.get), nil
	case "require":
		return starlark.NewBuiltin("config.require", v.require), nil
	case "persist_relation_docs":
		return starlark.NewBuiltin("config.persist_relation_docs", v.persistRelationDocs), nil
	case "persist_column_docs":
		return starlark.NewBuiltin("config.persist_column_docs", v.persistColumnDocs), nil
	}
	return nil, nil
}

func (v *configValue) AttrNames() []string {
	return []string{"get", "persist_column_docs", "persist_relation_docs", "require"}
}

func (v *configValue) get(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var def, validator starlark.Value
	if err := starlark.UnpackArgs("config.get", args, kwargs, "name", &name, "default?", &def, "validator?", &validator); err != nil {
		return nil, err
	}
	defGo, err := ToGo(def)
	if err != nil {
		return nil, err
	}
	value, err := v.ctx.configAcc.Get(name, defGo, validatorFromValue(validator))
	if err != nil {
		return nil, err
	}
	return GoToStarlark(value)
}

func (v *configValue) require(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var validator starlark.Value
	if err := starlark.UnpackArgs("config.require", args, kwargs, "name", &name, "validator?", &validator); err != nil {
		return nil, err
	}
	value, err := v.ctx.configAcc.Require(name, validatorFromValue(validator))
	if err != nil {
		return nil, err
	}
	return GoToStarlark(value)
}

func (v *configValue) persistRelationDocs(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("config.persist_relation_docs", args, kwargs); err != nil {
		return nil, err
	}
	enabled, err := resolve.PersistRelationDocs(v.ctx.node)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(enabled), nil
}

func (v *configValue) persistColumnDocs(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("config.persist_column_docs", args, kwargs); err != nil {
		return nil, err
	}
	enabled, err := resolve.PersistColumnDocs(v.ctx.node)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(enabled), nil
}

// validatorFromValue adapts a template-supplied validator: None means no
// validation, validation.any products check membership, any other callable
// is invoked and rejects by raising.
func validatorFromValue(v starlark.Value) resolve.Validator {
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil
	case *validatorValue:
		return val.check
	case starlark.Callable:
		return func(value any) error {
			sv, err := GoToStarlark(value)
			if err != nil {
				return err
			}
			thread := &starlark.Thread{Name: "validator"}
			result, err := starlark.Call(thread, val, starlark.Tuple{sv}, nil)
			if err != nil {
				return err
			}
			if b, ok := result.(starlark.Bool); ok && !bool(b) {
				return fmt.Errorf("value %v rejected by validator %s", value, val.Name())
			}
			return nil
		}
	default:
		return func(any) error {
			return fmt.Errorf("validator must be callable, got %s", v.Type())
		}
	}
}

// adapterValue is the "adapter" global: the database wrapper surface with
// only the methods the adapter marks available.
type adapterValue struct {
	ctx *Context
}

var _ starlark.HasAttrs = (*adapterValue)(nil)

func (v *adapterValue) String() string        { return "adapter:" + v.ctx.db.Type() }
func (v *adapterValue) Type() string          { return "adapter" }
func (v *adapterValue) Freeze()               {}
func (v *adapterValue) Truth() starlark.Bool  { return starlark.True }
func (v *adapterValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: adapter") }

func (v *adapterValue) Attr(name string) (starlark.Value, error) {
	if !v.ctx.db.Has(name) {
		return nil, nil
	}
	switch name {
	case "type":
		return starlark.NewBuiltin("adapter.type", v.typeName), nil
	case "dispatch":
		return starlark.NewBuiltin("adapter.dispatch", v.dispatch), nil
	case "exec":
		return starlark.NewBuiltin("adapter.exec", v.exec), nil
	case "query":
		return starlark.NewBuiltin("adapter.query", v.query), nil
	case "get_relation":
		return starlark.NewBuiltin("adapter.get_relation", v.getRelation), nil
	case "get_columns_in_relation":
		return starlark.NewBuiltin("adapter.get_columns_in_relation", v.getColumnsInRelation), nil
	case "date_function":
		return starlark.NewBuiltin("adapter.date_function", v.dateFunction), nil
	case "submit_python_job":
		return v.ctx.submitPythonJobBuiltin(), nil
	}
	return nil, nil
}

func (v *adapterValue) AttrNames() []string {
	all := []string{"date_function", "dispatch", "exec", "get_columns_in_relation", "get_relation", "query", "submit_python_job", "type"}
	out := all[:0]
	for _, name := range all {
		if v.ctx.db.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

func (v *adapterValue) typeName(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("adapter.type", args, kwargs); err != nil {
		return nil, err
	}
	return starlark.String(v.ctx.db.Type()), nil
}

func (v *adapterValue) dispatch(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, namespace string
	if err := starlark.UnpackArgs("adapter.dispatch", args, kwargs, "macro_name", &name, "macro_namespace?", &namespace); err != nil {
		return nil, err
	}
	m, err := v.ctx.db.Dispatch(name, namespace)
	if err != nil {
		return nil, err
	}
	return m.Fn, nil
}

func (v *adapterValue) exec(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sqlStr string
	if err := starlark.UnpackArgs("adapter.exec", args, kwargs, "sql", &sqlStr); err != nil {
		return nil, err
	}
	resp, err := v.ctx.db.Exec(context.Background(), sqlStr)
	if err != nil {
		return nil, err
	}
	return &responseValue{resp: resp}, nil
}

func (v *adapterValue) query(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var sqlStr string
	if err := starlark.UnpackArgs("adapter.query", args, kwargs, "sql", &sqlStr); err != nil {
		return nil, err
	}
	rows, err := v.ctx.db.Query(context.Background(), sqlStr)
	if err != nil {
		return nil, err
	}
	table, err := rowsToTable(rows)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(table))
	for i, row := range table {
		out[i] = row
	}
	return GoToStarlark(out)
}

func (v *adapterValue) getRelation(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var database, schema, identifier string
	if err := starlark.UnpackArgs("adapter.get_relation", args, kwargs, "database", &database, "schema", &schema, "identifier", &identifier); err != nil {
		return nil, err
	}
	exists, err := v.ctx.db.GetRelation(context.Background(), database, schema, identifier)
	if err != nil {
		return nil, err
	}
	if !exists {
		return starlark.None, nil
	}
	rel := v.ctx.db.CreateRelation(database, schema, identifier, v.ctx.node.Quoting)
	return newRelationValue(rel), nil
}

func (v *adapterValue) getColumnsInRelation(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var relArg starlark.Value
	if err := starlark.UnpackArgs("adapter.get_columns_in_relation", args, kwargs, "relation", &relArg); err != nil {
		return nil, err
	}
	rv, ok := relArg.(*relationValue)
	if !ok {
		return nil, fmt.Errorf("adapter.get_columns_in_relation: expected a relation, got %s", relArg.Type())
	}
	cols, err := v.ctx.db.GetColumnsInRelation(context.Background(), rv.rel)
	if err != nil {
		return nil, err
	}
	out := make([]starlark.Value, len(cols))
	for i, col := range cols {
		out[i] = starlarkstruct.FromStringDict(starlark.String("column"), starlark.StringDict{
			"name":      starlark.String(col.Name),
			"data_type": starlark.String(col.DataType),
			"quoted":    starlark.String(col.Quoted()),
		})
	}
	return starlark.NewList(out), nil
}

func (v *adapterValue) dateFunction(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs("adapter.date_function", args, kwargs); err != nil {
		return nil, err
	}
	return starlark.String(v.ctx.db.Adapter().DateFunction()), nil
}

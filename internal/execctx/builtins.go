package execctx

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/stratum-data/stratum/internal/adapter"
	"github.com/stratum-data/stratum/internal/relation"
	"github.com/stratum-data/stratum/internal/resolve"
)

// refBuiltin implements ref("name") / ref("package", "name", version=...).
func (c *Context) refBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("ref", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		positional, err := stringArgs("ref", args)
		if err != nil {
			return nil, err
		}
		version := ""
		for _, kv := range kwargs {
			key, _ := kv[0].(starlark.String)
			switch string(key) {
			case "version", "v":
				version = argString(kv[1])
			default:
				return nil, fmt.Errorf("ref: unexpected keyword argument %q", key)
			}
		}
		rel, err := resolve.CallRef(c.refs, c.node, positional, version)
		if err != nil {
			return nil, err
		}
		return newRelationValue(rel), nil
	})
}

// sourceBuiltin implements source("source_name", "table_name").
func (c *Context) sourceBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("source", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("source: unexpected keyword arguments")
		}
		positional, err := stringArgs("source", args)
		if err != nil {
			return nil, err
		}
		rel, err := resolve.CallSource(c.sources, c.node, positional)
		if err != nil {
			return nil, err
		}
		return newRelationValue(rel), nil
	})
}

// metricBuiltin implements metric("name") / metric("package", "name").
func (c *Context) metricBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("metric", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if len(kwargs) > 0 {
			return nil, fmt.Errorf("metric: unexpected keyword arguments")
		}
		positional, err := stringArgs("metric", args)
		if err != nil {
			return nil, err
		}
		ref, err := resolve.CallMetric(c.metrics, c.node, positional)
		if err != nil {
			return nil, err
		}
		return GoToStarlark(ref)
	})
}

// varBuiltin implements var("name", default).
func (c *Context) varBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("var", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		var def starlark.Value
		if err := starlark.UnpackArgs("var", args, kwargs, "name", &name, "default?", &def); err != nil {
			return nil, err
		}
		defGo, err := ToGo(def)
		if err != nil {
			return nil, err
		}
		value, err := c.vars.Get(name, defGo)
		if err != nil {
			return nil, err
		}
		return GoToStarlark(value)
	})
}

// envVarBuiltin implements env_var("NAME", default).
func (c *Context) envVarBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("env_var", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		var def starlark.Value
		if err := starlark.UnpackArgs("env_var", args, kwargs, "name", &name, "default?", &def); err != nil {
			return nil, err
		}
		var defPtr *string
		if def != nil {
			if _, isNone := def.(starlark.NoneType); !isNone {
				s := argString(def)
				defPtr = &s
			}
		}
		value, err := c.envVar(name, defPtr)
		if err != nil {
			return nil, err
		}
		return starlark.String(value), nil
	})
}

// loadResultBuiltin implements load_result("name").
func (c *Context) loadResultBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("load_result", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackArgs("load_result", args, kwargs, "name", &name); err != nil {
			return nil, err
		}
		result, err := c.results.Load(name)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return starlark.None, nil
		}
		return &resultValue{result: result}, nil
	})
}

// storeResultBuiltin implements store_result("name", response, agate_table).
func (c *Context) storeResultBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("store_result", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		var respArg, tableArg starlark.Value
		if err := starlark.UnpackArgs("store_result", args, kwargs, "name", &name, "response?", &respArg, "agate_table?", &tableArg); err != nil {
			return nil, err
		}
		resp, err := responseFromValue(respArg)
		if err != nil {
			return nil, err
		}
		table, err := tableFromValue(tableArg)
		if err != nil {
			return nil, err
		}
		c.results.Store(name, resp, table)
		return starlark.String(""), nil
	})
}

// storeRawResultBuiltin implements store_raw_result with the response
// fields spelled out.
func (c *Context) storeRawResultBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("store_raw_result", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name, message, code string
		var rowsAffected int64
		var tableArg starlark.Value
		if err := starlark.UnpackArgs("store_raw_result", args, kwargs,
			"name", &name, "message?", &message, "code?", &code,
			"rows_affected?", &rowsAffected, "agate_table?", &tableArg); err != nil {
			return nil, err
		}
		table, err := tableFromValue(tableArg)
		if err != nil {
			return nil, err
		}
		c.results.Store(name, &adapter.Response{Message: message, Code: code, RowsAffected: rowsAffected}, table)
		return starlark.String(""), nil
	})
}

// submitPythonJobBuiltin guards python submission to materializations only.
func (c *Context) submitPythonJobBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("submit_python_job", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var modelArg starlark.Value
		var compiledCode string
		if err := starlark.UnpackArgs("submit_python_job", args, kwargs, "parsed_model", &modelArg, "compiled_code", &compiledCode); err != nil {
			return nil, err
		}
		if !c.allowPythonJob {
			return nil, &PythonJobError{UniqueID: c.node.UniqueID}
		}
		modelGo, err := ToGo(modelArg)
		if err != nil {
			return nil, err
		}
		parsedModel, _ := modelGo.(map[string]any)
		resp, err := c.db.Adapter().SubmitPythonJob(context.Background(), parsedModel, compiledCode)
		if err != nil {
			return nil, err
		}
		return &responseValue{resp: resp}, nil
	})
}

// sqlNowBuiltin renders the adapter's current-timestamp SQL expression.
func (c *Context) sqlNowBuiltin() *starlark.Builtin {
	return starlark.NewBuiltin("sql_now", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackArgs("sql_now", args, kwargs); err != nil {
			return nil, err
		}
		return starlark.String(c.db.Adapter().DateFunction()), nil
	})
}

// apiModule exposes relation and column factories to templates.
func (c *Context) apiModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "api",
		Members: starlark.StringDict{
			"Relation": &starlarkstruct.Module{
				Name: "Relation",
				Members: starlark.StringDict{
					"create": starlark.NewBuiltin("create", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
						var database, schema, identifier string
						if err := starlark.UnpackArgs("create", args, kwargs,
							"database?", &database, "schema?", &schema, "identifier?", &identifier); err != nil {
							return nil, err
						}
						rel := c.db.CreateRelation(database, schema, identifier, c.node.Quoting)
						return newRelationValue(rel), nil
					}),
				},
			},
			"Column": &starlarkstruct.Module{
				Name: "Column",
				Members: starlark.StringDict{
					"create": starlark.NewBuiltin("create", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
						var name, dataType string
						if err := starlark.UnpackArgs("create", args, kwargs, "name", &name, "label_or_dtype", &dataType); err != nil {
							return nil, err
						}
						col := relation.NewColumn(name, dataType)
						return starlarkstruct.FromStringDict(starlark.String("column"), starlark.StringDict{
							"name":      starlark.String(col.Name),
							"data_type": starlark.String(col.DataType),
							"quoted":    starlark.String(col.Quoted()),
						}), nil
					}),
					"translate_type": starlark.NewBuiltin("translate_type", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
						var dataType string
						if err := starlark.UnpackArgs("translate_type", args, kwargs, "dtype", &dataType); err != nil {
							return nil, err
						}
						return starlark.String(relation.TranslateType(dataType)), nil
					}),
				},
			},
		},
	}
}

// exceptionsModule exposes template-raisable errors.
func (c *Context) exceptionsModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "exceptions",
		Members: starlark.StringDict{
			"raise_compiler_error": starlark.NewBuiltin("raise_compiler_error", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var msg string
				if err := starlark.UnpackArgs("raise_compiler_error", args, kwargs, "msg", &msg); err != nil {
					return nil, err
				}
				return nil, &CompilerError{Message: msg, UniqueID: c.node.UniqueID}
			}),
			"warn": starlark.NewBuiltin("warn", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var msg string
				if err := starlark.UnpackArgs("warn", args, kwargs, "msg", &msg); err != nil {
					return nil, err
				}
				c.logger.Warn("template warning", "node", c.node.UniqueID, "msg", msg)
				return starlark.String(msg), nil
			}),
		},
	}
}

// validationModule exposes validator constructors for config lookups.
func validationModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "validation",
		Members: starlark.StringDict{
			"any": starlark.NewBuiltin("any", func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				if len(kwargs) > 0 {
					return nil, fmt.Errorf("validation.any: unexpected keyword arguments")
				}
				choices := make([]any, len(args))
				for i, a := range args {
					gv, err := ToGo(a)
					if err != nil {
						return nil, err
					}
					choices[i] = gv
				}
				return &validatorValue{choices: choices}, nil
			}),
		},
	}
}

// stringArgs collects all-positional string arguments.
func stringArgs(fn string, args starlark.Tuple) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, ok := a.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d must be a string, got %s", fn, i+1, a.Type())
		}
		out[i] = string(s)
	}
	return out, nil
}

// argString renders any starlark value as its plain string form.
func argString(v starlark.Value) string {
	if s, ok := v.(starlark.String); ok {
		return string(s)
	}
	return v.String()
}

// responseFromValue accepts an adapter response value or a bare message.
func responseFromValue(v starlark.Value) (*adapter.Response, error) {
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil, nil
	case *responseValue:
		return val.resp, nil
	case starlark.String:
		return &adapter.Response{Message: string(val)}, nil
	default:
		return nil, fmt.Errorf("store_result: response must be an adapter response or string, got %s", v.Type())
	}
}

// tableFromValue converts a template table argument to row maps.
func tableFromValue(v starlark.Value) ([]map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	if _, isNone := v.(starlark.NoneType); isNone {
		return nil, nil
	}
	gv, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	rows, ok := gv.([]any)
	if !ok {
		return nil, fmt.Errorf("store_result: agate_table must be a list of row mappings, got %T", gv)
	}
	out := make([]map[string]any, 0, len(rows))
	for i, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("store_result: table row %d must be a mapping, got %T", i, raw)
		}
		out = append(out, row)
	}
	return out, nil
}

package relation

import "strings"

// Column describes a single column of a relation.
type Column struct {
	Name     string
	DataType string
}

// NewColumn builds a column handle from a name and a raw data type.
func NewColumn(name, dataType string) Column {
	return Column{Name: name, DataType: dataType}
}

// Quoted returns the double-quoted column name.
func (c Column) Quoted() string {
	return `"` + strings.ReplaceAll(c.Name, `"`, `""`) + `"`
}

// typeLabels maps generic type names to their canonical SQL spellings.
var typeLabels = map[string]string{
	"string":  "text",
	"str":     "text",
	"bool":    "boolean",
	"int":     "integer",
	"int64":   "bigint",
	"float":   "float8",
	"float64": "float8",
	"numeric": "numeric",
}

// TranslateType maps a generic data type name to the adapter-facing SQL
// type. Unknown types pass through unchanged.
func TranslateType(dataType string) string {
	if t, ok := typeLabels[strings.ToLower(dataType)]; ok {
		return t
	}
	return dataType
}

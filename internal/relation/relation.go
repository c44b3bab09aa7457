// Package relation provides relation handles for physical and virtual
// database objects. A relation carries the quoting policy it was created
// with, plus optional row-limit and event-time filtering applied when the
// relation is rendered into SQL.
package relation

import (
	"fmt"
	"strings"
)

// EphemeralPrefix is prepended to the identifier of relations standing in
// for ephemeral (inlined) models.
const EphemeralPrefix = "__stratum__cte__"

// QuotePolicy controls which components of a relation name are quoted
// when rendered.
type QuotePolicy struct {
	Database   bool `koanf:"database" yaml:"database"`
	Schema     bool `koanf:"schema" yaml:"schema"`
	Identifier bool `koanf:"identifier" yaml:"identifier"`
	Column     bool `koanf:"column" yaml:"column"`
}

// Merge combines p with an override policy. A component is quoted when
// either policy asks for it.
func (p QuotePolicy) Merge(override QuotePolicy) QuotePolicy {
	return QuotePolicy{
		Database:   p.Database || override.Database,
		Schema:     p.Schema || override.Schema,
		Identifier: p.Identifier || override.Identifier,
		Column:     p.Column || override.Column,
	}
}

// Relation identifies a queryable table, view or inlined CTE stand-in.
type Relation struct {
	Database   string
	Schema     string
	Identifier string

	Quote QuotePolicy

	// Ephemeral marks a relation standing in for an inlined model. Only the
	// identifier is rendered, carrying the ephemeral prefix.
	Ephemeral bool

	// Limit, when non-nil, wraps the rendered relation in a subquery with a
	// row limit. A limit of 0 yields an empty result shape.
	Limit *int

	// EventTimeFilter, when non-nil, wraps the rendered relation in a
	// subquery restricted to the half-open [Start, End) window.
	EventTimeFilter *EventTimeFilter
}

// Create builds a relation from its three name components and a quote policy.
func Create(database, schema, identifier string, quote QuotePolicy) *Relation {
	return &Relation{
		Database:   database,
		Schema:     schema,
		Identifier: identifier,
		Quote:      quote,
	}
}

// CreateEphemeral builds the prefixed alias relation for an ephemeral model.
func CreateEphemeral(identifier string) *Relation {
	return &Relation{
		Identifier: EphemeralPrefix + identifier,
		Ephemeral:  true,
	}
}

// AddEphemeralPrefix returns the CTE alias used for an inlined identifier.
func AddEphemeralPrefix(identifier string) string {
	return EphemeralPrefix + identifier
}

// WithLimit returns a copy of r carrying the given row limit.
func (r *Relation) WithLimit(limit *int) *Relation {
	out := *r
	out.Limit = limit
	return &out
}

// WithEventTimeFilter returns a copy of r carrying the given filter.
func (r *Relation) WithEventTimeFilter(f *EventTimeFilter) *Relation {
	out := *r
	out.EventTimeFilter = f
	return &out
}

// RenderedName returns the dotted, optionally quoted relation name without
// any limit or filter wrapping.
func (r *Relation) RenderedName() string {
	if r.Ephemeral {
		return r.Identifier
	}
	var parts []string
	if r.Database != "" {
		parts = append(parts, quoteIf(r.Database, r.Quote.Database))
	}
	if r.Schema != "" {
		parts = append(parts, quoteIf(r.Schema, r.Quote.Schema))
	}
	parts = append(parts, quoteIf(r.Identifier, r.Quote.Identifier))
	return strings.Join(parts, ".")
}

// String renders the relation for interpolation into SQL, applying the
// row limit and event-time filter as a wrapping subquery when present.
func (r *Relation) String() string {
	name := r.RenderedName()
	if r.Limit == nil && r.EventTimeFilter == nil {
		return name
	}

	var sb strings.Builder
	sb.WriteString("(select * from ")
	sb.WriteString(name)
	if f := r.EventTimeFilter; f != nil {
		fmt.Fprintf(&sb, " where %s >= '%s' and %s < '%s'",
			f.FieldName, f.Start.UTC().Format(timestampLayout),
			f.FieldName, f.End.UTC().Format(timestampLayout))
	}
	if r.Limit != nil {
		if *r.Limit == 0 {
			// Preserve the column shape while returning no rows.
			if r.EventTimeFilter != nil {
				sb.WriteString(" and false limit 0")
			} else {
				sb.WriteString(" where false limit 0")
			}
		} else {
			fmt.Fprintf(&sb, " limit %d", *r.Limit)
		}
	}
	sb.WriteString(")")
	return sb.String()
}

const timestampLayout = "2006-01-02 15:04:05"

func quoteIf(s string, quote bool) string {
	if quote {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

package relation

import "time"

// EventTimeFilter restricts reads of a relation to a half-open
// [Start, End) window on the named event-time column. The value is
// immutable once constructed and never persisted.
type EventTimeFilter struct {
	FieldName string
	Start     time.Time
	End       time.Time
}

package relation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderedName(t *testing.T) {
	tests := []struct {
		name     string
		relation *Relation
		want     string
	}{
		{
			name:     "unquoted",
			relation: Create("analytics", "main", "orders", QuotePolicy{}),
			want:     "analytics.main.orders",
		},
		{
			name:     "quoted identifier only",
			relation: Create("analytics", "main", "orders", QuotePolicy{Identifier: true}),
			want:     `analytics.main."orders"`,
		},
		{
			name:     "fully quoted",
			relation: Create("analytics", "main", "orders", QuotePolicy{Database: true, Schema: true, Identifier: true}),
			want:     `"analytics"."main"."orders"`,
		},
		{
			name:     "no database",
			relation: Create("", "main", "orders", QuotePolicy{}),
			want:     "main.orders",
		},
		{
			name:     "embedded quote escaped",
			relation: Create("", "", `or"ders`, QuotePolicy{Identifier: true}),
			want:     `"or""ders"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.relation.RenderedName())
		})
	}
}

func TestCreateEphemeral(t *testing.T) {
	rel := CreateEphemeral("orders")
	assert.True(t, rel.Ephemeral)
	assert.Equal(t, "__stratum__cte__orders", rel.String())
}

func TestStringWithLimit(t *testing.T) {
	limit := 5
	rel := Create("db", "s", "t", QuotePolicy{}).WithLimit(&limit)
	assert.Equal(t, "(select * from db.s.t limit 5)", rel.String())
}

func TestStringWithZeroLimit(t *testing.T) {
	zero := 0
	rel := Create("db", "s", "t", QuotePolicy{}).WithLimit(&zero)
	assert.Equal(t, "(select * from db.s.t where false limit 0)", rel.String())
}

func TestStringWithEventTimeFilter(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	rel := Create("db", "s", "t", QuotePolicy{}).WithEventTimeFilter(&EventTimeFilter{
		FieldName: "created_at",
		Start:     start,
		End:       end,
	})
	assert.Equal(t,
		"(select * from db.s.t where created_at >= '2025-01-01 00:00:00' and created_at < '2025-01-02 00:00:00')",
		rel.String())
}

func TestStringWithFilterAndZeroLimit(t *testing.T) {
	zero := 0
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	rel := Create("db", "s", "t", QuotePolicy{}).
		WithEventTimeFilter(&EventTimeFilter{FieldName: "ts", Start: start, End: end}).
		WithLimit(&zero)
	got := rel.String()
	require.Contains(t, got, "where ts >= ")
	assert.Contains(t, got, "and false limit 0")
}

func TestMerge(t *testing.T) {
	base := QuotePolicy{Database: true}
	override := QuotePolicy{Identifier: true}
	merged := base.Merge(override)
	assert.True(t, merged.Database)
	assert.True(t, merged.Identifier)
	assert.False(t, merged.Schema)
}

func TestWithLimitCopies(t *testing.T) {
	limit := 3
	base := Create("db", "s", "t", QuotePolicy{})
	limited := base.WithLimit(&limit)
	assert.Nil(t, base.Limit)
	require.NotNil(t, limited.Limit)
	assert.Equal(t, 3, *limited.Limit)
}

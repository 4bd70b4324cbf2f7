package query

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
)

func TestCompile_InequalityDrivesOrdering(t *testing.T) {
	plan, err := Compile([]RawFilter{
		{Field: "CITY", Operator: "EQ", Value: "London"},
		{Field: "MAX_ATTENDEES", Operator: "GT", Value: "10"},
	})
	require.NoError(t, err)

	assert.Equal(t, []Filter{
		{Field: "city", Operator: database.OpEqual, Value: "London"},
		{Field: "maxAttendees", Operator: database.OpGreaterThan, Value: 10},
	}, plan.Filters)
	assert.Equal(t, "maxAttendees", plan.InequalityField)
	assert.Equal(t, []string{"maxAttendees", "name"}, plan.Orders)
}

func TestCompile_SecondInequalityFieldRejected(t *testing.T) {
	_, err := Compile([]RawFilter{
		{Field: "CITY", Operator: "EQ", Value: "London"},
		{Field: "MAX_ATTENDEES", Operator: "GT", Value: "10"},
		{Field: "MONTH", Operator: "GT", Value: "3"},
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrBadRequest))
	assert.Contains(t, err.Error(), "only one field")
}

func TestCompile_RangeOnOneField(t *testing.T) {
	plan, err := Compile([]RawFilter{
		{Field: "MONTH", Operator: "GTEQ", Value: "3"},
		{Field: "MONTH", Operator: "LT", Value: "6"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "name"}, plan.Orders)
}

func TestCompile_NoFilters(t *testing.T) {
	plan, err := Compile(nil)
	require.NoError(t, err)
	assert.Empty(t, plan.Filters)
	assert.Equal(t, []string{"name"}, plan.Orders)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		filter RawFilter
	}{
		{"unknown field", RawFilter{Field: "COUNTRY", Operator: "EQ", Value: "UK"}},
		{"lower case field", RawFilter{Field: "city", Operator: "EQ", Value: "London"}},
		{"unknown operator", RawFilter{Field: "CITY", Operator: "LIKE", Value: "Lon"}},
		{"non integer month", RawFilter{Field: "MONTH", Operator: "EQ", Value: "June"}},
		{"non integer attendees", RawFilter{Field: "MAX_ATTENDEES", Operator: "GT", Value: "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]RawFilter{tt.filter})
			require.Error(t, err)
			assert.Equal(t, errors.KindBadRequest, errors.KindOf(err))
		})
	}
}

func TestPlan_Query(t *testing.T) {
	plan, err := Compile([]RawFilter{
		{Field: "TOPIC", Operator: "EQ", Value: "Go"},
		{Field: "MONTH", Operator: "NE", Value: " 7 "},
	})
	require.NoError(t, err)

	q := plan.Query()
	assert.Equal(t, model.KindConference, q.Kind)
	assert.Equal(t, []database.Filter{
		{Property: "topics", Op: database.OpEqual, Value: "Go"},
		{Property: "month", Op: database.OpNotEqual, Value: 7},
	}, q.Filters)
	assert.Equal(t, []database.Order{{Property: "month"}, {Property: "name"}}, q.Orders)
}

func TestCompile_Properties(t *testing.T) {
	fieldNames := []string{"CITY", "TOPIC", "MONTH", "MAX_ATTENDEES"}
	opNames := []string{"EQ", "GT", "GTEQ", "LT", "LTEQ", "NE"}

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) RawFilter {
			return RawFilter{
				Field:    rapid.SampledFrom(fieldNames).Draw(t, "field"),
				Operator: rapid.SampledFrom(opNames).Draw(t, "op"),
				Value:    rapid.StringMatching(`[0-9]{1,3}`).Draw(t, "value"),
			}
		}), 0, 6).Draw(t, "filters")

		inequalityFields := map[string]bool{}
		for _, r := range raw {
			if r.Operator != "EQ" {
				inequalityFields[fields[r.Field]] = true
			}
		}

		plan, err := Compile(raw)
		if len(inequalityFields) > 1 {
			if err == nil {
				t.Fatalf("expected rejection for %v", raw)
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", raw, err)
		}
		if len(plan.Filters) != len(raw) {
			t.Fatalf("filters dropped: %d of %d", len(plan.Filters), len(raw))
		}
		if plan.Orders[len(plan.Orders)-1] != model.PropName {
			t.Fatalf("name must be the last sort key, got %v", plan.Orders)
		}
		if plan.InequalityField == "" && len(plan.Orders) != 1 {
			t.Fatalf("unexpected orders %v", plan.Orders)
		}
		if plan.InequalityField != "" && plan.Orders[0] != plan.InequalityField {
			t.Fatalf("inequality field %s must lead the sort, got %v", plan.InequalityField, plan.Orders)
		}
	})
}

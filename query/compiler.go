// Package query compiles user supplied conference filters into store
// queries that respect the single inequality field rule.
package query

import (
	"strconv"
	"strings"

	"conference-central/database"
	"conference-central/errors"
	"conference-central/model"
)

// RawFilter is a filter as received from the client.
type RawFilter struct {
	Field    string
	Operator string
	Value    string
}

type Filter struct {
	Field    string
	Operator database.Op
	Value    any
}

// Plan is a validated query. Orders lists the sort properties, all
// ascending.
type Plan struct {
	Filters         []Filter
	InequalityField string
	Orders          []string
}

var fields = map[string]string{
	"CITY":          model.PropCity,
	"TOPIC":         model.PropTopics,
	"MONTH":         model.PropMonth,
	"MAX_ATTENDEES": model.PropMaxAttendees,
}

var operators = map[string]database.Op{
	"EQ":   database.OpEqual,
	"GT":   database.OpGreaterThan,
	"GTEQ": database.OpGreaterOrEqual,
	"LT":   database.OpLessThan,
	"LTEQ": database.OpLessOrEqual,
	"NE":   database.OpNotEqual,
}

var integerFields = map[string]bool{
	model.PropMonth:        true,
	model.PropMaxAttendees: true,
}

// Compile validates raw and decides the sort order: the inequality field
// first when there is one, then name.
func Compile(raw []RawFilter) (*Plan, error) {
	plan := &Plan{Filters: make([]Filter, 0, len(raw))}

	for _, r := range raw {
		field, okField := fields[r.Field]
		op, okOp := operators[r.Operator]
		if !okField || !okOp {
			return nil, errors.BadRequest("Filter contains invalid field or operator.")
		}

		var value any = r.Value
		if integerFields[field] {
			n, err := strconv.Atoi(strings.TrimSpace(r.Value))
			if err != nil {
				return nil, errors.BadRequest("Filter value %q for %s must be an integer.", r.Value, r.Field)
			}
			value = n
		}

		if op != database.OpEqual {
			if plan.InequalityField != "" && plan.InequalityField != field {
				return nil, errors.BadRequest("Inequality filter is allowed on only one field.")
			}
			plan.InequalityField = field
		}

		plan.Filters = append(plan.Filters, Filter{Field: field, Operator: op, Value: value})
	}

	if plan.InequalityField != "" {
		plan.Orders = append(plan.Orders, plan.InequalityField)
	}
	plan.Orders = append(plan.Orders, model.PropName)
	return plan, nil
}

// Query builds the conference query for the plan.
func (p *Plan) Query() *database.Query {
	q := database.NewQuery(model.KindConference)
	for _, f := range p.Filters {
		q.Filter(f.Field, f.Operator, f.Value)
	}
	for _, o := range p.Orders {
		q.Order(o)
	}
	return q
}

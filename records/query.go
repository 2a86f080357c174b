package records

import "strings"

// Direction is the sort direction of an Order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "asc"/"desc" (any case) to a Direction. Anything else sorts ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}

	return Asc
}

// Order sorts the result by one column.
type Order struct {
	Column    string
	Direction Direction
}

// Conditions filters rows by column. A plain value means equality, a slice means IN,
// and nil means IS NULL.
type Conditions map[string]any

// QueryOptions describes a find.
//
// Contain selects the relations to load by alias: nil loads every declared relation,
// an empty non-nil slice loads none.
type QueryOptions struct {
	Conditions Conditions
	Order      *Order
	Limit      int
	Contain    []string
}

// OrderBy is a shorthand for building an *Order.
func OrderBy(column string, direction Direction) *Order {
	return &Order{Column: column, Direction: direction}
}

// ContainNone is the Contain value that loads no relations.
func ContainNone() []string {
	return []string{}
}

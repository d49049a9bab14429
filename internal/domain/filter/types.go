// Package filter defines report filter predicates and compiles them into
// retrieval constraints understood by record store adapters.
package filter

import "strings"

// Operator is the closed set of comparisons a report filter may use.
type Operator string

const (
	Equals             Operator = "equals"
	NotEquals          Operator = "not_equals"
	Contains           Operator = "contains"
	NotContains        Operator = "not_contains"
	StartsWith         Operator = "starts_with"
	EndsWith           Operator = "ends_with"
	GreaterThan        Operator = "greater_than"
	LessThan           Operator = "less_than"
	GreaterThanOrEqual Operator = "greater_than_or_equal"
	LessThanOrEqual    Operator = "less_than_or_equal"
	In                 Operator = "in"
	NotIn              Operator = "not_in"
	IsNull             Operator = "is_null"
	IsNotNull          Operator = "is_not_null"
)

var operators = []Operator{
	Equals, NotEquals,
	Contains, NotContains, StartsWith, EndsWith,
	GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual,
	In, NotIn,
	IsNull, IsNotNull,
}

// Operators returns every supported operator.
func Operators() []Operator {
	out := make([]Operator, len(operators))
	copy(out, operators)
	return out
}

// Valid reports whether o is a member of the enumeration.
func (o Operator) Valid() bool {
	for _, known := range operators {
		if o == known {
			return true
		}
	}
	return false
}

// IsOrdered reports whether o compares by order (number and date fields only).
func (o Operator) IsOrdered() bool {
	switch o {
	case GreaterThan, LessThan, GreaterThanOrEqual, LessThanOrEqual:
		return true
	}
	return false
}

// IsPattern reports whether o is a case-insensitive text match.
func (o Operator) IsPattern() bool {
	switch o {
	case Contains, NotContains, StartsWith, EndsWith:
		return true
	}
	return false
}

// IsList reports whether o expects an array value.
func (o Operator) IsList() bool {
	return o == In || o == NotIn
}

// IsNullCheck reports whether o ignores the value payload.
func (o Operator) IsNullCheck() bool {
	return o == IsNull || o == IsNotNull
}

// LogicalOperator joins a filter to the ones before it.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// Normalize upper-cases the operator; empty means AND.
func (l LogicalOperator) Normalize() LogicalOperator {
	if l == "" {
		return And
	}
	return LogicalOperator(strings.ToUpper(string(l)))
}

// Item represents one user-authored filter row.
type Item struct {
	Field           string          `json:"field" yaml:"field"`
	Operator        Operator        `json:"operator" yaml:"operator"`
	Value           any             `json:"value,omitempty" yaml:"value,omitempty"`
	LogicalOperator LogicalOperator `json:"logicalOperator,omitempty" yaml:"logicalOperator,omitempty"`
}

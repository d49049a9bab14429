package filter

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ErrUnknownOperator is returned when an item uses an operator outside the enumeration.
var ErrUnknownOperator = errors.New("unknown filter operator")

// Kind is the storage-level comparison of a Constraint.
type Kind int

const (
	KindEq Kind = iota + 1
	KindNotEq
	KindILike
	KindNotILike
	KindGt
	KindLt
	KindGtOrEq
	KindLtOrEq
	KindIn
	KindNotIn
	KindIsNull
	KindIsNotNull
)

var kindNames = map[Kind]string{
	KindEq:        "eq",
	KindNotEq:     "neq",
	KindILike:     "ilike",
	KindNotILike:  "not_ilike",
	KindGt:        "gt",
	KindLt:        "lt",
	KindGtOrEq:    "gte",
	KindLtOrEq:    "lte",
	KindIn:        "in",
	KindNotIn:     "not_in",
	KindIsNull:    "is_null",
	KindIsNotNull: "is_not_null",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Constraint is one retrieval condition. Constraints are AND-ed by adapters.
//
// For KindILike/KindNotILike, Value is a LIKE pattern whose metacharacters
// in user input are escaped with a backslash. For KindIn/KindNotIn the
// operands are in Values.
type Constraint struct {
	Field  string
	Kind   Kind
	Value  any
	Values []any
}

// Compile turns filter items into constraints, one per item, in order.
func Compile(items []Item) ([]Constraint, error) {
	out := make([]Constraint, 0, len(items))
	for i, item := range items {
		c, err := compileItem(item)
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s): %w", i, item.Field, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func compileItem(item Item) (Constraint, error) {
	c := Constraint{Field: item.Field}

	switch item.Operator {
	case Equals:
		c.Kind, c.Value = KindEq, item.Value
	case NotEquals:
		c.Kind, c.Value = KindNotEq, item.Value
	case Contains:
		c.Kind, c.Value = KindILike, "%"+EscapeLike(text(item.Value))+"%"
	case NotContains:
		c.Kind, c.Value = KindNotILike, "%"+EscapeLike(text(item.Value))+"%"
	case StartsWith:
		c.Kind, c.Value = KindILike, EscapeLike(text(item.Value))+"%"
	case EndsWith:
		c.Kind, c.Value = KindILike, "%"+EscapeLike(text(item.Value))
	case GreaterThan:
		c.Kind, c.Value = KindGt, item.Value
	case LessThan:
		c.Kind, c.Value = KindLt, item.Value
	case GreaterThanOrEqual:
		c.Kind, c.Value = KindGtOrEq, item.Value
	case LessThanOrEqual:
		c.Kind, c.Value = KindLtOrEq, item.Value
	case In, NotIn:
		values, ok := ToSlice(item.Value)
		if !ok {
			return c, fmt.Errorf("operator %s requires an array value", item.Operator)
		}
		c.Kind, c.Values = KindIn, values
		if item.Operator == NotIn {
			c.Kind = KindNotIn
		}
	case IsNull:
		c.Kind = KindIsNull
	case IsNotNull:
		c.Kind = KindIsNotNull
	default:
		return c, fmt.Errorf("%w: %q", ErrUnknownOperator, item.Operator)
	}

	if !item.Operator.IsNullCheck() && !item.Operator.IsList() && item.Value == nil {
		return c, fmt.Errorf("operator %s requires a value", item.Operator)
	}
	return c, nil
}

// ToSlice converts an array or slice value into []any.
func ToSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func text(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so user input matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// MatchLike evaluates a LIKE pattern case-insensitively, with backslash as
// the escape character, the way PostgreSQL ILIKE does.
func MatchLike(pattern, s string) bool {
	var b strings.Builder
	b.WriteString("(?is)^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

package reports

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reportengine/internal/core/types"
)

// Transform groups rows by the flat group-by list and computes the
// aggregations per group. Without grouping, rows are returned unchanged.
//
// Groups are emitted in first-encounter order. Date group fields are
// replaced by their bucket label computed in loc; rows whose date value
// cannot be interpreted land in the nil group for that field.
func Transform(rows []Row, groupBy []Grouping, aggs []Aggregation, loc *time.Location) ([]Row, error) {
	if len(groupBy) == 0 {
		return rows, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if err := checkOutputColumns(groupBy, aggs); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(rows))
	groups := make([]*group, 0)

	var key strings.Builder
	values := make([]any, len(groupBy))

	for _, row := range rows {
		key.Reset()
		for i, g := range groupBy {
			v := groupValue(row[g.Field], g.DateGrouping, loc)
			values[i] = v
			writeKeyPart(&key, v)
		}

		k := key.String()
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, newGroup(values, len(aggs)))
		}

		grp := groups[pos]
		for i, a := range aggs {
			grp.accs[i].add(a, row)
		}
	}

	out := make([]Row, 0, len(groups))
	for _, grp := range groups {
		r := make(Row, len(groupBy)+len(aggs))
		for i, g := range groupBy {
			r[g.Field] = grp.values[i]
		}
		for i, a := range aggs {
			v, err := grp.accs[i].result(a.Function)
			if err != nil {
				return nil, err
			}
			r[a.OutputKey()] = v
		}
		out = append(out, r)
	}
	return out, nil
}

// OutputColumns returns the keys of transformed rows in display order.
func OutputColumns(groupBy []Grouping, aggs []Aggregation) []string {
	cols := make([]string, 0, len(groupBy)+len(aggs))
	for _, g := range groupBy {
		cols = append(cols, g.Field)
	}
	for _, a := range aggs {
		cols = append(cols, a.OutputKey())
	}
	return cols
}

func checkOutputColumns(groupBy []Grouping, aggs []Aggregation) error {
	seen := make(map[string]struct{}, len(groupBy)+len(aggs))
	for _, col := range OutputColumns(groupBy, aggs) {
		if _, dup := seen[col]; dup {
			return fmt.Errorf("output column %q produced twice", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

func groupValue(v any, dg DateGrouping, loc *time.Location) any {
	if dg == "" || v == nil {
		return v
	}
	label, ok := BucketLabel(v, dg, loc)
	if !ok {
		return nil
	}
	return label
}

// writeKeyPart appends a type-tagged, length-prefixed encoding of v.
// Distinct tuples never share an encoding: ("a|b","c") differs from ("a","b|c"),
// and the string "1" differs from the number 1. Numbers are normalized so
// 1, int64(1) and 1.0 collide on purpose.
func writeKeyPart(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("n;")
	case string:
		writeTagged(b, 's', x)
	case bool:
		writeTagged(b, 'b', strconv.FormatBool(x))
	case time.Time:
		writeTagged(b, 't', x.UTC().Format(time.RFC3339Nano))
	default:
		if types.IsNumeric(x) {
			if d, ok := types.ToDecimal(x); ok {
				writeTagged(b, 'd', d.String())
				return
			}
		}
		writeTagged(b, 'v', fmt.Sprintf("%T:%v", x, x))
	}
}

func writeTagged(b *strings.Builder, tag byte, s string) {
	b.WriteByte(tag)
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

type group struct {
	values []any
	accs   []accumulator
}

func newGroup(values []any, naggs int) *group {
	g := &group{
		values: append([]any(nil), values...),
		accs:   make([]accumulator, naggs),
	}
	for i := range g.accs {
		g.accs[i] = newAccumulator()
	}
	return g
}

// accumulator holds running state for one aggregation within one group.
// Missing or non-numeric values count as a row and add 0 to the sum;
// they never move min or max.
type accumulator struct {
	rows int64
	sum  decimal.Decimal
	min  float64
	max  float64
}

func newAccumulator() accumulator {
	return accumulator{min: math.Inf(1), max: math.Inf(-1)}
}

func (a *accumulator) add(agg Aggregation, row Row) {
	a.rows++
	if !agg.usesField() {
		return
	}
	v, ok := row[agg.Field]
	if !ok || v == nil {
		return
	}
	d, ok := types.ToDecimal(v)
	if !ok {
		return
	}
	a.sum = a.sum.Add(d)

	f := d.InexactFloat64()
	if f < a.min {
		a.min = f
	}
	if f > a.max {
		a.max = f
	}
}

func (a *accumulator) result(fn AggregateFunc) (any, error) {
	switch fn {
	case FuncCount:
		return a.rows, nil
	case FuncSum:
		return a.sum.InexactFloat64(), nil
	case FuncAvg:
		if a.rows == 0 {
			return float64(0), nil
		}
		return a.sum.Div(decimal.NewFromInt(a.rows)).InexactFloat64(), nil
	case FuncMin:
		if math.IsInf(a.min, 1) {
			return nil, nil
		}
		return a.min, nil
	case FuncMax:
		if math.IsInf(a.max, -1) {
			return nil, nil
		}
		return a.max, nil
	}
	return nil, fmt.Errorf("unsupported aggregate function %q", fn)
}

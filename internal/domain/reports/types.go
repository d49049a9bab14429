// Package reports executes ad-hoc report configurations: it validates them
// against the field registry, compiles filters, fetches rows through a
// Repository and groups/aggregates them into a tabular result.
package reports

import (
	"time"

	"reportengine/internal/domain/filter"
)

// DateGrouping is the granularity a date field is bucketed to before grouping.
type DateGrouping string

const (
	GroupByDay     DateGrouping = "day"
	GroupByWeek    DateGrouping = "week"
	GroupByMonth   DateGrouping = "month"
	GroupByQuarter DateGrouping = "quarter"
	GroupByYear    DateGrouping = "year"
)

// Valid reports whether g is a known granularity.
func (g DateGrouping) Valid() bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth, GroupByQuarter, GroupByYear:
		return true
	}
	return false
}

// AggregateFunc is an aggregation applied per group.
type AggregateFunc string

const (
	FuncCount AggregateFunc = "count"
	FuncSum   AggregateFunc = "sum"
	FuncAvg   AggregateFunc = "avg"
	FuncMin   AggregateFunc = "min"
	FuncMax   AggregateFunc = "max"
)

// Valid reports whether f is a known aggregation function.
func (f AggregateFunc) Valid() bool {
	switch f {
	case FuncCount, FuncSum, FuncAvg, FuncMin, FuncMax:
		return true
	}
	return false
}

// SortDirection orders retrieved rows.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Grouping is one entry of the flat group-by list.
type Grouping struct {
	Field        string       `json:"field" yaml:"field"`
	DateGrouping DateGrouping `json:"dateGrouping,omitempty" yaml:"dateGrouping,omitempty"`
}

// Aggregation computes one output column per group.
type Aggregation struct {
	Field    string        `json:"field" yaml:"field"`
	Function AggregateFunc `json:"function" yaml:"function"`
	Label    string        `json:"label,omitempty" yaml:"label,omitempty"`
}

// OutputKey is the column the aggregation writes to: the label, else the
// field name, else the function name (count without a field).
func (a Aggregation) OutputKey() string {
	switch {
	case a.Label != "":
		return a.Label
	case a.Field != "" && a.Field != "*":
		return a.Field
	default:
		return string(a.Function)
	}
}

// usesField reports whether the aggregation reads a row value.
func (a Aggregation) usesField() bool {
	return a.Function != FuncCount && a.Field != ""
}

// Sort orders rows at the storage boundary.
type Sort struct {
	Field     string        `json:"field" yaml:"field"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Desc reports whether the sort is descending.
func (s Sort) Desc() bool { return s.Direction == SortDesc }

// DatePreset is a named relative period for the date range shortcut.
type DatePreset string

const (
	PresetToday       DatePreset = "today"
	PresetYesterday   DatePreset = "yesterday"
	PresetLast7Days   DatePreset = "last_7_days"
	PresetLast30Days  DatePreset = "last_30_days"
	PresetThisMonth   DatePreset = "this_month"
	PresetLastMonth   DatePreset = "last_month"
	PresetThisQuarter DatePreset = "this_quarter"
	PresetThisYear    DatePreset = "this_year"
)

// Valid reports whether p is a known preset.
func (p DatePreset) Valid() bool {
	switch p {
	case PresetToday, PresetYesterday, PresetLast7Days, PresetLast30Days,
		PresetThisMonth, PresetLastMonth, PresetThisQuarter, PresetThisYear:
		return true
	}
	return false
}

// DateRange restricts a date field to [From, To). A Preset wins over From/To.
type DateRange struct {
	Field  string     `json:"field" yaml:"field"`
	Preset DatePreset `json:"preset,omitempty" yaml:"preset,omitempty"`
	From   *time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To     *time.Time `json:"to,omitempty" yaml:"to,omitempty"`
}

// Configuration is a user-authored report definition and the sole input of Execute.
type Configuration struct {
	Entity       string        `json:"entity" yaml:"entity"`
	Fields       []string      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Filters      []filter.Item `json:"filters,omitempty" yaml:"filters,omitempty"`
	GroupBy      []Grouping    `json:"groupBy,omitempty" yaml:"groupBy,omitempty"`
	Aggregations []Aggregation `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`
	Sorting      []Sort        `json:"sorting,omitempty" yaml:"sorting,omitempty"`
	Limit        int           `json:"limit,omitempty" yaml:"limit,omitempty"`
	ChartType    string        `json:"chartType,omitempty" yaml:"chartType,omitempty"`
	DateRange    *DateRange    `json:"dateRange,omitempty" yaml:"dateRange,omitempty"`
}

// Grouped reports whether the configuration requests grouping.
func (c Configuration) Grouped() bool { return len(c.GroupBy) > 0 }

// Row maps output column names to scalar values (string, number, bool, time or nil).
type Row map[string]any

// Results is the envelope returned by Execute. It is never mutated after return.
type Results struct {
	Data []Row `json:"data"`

	// Columns lists the keys of Data rows in display order.
	Columns []string `json:"columns"`

	// TotalRows is the exact match count from retrieval, before any limit.
	TotalRows int `json:"totalRows"`

	GeneratedAt   time.Time     `json:"generatedAt"`
	Configuration Configuration `json:"configuration"`

	// ExecutionTime is in milliseconds.
	ExecutionTime int64 `json:"executionTime"`
}

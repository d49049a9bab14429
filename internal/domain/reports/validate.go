package reports

import (
	"fmt"

	"reportengine/internal/core/apperror"
	"reportengine/internal/core/types"
	"reportengine/internal/domain/filter"
	"reportengine/internal/metadata"
)

// Validate checks a configuration against the registry and returns the
// entity it targets. Every failure is a CONFIGURATION_ERROR naming the
// offending part; nothing is fetched for an invalid configuration.
func Validate(cfg Configuration, reg *metadata.Registry) (metadata.EntityDef, error) {
	if cfg.Entity == "" {
		return metadata.EntityDef{}, apperror.NewConfiguration("entity is required")
	}
	entity, ok := reg.Get(cfg.Entity)
	if !ok {
		return metadata.EntityDef{}, apperror.NewConfiguration("unknown entity").
			WithDetail("entity", cfg.Entity)
	}

	v := validator{entity: entity}
	steps := []func(Configuration) error{
		v.fields,
		v.filters,
		v.groupBy,
		v.aggregations,
		v.sorting,
		v.dateRange,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			return metadata.EntityDef{}, err
		}
	}

	if cfg.Limit < 0 {
		return metadata.EntityDef{}, apperror.NewConfiguration("limit must not be negative").
			WithDetail("limit", cfg.Limit)
	}
	return entity, nil
}

type validator struct {
	entity metadata.EntityDef
}

func (v validator) lookup(section, name string) (metadata.FieldDef, error) {
	if name == "" {
		return metadata.FieldDef{}, apperror.NewConfiguration(section + ": field is required")
	}
	f, ok := v.entity.Field(name)
	if !ok {
		return metadata.FieldDef{}, apperror.NewConfiguration(section+": unknown field").
			WithDetail("entity", v.entity.Name).
			WithDetail("field", name)
	}
	return f, nil
}

func (v validator) fields(cfg Configuration) error {
	seen := make(map[string]struct{}, len(cfg.Fields))
	for _, name := range cfg.Fields {
		if _, err := v.lookup("fields", name); err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return apperror.NewConfiguration("fields: duplicate field").WithDetail("field", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (v validator) filters(cfg Configuration) error {
	for i, item := range cfg.Filters {
		if err := v.filter(item); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("filter", i)
			}
			return err
		}
	}
	return nil
}

func (v validator) filter(item filter.Item) error {
	f, err := v.lookup("filters", item.Field)
	if err != nil {
		return err
	}
	if !f.Filterable {
		return apperror.NewConfiguration("filters: field is not filterable").WithDetail("field", f.Name)
	}
	if !item.Operator.Valid() {
		return apperror.NewConfiguration("filters: unknown operator").
			WithDetail("field", f.Name).
			WithDetail("operator", string(item.Operator))
	}
	if lo := item.LogicalOperator.Normalize(); lo != filter.And {
		return apperror.NewConfiguration("filters: only AND is supported between filters").
			WithDetail("logicalOperator", string(item.LogicalOperator))
	}

	invalid := func(msg string) error {
		return apperror.NewConfiguration("filters: "+msg).
			WithDetail("field", f.Name).
			WithDetail("operator", string(item.Operator))
	}

	switch {
	case item.Operator.IsNullCheck():
		return nil
	case item.Operator.IsOrdered() && f.Type != metadata.TypeNumber && f.Type != metadata.TypeDate:
		return invalid(fmt.Sprintf("operator not allowed for %s fields", f.Type))
	case item.Operator.IsPattern() && f.Type != metadata.TypeString && f.Type != metadata.TypeEnum:
		return invalid(fmt.Sprintf("operator not allowed for %s fields", f.Type))
	}

	if item.Operator.IsList() {
		values, ok := filter.ToSlice(item.Value)
		if !ok || len(values) == 0 {
			return invalid("a non-empty array value is required")
		}
		for _, val := range values {
			if err := checkValue(f, val, true); err != nil {
				return invalid(err.Error())
			}
		}
		return nil
	}

	if item.Value == nil {
		return invalid("a value is required")
	}
	if _, isList := filter.ToSlice(item.Value); isList {
		return invalid("a scalar value is required")
	}
	if err := checkValue(f, item.Value, !item.Operator.IsPattern()); err != nil {
		return invalid(err.Error())
	}
	return nil
}

// checkValue verifies a filter operand fits the field type. Enum domain
// membership is only enforced for exact comparisons.
func checkValue(f metadata.FieldDef, val any, exact bool) error {
	if val == nil {
		return fmt.Errorf("null values are not allowed here")
	}
	switch f.Type {
	case metadata.TypeNumber:
		if _, ok := types.ToDecimal(val); !ok {
			return fmt.Errorf("value %v is not a number", val)
		}
	case metadata.TypeDate:
		if _, ok := ToTime(val, nil); !ok {
			return fmt.Errorf("value %v is not a date", val)
		}
	case metadata.TypeBoolean:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("value %v is not a boolean", val)
		}
	case metadata.TypeEnum:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("value %v is not a string", val)
		}
		if exact && len(f.Options) > 0 && !f.HasOption(s) {
			return fmt.Errorf("value %q is not one of %v", s, f.Options)
		}
	}
	return nil
}

func (v validator) groupBy(cfg Configuration) error {
	seen := make(map[string]struct{}, len(cfg.GroupBy))
	for _, g := range cfg.GroupBy {
		f, err := v.lookup("groupBy", g.Field)
		if err != nil {
			return err
		}
		if !f.Groupable {
			return apperror.NewConfiguration("groupBy: field is not groupable").WithDetail("field", f.Name)
		}
		if _, dup := seen[g.Field]; dup {
			return apperror.NewConfiguration("groupBy: duplicate field").WithDetail("field", f.Name)
		}
		seen[g.Field] = struct{}{}

		if g.DateGrouping == "" {
			continue
		}
		if !g.DateGrouping.Valid() {
			return apperror.NewConfiguration("groupBy: unknown date grouping").
				WithDetail("field", f.Name).
				WithDetail("dateGrouping", string(g.DateGrouping))
		}
		if f.Type != metadata.TypeDate {
			return apperror.NewConfiguration("groupBy: date grouping requires a date field").
				WithDetail("field", f.Name)
		}
	}

	if len(cfg.GroupBy) > 0 && len(cfg.Aggregations) == 0 {
		return apperror.NewConfiguration("groupBy requires at least one aggregation")
	}
	return nil
}

func (v validator) aggregations(cfg Configuration) error {
	for _, a := range cfg.Aggregations {
		if !a.Function.Valid() {
			return apperror.NewConfiguration("aggregations: unknown function").
				WithDetail("function", string(a.Function))
		}
		if a.Function == FuncCount && (a.Field == "" || a.Field == "*") {
			continue
		}
		f, err := v.lookup("aggregations", a.Field)
		if err != nil {
			return err
		}
		if a.Function == FuncCount {
			continue
		}
		if !f.Aggregatable || f.Type != metadata.TypeNumber {
			return apperror.NewConfiguration("aggregations: field is not aggregatable").
				WithDetail("field", f.Name).
				WithDetail("function", string(a.Function))
		}
	}

	seen := make(map[string]struct{})
	for _, col := range OutputColumns(cfg.GroupBy, cfg.Aggregations) {
		if _, dup := seen[col]; dup {
			return apperror.NewConfiguration("aggregations: duplicate output column").
				WithDetail("column", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

func (v validator) sorting(cfg Configuration) error {
	for _, s := range cfg.Sorting {
		f, err := v.lookup("sorting", s.Field)
		if err != nil {
			return err
		}
		if !f.Sortable {
			return apperror.NewConfiguration("sorting: field is not sortable").WithDetail("field", f.Name)
		}
		switch s.Direction {
		case "", SortAsc, SortDesc:
		default:
			return apperror.NewConfiguration("sorting: direction must be asc or desc").
				WithDetail("field", f.Name).
				WithDetail("direction", string(s.Direction))
		}
	}
	return nil
}

func (v validator) dateRange(cfg Configuration) error {
	dr := cfg.DateRange
	if dr == nil {
		return nil
	}
	f, err := v.lookup("dateRange", dr.Field)
	if err != nil {
		return err
	}
	if f.Type != metadata.TypeDate || !f.Filterable {
		return apperror.NewConfiguration("dateRange: field must be a filterable date").WithDetail("field", f.Name)
	}

	if dr.Preset != "" {
		if !dr.Preset.Valid() {
			return apperror.NewConfiguration("dateRange: unknown preset").
				WithDetail("preset", string(dr.Preset))
		}
		return nil
	}
	if dr.From == nil && dr.To == nil {
		return apperror.NewConfiguration("dateRange: preset or from/to is required")
	}
	if dr.From != nil && dr.To != nil && !dr.From.Before(*dr.To) {
		return apperror.NewConfiguration("dateRange: from must be before to")
	}
	return nil
}

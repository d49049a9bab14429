package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportengine/internal/core/apperror"
	"reportengine/internal/domain/filter"
	"reportengine/internal/metadata"
)

func testRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry()
	require.NoError(t, reg.Register(metadata.EntityDef{
		Name: "invoices",
		Fields: []metadata.FieldDef{
			{Name: "id", Type: metadata.TypeString, Filterable: true, Sortable: true},
			{Name: "customer", Type: metadata.TypeString, Filterable: true, Groupable: true, Sortable: true},
			{Name: "status", Type: metadata.TypeEnum, Filterable: true, Groupable: true, Options: []string{"draft", "paid"}},
			{Name: "amt", Type: metadata.TypeNumber, Filterable: true, Sortable: true, Aggregatable: true},
			{Name: "issued_at", Type: metadata.TypeDate, Filterable: true, Groupable: true, Sortable: true},
			{Name: "recurring", Type: metadata.TypeBoolean, Filterable: true, Groupable: true},
			{Name: "notes", Type: metadata.TypeString},
		},
	}))
	return reg
}

func TestValidate_Valid(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Configuration{
		Entity: "invoices",
		Fields: []string{"id", "amt"},
		Filters: []filter.Item{
			{Field: "status", Operator: filter.In, Value: []string{"draft", "paid"}},
			{Field: "amt", Operator: filter.GreaterThan, Value: "10.5", LogicalOperator: "and"},
			{Field: "customer", Operator: filter.Contains, Value: "acme"},
			{Field: "issued_at", Operator: filter.LessThan, Value: "2024-06-01"},
			{Field: "customer", Operator: filter.IsNotNull},
		},
		GroupBy:      []Grouping{{Field: "issued_at", DateGrouping: GroupByMonth}, {Field: "recurring"}},
		Aggregations: []Aggregation{{Function: FuncCount}, {Field: "amt", Function: FuncSum, Label: "total"}},
		Sorting:      []Sort{{Field: "amt", Direction: SortDesc}},
		Limit:        10,
		DateRange:    &DateRange{Field: "issued_at", From: &from},
	}
	entity, err := Validate(cfg, testRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, "invoices", entity.Name)
}

func TestValidate_Errors(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	base := func(mod func(*Configuration)) Configuration {
		cfg := Configuration{Entity: "invoices"}
		mod(&cfg)
		return cfg
	}
	where := func(items ...filter.Item) func(*Configuration) {
		return func(c *Configuration) { c.Filters = items }
	}

	tests := []struct {
		name string
		cfg  Configuration
	}{
		{"missing entity", Configuration{}},
		{"unknown entity", Configuration{Entity: "ledgers"}},
		{"unknown field", base(func(c *Configuration) { c.Fields = []string{"amount_x"} })},
		{"duplicate field", base(func(c *Configuration) { c.Fields = []string{"id", "id"} })},
		{"filter unknown field", base(where(filter.Item{Field: "nope", Operator: filter.Equals, Value: 1}))},
		{"filter not filterable", base(where(filter.Item{Field: "notes", Operator: filter.IsNull}))},
		{"unknown operator", base(where(filter.Item{Field: "amt", Operator: "between", Value: 1}))},
		{"or combination", base(where(filter.Item{Field: "amt", Operator: filter.Equals, Value: 1, LogicalOperator: "or"}))},
		{"ordered on string", base(where(filter.Item{Field: "customer", Operator: filter.GreaterThan, Value: "a"}))},
		{"pattern on number", base(where(filter.Item{Field: "amt", Operator: filter.Contains, Value: "1"}))},
		{"missing value", base(where(filter.Item{Field: "amt", Operator: filter.Equals}))},
		{"list for scalar operator", base(where(filter.Item{Field: "amt", Operator: filter.Equals, Value: []int{1}}))},
		{"scalar for list operator", base(where(filter.Item{Field: "amt", Operator: filter.In, Value: 1}))},
		{"empty list", base(where(filter.Item{Field: "amt", Operator: filter.In, Value: []any{}}))},
		{"not a number", base(where(filter.Item{Field: "amt", Operator: filter.Equals, Value: "ten"}))},
		{"not a date", base(where(filter.Item{Field: "issued_at", Operator: filter.Equals, Value: "someday"}))},
		{"not a boolean", base(where(filter.Item{Field: "recurring", Operator: filter.Equals, Value: "yes"}))},
		{"enum outside domain", base(where(filter.Item{Field: "status", Operator: filter.Equals, Value: "refunded"}))},
		{"enum list outside domain", base(where(filter.Item{Field: "status", Operator: filter.NotIn, Value: []string{"paid", "lost"}}))},
		{"group not groupable", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "amt"}}
			c.Aggregations = []Aggregation{{Function: FuncCount}}
		})},
		{"group duplicate", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "status"}, {Field: "status"}}
			c.Aggregations = []Aggregation{{Function: FuncCount}}
		})},
		{"date grouping on non-date", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "status", DateGrouping: GroupByMonth}}
			c.Aggregations = []Aggregation{{Function: FuncCount}}
		})},
		{"unknown date grouping", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "issued_at", DateGrouping: "fortnight"}}
			c.Aggregations = []Aggregation{{Function: FuncCount}}
		})},
		{"grouping without aggregations", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "status"}}
		})},
		{"unknown function", base(func(c *Configuration) {
			c.Aggregations = []Aggregation{{Field: "amt", Function: "median"}}
		})},
		{"sum on non-aggregatable", base(func(c *Configuration) {
			c.Aggregations = []Aggregation{{Field: "customer", Function: FuncSum}}
		})},
		{"sum without field", base(func(c *Configuration) {
			c.Aggregations = []Aggregation{{Function: FuncSum}}
		})},
		{"label collides with group field", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "status"}}
			c.Aggregations = []Aggregation{{Field: "amt", Function: FuncSum, Label: "status"}}
		})},
		{"two aggregations same label", base(func(c *Configuration) {
			c.GroupBy = []Grouping{{Field: "status"}}
			c.Aggregations = []Aggregation{{Field: "amt", Function: FuncSum}, {Field: "amt", Function: FuncAvg}}
		})},
		{"sort not sortable", base(func(c *Configuration) { c.Sorting = []Sort{{Field: "status"}} })},
		{"sort bad direction", base(func(c *Configuration) { c.Sorting = []Sort{{Field: "amt", Direction: "up"}} })},
		{"negative limit", base(func(c *Configuration) { c.Limit = -1 })},
		{"date range on non-date", base(func(c *Configuration) { c.DateRange = &DateRange{Field: "amt", Preset: PresetToday} })},
		{"date range unknown preset", base(func(c *Configuration) { c.DateRange = &DateRange{Field: "issued_at", Preset: "someday"} })},
		{"date range empty", base(func(c *Configuration) { c.DateRange = &DateRange{Field: "issued_at"} })},
		{"date range inverted", base(func(c *Configuration) { c.DateRange = &DateRange{Field: "issued_at", From: &from, To: &to} })},
	}

	reg := testRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.cfg, reg)
			require.Error(t, err)
			assert.True(t, apperror.IsConfiguration(err), "got %v", err)
		})
	}
}

func TestValidate_DetailsNameTheFilter(t *testing.T) {
	cfg := Configuration{
		Entity: "invoices",
		Filters: []filter.Item{
			{Field: "amt", Operator: filter.Equals, Value: 1},
			{Field: "amt", Operator: "approximately", Value: 1},
		},
	}
	_, err := Validate(cfg, testRegistry(t))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Details["filter"])
	assert.Equal(t, "approximately", appErr.Details["operator"])
}

func TestValidate_PatternOnEnumSkipsDomainCheck(t *testing.T) {
	cfg := Configuration{
		Entity:  "invoices",
		Filters: []filter.Item{{Field: "status", Operator: filter.StartsWith, Value: "pa"}},
	}
	_, err := Validate(cfg, testRegistry(t))
	assert.NoError(t, err)
}

func TestAggregation_OutputKey(t *testing.T) {
	assert.Equal(t, "total", Aggregation{Field: "amt", Function: FuncSum, Label: "total"}.OutputKey())
	assert.Equal(t, "amt", Aggregation{Field: "amt", Function: FuncSum}.OutputKey())
	assert.Equal(t, "count", Aggregation{Function: FuncCount}.OutputKey())
	assert.Equal(t, "count", Aggregation{Field: "*", Function: FuncCount}.OutputKey())
}

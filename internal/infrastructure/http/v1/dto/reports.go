package dto

import (
	"reportengine/internal/domain/filter"
	"reportengine/internal/domain/reports"
	"reportengine/internal/metadata"
)

// ExecuteReportRequest is the body of POST /reports/execute and /reports/export.
type ExecuteReportRequest struct {
	Entity       string                `json:"entity" binding:"required"`
	Fields       []string              `json:"fields"`
	Filters      []filter.Item         `json:"filters"`
	GroupBy      []reports.Grouping    `json:"groupBy"`
	Aggregations []reports.Aggregation `json:"aggregations"`
	Sorting      []reports.Sort        `json:"sorting"`
	Limit        int                   `json:"limit"`
	ChartType    string                `json:"chartType"`
	DateRange    *reports.DateRange    `json:"dateRange"`
}

// ToConfiguration converts the request to a domain configuration.
func (r ExecuteReportRequest) ToConfiguration() reports.Configuration {
	return reports.Configuration{
		Entity:       r.Entity,
		Fields:       r.Fields,
		Filters:      r.Filters,
		GroupBy:      r.GroupBy,
		Aggregations: r.Aggregations,
		Sorting:      r.Sorting,
		Limit:        r.Limit,
		ChartType:    r.ChartType,
		DateRange:    r.DateRange,
	}
}

// ExportQuery holds export query parameters.
type ExportQuery struct {
	Format string `form:"format"`
}

// EntitySummary is one entry of GET /reports/entities.
type EntitySummary struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	FieldCount int    `json:"fieldCount"`
}

// FromEntities summarizes registry entries.
func FromEntities(defs []metadata.EntityDef) ListResponse[EntitySummary] {
	items := make([]EntitySummary, len(defs))
	for i, d := range defs {
		items[i] = EntitySummary{Name: d.Name, Label: d.Label, FieldCount: len(d.Fields)}
	}
	return ListResponse[EntitySummary]{Items: items, Total: len(items)}
}

package records

import (
	"fmt"

	"reportengine/internal/metadata"
)

// ScopeColumn is the organization column present on every record table.
const ScopeColumn = "organization_id"

type entry struct {
	model any
	name  string
	table string
	label string
}

var entities = []entry{
	{Invoice{}, "invoices", "invoices", "Invoices"},
	{WorkOrder{}, "work_orders", "work_orders", "Work Orders"},
	{Customer{}, "customers", "customers", "Customers"},
	{Payment{}, "payments", "payments", "Payments"},
}

// NewRegistry builds the field registry for all reportable entities.
func NewRegistry() (*metadata.Registry, error) {
	reg := metadata.NewRegistry()
	for _, e := range entities {
		def := metadata.Inspect(e.model, e.name)
		def.Label = e.label
		def.TableName = e.table
		def.ScopeColumn = ScopeColumn
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return reg, nil
}

// MustRegistry is NewRegistry for process startup.
func MustRegistry() *metadata.Registry {
	reg, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}

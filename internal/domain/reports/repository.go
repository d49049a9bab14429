package reports

import (
	"context"
	"time"

	"reportengine/internal/domain/filter"
	"reportengine/internal/metadata"
)

// FetchRequest is what the engine asks of the record store.
// Columns, constraints and sorting refer to registry field names; adapters
// translate them to storage columns via Entity.
type FetchRequest struct {
	Entity      metadata.EntityDef
	Columns     []string
	Constraints []filter.Constraint
	Sorting     []Sort

	// Limit caps returned rows; 0 means unlimited.
	Limit int

	// ScopeID is the organization the adapter must restrict rows to.
	ScopeID string

	// Location interprets stored date values that carry no zone. Date
	// operands in Constraints are already resolved to time.Time. Nil means UTC.
	Location *time.Location
}

// FetchResult holds raw rows keyed by field name and the exact number of
// rows matching the constraints, ignoring Limit.
type FetchResult struct {
	Rows       []Row
	TotalCount int
}

// Repository is the retrieval adapter boundary.
// Implementations own scoping, connection pooling and concurrency of reads.
type Repository interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

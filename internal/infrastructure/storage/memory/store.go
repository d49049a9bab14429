// Package memory is an in-process record store. It evaluates retrieval
// constraints the way the Postgres adapter's SQL does, including NULL
// semantics, and backs the CLI fixtures mode and engine tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"reportengine/internal/core/types"
	"reportengine/internal/domain/filter"
	"reportengine/internal/domain/reports"
	"reportengine/internal/metadata"
)

// Store keeps rows per entity and organization scope.
type Store struct {
	mu   sync.RWMutex
	rows map[string]map[string][]reports.Row
}

// New creates an empty store.
func New() *Store {
	return &Store{rows: make(map[string]map[string][]reports.Row)}
}

// Add appends rows for an entity within one organization scope.
func (s *Store) Add(entity, scopeID string, rows ...reports.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byScope, ok := s.rows[entity]
	if !ok {
		byScope = make(map[string][]reports.Row)
		s.rows[entity] = byScope
	}
	byScope[scopeID] = append(byScope[scopeID], rows...)
}

// Fetch implements reports.Repository.
func (s *Store) Fetch(ctx context.Context, req reports.FetchRequest) (*reports.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ScopeID == "" {
		return nil, fmt.Errorf("memory store: scope id is required")
	}

	s.mu.RLock()
	source := s.rows[req.Entity.Name][req.ScopeID]
	s.mu.RUnlock()

	matched := make([]reports.Row, 0, len(source))
	for _, row := range source {
		ok, err := matchAll(req.Entity, row, req.Constraints, req.Location)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}

	if len(req.Sorting) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(req.Entity, req.Sorting, matched[i], matched[j], req.Location)
		})
	}

	total := len(matched)
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	out := make([]reports.Row, len(matched))
	for i, row := range matched {
		out[i] = project(row, req.Columns)
	}
	return &reports.FetchResult{Rows: out, TotalCount: total}, nil
}

func project(row reports.Row, columns []string) reports.Row {
	if len(columns) == 0 {
		cp := make(reports.Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		return cp
	}
	cp := make(reports.Row, len(columns))
	for _, c := range columns {
		cp[c] = row[c]
	}
	return cp
}

func matchAll(entity metadata.EntityDef, row reports.Row, constraints []filter.Constraint, loc *time.Location) (bool, error) {
	for _, c := range constraints {
		ok, err := match(entity, row, c, loc)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// match evaluates one constraint. Any comparison against NULL is false,
// so not_equals and not_in never select rows with a missing value.
func match(entity metadata.EntityDef, row reports.Row, c filter.Constraint, loc *time.Location) (bool, error) {
	f, _ := entity.Field(c.Field)
	v := row[c.Field]

	switch c.Kind {
	case filter.KindIsNull:
		return v == nil, nil
	case filter.KindIsNotNull:
		return v != nil, nil
	}
	if v == nil {
		return false, nil
	}

	switch c.Kind {
	case filter.KindEq:
		cmp, ok := compare(f.Type, v, c.Value, loc)
		return ok && cmp == 0, nil
	case filter.KindNotEq:
		cmp, ok := compare(f.Type, v, c.Value, loc)
		return ok && cmp != 0, nil
	case filter.KindGt:
		cmp, ok := compare(f.Type, v, c.Value, loc)
		return ok && cmp > 0, nil
	case filter.KindLt:
		cmp, ok := compare(f.Type, v, c.Value, loc)
		return ok && cmp < 0, nil
	case filter.KindGtOrEq:
		cmp, ok := compare(f.Type, v, c.Value, loc)
		return ok && cmp >= 0, nil
	case filter.KindLtOrEq:
		cmp, ok := compare(f.Type, v, c.Value, loc)
		return ok && cmp <= 0, nil
	case filter.KindILike:
		return filter.MatchLike(fmt.Sprint(c.Value), fmt.Sprint(v)), nil
	case filter.KindNotILike:
		return !filter.MatchLike(fmt.Sprint(c.Value), fmt.Sprint(v)), nil
	case filter.KindIn, filter.KindNotIn:
		found := false
		for _, candidate := range c.Values {
			if cmp, ok := compare(f.Type, v, candidate, loc); ok && cmp == 0 {
				found = true
				break
			}
		}
		return found == (c.Kind == filter.KindIn), nil
	}
	return false, fmt.Errorf("memory store: unsupported constraint %s", c.Kind)
}

// compare orders two non-nil values by the field type. The second result is
// false when either side cannot be read as that type. Zone-less dates are
// read in loc.
func compare(t metadata.FieldType, a, b any, loc *time.Location) (int, bool) {
	if b == nil {
		return 0, false
	}
	switch t {
	case metadata.TypeNumber:
		da, okA := types.ToDecimal(a)
		db, okB := types.ToDecimal(b)
		if !okA || !okB {
			return 0, false
		}
		return da.Cmp(db), true
	case metadata.TypeDate:
		ta, okA := reports.ToTime(a, loc)
		tb, okB := reports.ToTime(b, loc)
		if !okA || !okB {
			return 0, false
		}
		return ta.Compare(tb), true
	case metadata.TypeBoolean:
		ba, okA := a.(bool)
		bb, okB := b.(bool)
		if !okA || !okB {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		default:
			return 1, true
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b)), true
}

// less orders rows by the sort list. NULLs sort last ascending and first
// descending, as in PostgreSQL.
func less(entity metadata.EntityDef, sorting []reports.Sort, a, b reports.Row, loc *time.Location) bool {
	for _, s := range sorting {
		f, _ := entity.Field(s.Field)
		va, vb := a[s.Field], b[s.Field]

		var cmp int
		switch {
		case va == nil && vb == nil:
			continue
		case va == nil:
			cmp = 1
		case vb == nil:
			cmp = -1
		default:
			c, ok := compare(f.Type, va, vb, loc)
			if !ok {
				c = strings.Compare(fmt.Sprint(va), fmt.Sprint(vb))
			}
			cmp = c
		}
		if cmp == 0 {
			continue
		}
		if s.Desc() {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

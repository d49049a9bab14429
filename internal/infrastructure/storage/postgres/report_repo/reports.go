// Package report_repo provides the PostgreSQL retrieval adapter for reports.
package report_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"reportengine/internal/core/apperror"
	"reportengine/internal/core/types"
	"reportengine/internal/domain/filter"
	"reportengine/internal/domain/reports"
	"reportengine/internal/infrastructure/storage/postgres"
	"reportengine/internal/metadata"
)

// pgQueryCanceled is raised when statement_timeout fires.
const pgQueryCanceled = "57014"

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ reports.Repository = (*ReportRepo)(nil)

// Fetch selects the requested columns of one entity within the caller's
// organization. Count and rows are read in the same read-only snapshot.
func (r *ReportRepo) Fetch(ctx context.Context, req reports.FetchRequest) (*reports.FetchResult, error) {
	q, err := r.buildQuery(req)
	if err != nil {
		return nil, err
	}

	countSQL, countArgs, err := r.builder.
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	q, err = r.applyPaging(q, req)
	if err != nil {
		return nil, err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	result := &reports.FetchResult{}
	var raw []map[string]any

	err = r.txm.ReadOnly(ctx, func(ctx context.Context, qr postgres.Querier) error {
		if err := qr.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
			return fmt.Errorf("count %s: %w", req.Entity.Name, err)
		}
		if err := pgxscan.Select(ctx, qr, &raw, sql, args...); err != nil {
			return fmt.Errorf("select %s: %w", req.Entity.Name, err)
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgQueryCanceled {
			return nil, apperror.NewTimeout(err)
		}
		return nil, err
	}

	result.Rows = make([]reports.Row, len(raw))
	for i, m := range raw {
		row := make(reports.Row, len(m))
		for k, v := range m {
			row[k] = normalizeValue(v)
		}
		result.Rows[i] = row
	}
	return result, nil
}

// buildQuery renders the scoped, filtered SELECT without ordering or limit.
// Identifiers come from the registry only; user values are always bound.
func (r *ReportRepo) buildQuery(req reports.FetchRequest) (squirrel.SelectBuilder, error) {
	entity := req.Entity
	if entity.TableName == "" || entity.ScopeColumn == "" {
		return squirrel.SelectBuilder{}, fmt.Errorf("entity %q has no table or scope column", entity.Name)
	}
	if req.ScopeID == "" {
		return squirrel.SelectBuilder{}, fmt.Errorf("scope id is required")
	}

	names := req.Columns
	if len(names) == 0 {
		names = entity.FieldNames()
	}
	cols := make([]string, 0, len(names))
	for _, name := range names {
		f, err := field(entity, name)
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		cols = append(cols, quote(f.Column)+" AS "+quote(f.Name))
	}

	q := r.builder.
		Select(cols...).
		From(quote(entity.TableName)).
		Where(squirrel.Eq{quote(entity.ScopeColumn): req.ScopeID})

	return applyConstraints(q, entity, req.Constraints)
}

// applyPaging adds ORDER BY and LIMIT. The entity key is always the last
// sort term, so rows tied on the requested sort come back in a fixed order.
func (r *ReportRepo) applyPaging(q squirrel.SelectBuilder, req reports.FetchRequest) (squirrel.SelectBuilder, error) {
	key, hasKey := req.Entity.Key()
	for _, s := range req.Sorting {
		f, err := field(req.Entity, s.Field)
		if err != nil {
			return q, err
		}
		dir := " ASC"
		if s.Desc() {
			dir = " DESC"
		}
		q = q.OrderBy(quote(f.Column) + dir)
		if hasKey && f.Name == key.Name {
			hasKey = false
		}
	}
	if hasKey {
		q = q.OrderBy(quote(key.Column) + " ASC")
	}
	if req.Limit > 0 {
		q = q.Limit(uint64(req.Limit))
	}
	return q, nil
}

// applyConstraints maps each compiled constraint to one WHERE predicate.
func applyConstraints(q squirrel.SelectBuilder, entity metadata.EntityDef, constraints []filter.Constraint) (squirrel.SelectBuilder, error) {
	for _, c := range constraints {
		f, err := field(entity, c.Field)
		if err != nil {
			return q, err
		}
		col := quote(f.Column)
		val := bindValue(f.Type, c.Value)

		switch c.Kind {
		case filter.KindEq:
			q = q.Where(squirrel.Eq{col: val})
		case filter.KindNotEq:
			q = q.Where(squirrel.NotEq{col: val})
		case filter.KindILike:
			q = q.Where(squirrel.ILike{col + "::text": c.Value})
		case filter.KindNotILike:
			q = q.Where(squirrel.NotILike{col + "::text": c.Value})
		case filter.KindGt:
			q = q.Where(squirrel.Gt{col: val})
		case filter.KindLt:
			q = q.Where(squirrel.Lt{col: val})
		case filter.KindGtOrEq:
			q = q.Where(squirrel.GtOrEq{col: val})
		case filter.KindLtOrEq:
			q = q.Where(squirrel.LtOrEq{col: val})
		case filter.KindIn:
			q = q.Where(squirrel.Eq{col: bindValues(f.Type, c.Values)})
		case filter.KindNotIn:
			q = q.Where(squirrel.NotEq{col: bindValues(f.Type, c.Values)})
		case filter.KindIsNull:
			q = q.Where(squirrel.Eq{col: nil})
		case filter.KindIsNotNull:
			q = q.Where(squirrel.NotEq{col: nil})
		default:
			return q, fmt.Errorf("unsupported constraint %s on %s", c.Kind, c.Field)
		}
	}
	return q, nil
}

func field(entity metadata.EntityDef, name string) (metadata.FieldDef, error) {
	f, ok := entity.Field(name)
	if !ok {
		return metadata.FieldDef{}, fmt.Errorf("invalid column: %s.%s", entity.Name, name)
	}
	return f, nil
}

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

// bindValue converts configuration values into types pgx encodes for the
// column: numbers as float64, dates as time.Time.
func bindValue(t metadata.FieldType, v any) any {
	switch t {
	case metadata.TypeNumber:
		if f, ok := types.ToFloat64(v); ok {
			return f
		}
	case metadata.TypeDate:
		if tm, ok := reports.ToTime(v, nil); ok {
			return tm
		}
	}
	return v
}

func bindValues(t metadata.FieldType, vs []any) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = bindValue(t, v)
	}
	return out
}

// normalizeValue turns driver types into the scalars reports work with.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case float32:
		return float64(x)
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		return time.Duration(x.Microseconds * int64(time.Microsecond)).String()
	}
	return v
}

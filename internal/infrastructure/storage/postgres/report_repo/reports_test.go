package report_repo

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportengine/internal/domain/filter"
	"reportengine/internal/domain/reports"
	"reportengine/internal/metadata"
)

var invoices = metadata.EntityDef{
	Name:        "invoices",
	TableName:   "invoices",
	ScopeColumn: "organization_id",
	Fields: []metadata.FieldDef{
		{Name: "id", Column: "id", Type: metadata.TypeString},
		{Name: "status", Column: "status", Type: metadata.TypeEnum},
		{Name: "amount", Column: "amount", Type: metadata.TypeNumber},
		{Name: "hours", Column: "hours_spent", Type: metadata.TypeNumber},
		{Name: "issued_at", Column: "issued_at", Type: metadata.TypeDate},
	},
}

const selectPrefix = `SELECT "id" AS "id", "hours_spent" AS "hours" FROM "invoices" WHERE "organization_id" = $1`

func TestBuildQuery_Constraints(t *testing.T) {
	repo := NewReportRepo(nil)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		constraint filter.Constraint
		wantSQL    string
		wantArgs   []any
	}{
		{
			name:       "Eq",
			constraint: filter.Constraint{Field: "status", Kind: filter.KindEq, Value: "paid"},
			wantSQL:    selectPrefix + ` AND "status" = $2`,
			wantArgs:   []any{"org-1", "paid"},
		},
		{
			name:       "NotEq",
			constraint: filter.Constraint{Field: "status", Kind: filter.KindNotEq, Value: "void"},
			wantSQL:    selectPrefix + ` AND "status" <> $2`,
			wantArgs:   []any{"org-1", "void"},
		},
		{
			name:       "ILike",
			constraint: filter.Constraint{Field: "status", Kind: filter.KindILike, Value: "%pa%"},
			wantSQL:    selectPrefix + ` AND "status"::text ILIKE $2`,
			wantArgs:   []any{"org-1", "%pa%"},
		},
		{
			name:       "NotILike",
			constraint: filter.Constraint{Field: "status", Kind: filter.KindNotILike, Value: "dr%"},
			wantSQL:    selectPrefix + ` AND "status"::text NOT ILIKE $2`,
			wantArgs:   []any{"org-1", "dr%"},
		},
		{
			name:       "Gt uses storage column and binds float",
			constraint: filter.Constraint{Field: "hours", Kind: filter.KindGt, Value: "2.5"},
			wantSQL:    selectPrefix + ` AND "hours_spent" > $2`,
			wantArgs:   []any{"org-1", 2.5},
		},
		{
			name:       "Lt",
			constraint: filter.Constraint{Field: "amount", Kind: filter.KindLt, Value: 10},
			wantSQL:    selectPrefix + ` AND "amount" < $2`,
			wantArgs:   []any{"org-1", float64(10)},
		},
		{
			name:       "GtOrEq binds date",
			constraint: filter.Constraint{Field: "issued_at", Kind: filter.KindGtOrEq, Value: "2024-01-01"},
			wantSQL:    selectPrefix + ` AND "issued_at" >= $2`,
			wantArgs:   []any{"org-1", issued},
		},
		{
			name:       "LtOrEq",
			constraint: filter.Constraint{Field: "amount", Kind: filter.KindLtOrEq, Value: 99.5},
			wantSQL:    selectPrefix + ` AND "amount" <= $2`,
			wantArgs:   []any{"org-1", 99.5},
		},
		{
			name:       "In",
			constraint: filter.Constraint{Field: "status", Kind: filter.KindIn, Values: []any{"paid", "sent"}},
			wantSQL:    selectPrefix + ` AND "status" IN ($2,$3)`,
			wantArgs:   []any{"org-1", "paid", "sent"},
		},
		{
			name:       "NotIn",
			constraint: filter.Constraint{Field: "status", Kind: filter.KindNotIn, Values: []any{"void"}},
			wantSQL:    selectPrefix + ` AND "status" NOT IN ($2)`,
			wantArgs:   []any{"org-1", "void"},
		},
		{
			name:       "IsNull",
			constraint: filter.Constraint{Field: "issued_at", Kind: filter.KindIsNull},
			wantSQL:    selectPrefix + ` AND "issued_at" IS NULL`,
			wantArgs:   []any{"org-1"},
		},
		{
			name:       "IsNotNull",
			constraint: filter.Constraint{Field: "issued_at", Kind: filter.KindIsNotNull},
			wantSQL:    selectPrefix + ` AND "issued_at" IS NOT NULL`,
			wantArgs:   []any{"org-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := repo.buildQuery(reports.FetchRequest{
				Entity:      invoices,
				Columns:     []string{"id", "hours"},
				Constraints: []filter.Constraint{tt.constraint},
				ScopeID:     "org-1",
			})
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildQuery_SortLimitAndCount(t *testing.T) {
	repo := NewReportRepo(nil)
	req := reports.FetchRequest{
		Entity:      invoices,
		Columns:     []string{"id", "hours"},
		Constraints: []filter.Constraint{{Field: "status", Kind: filter.KindEq, Value: "paid"}},
		Sorting:     []reports.Sort{{Field: "hours", Direction: reports.SortDesc}, {Field: "id"}},
		Limit:       2,
		ScopeID:     "org-1",
	}

	q, err := repo.buildQuery(req)
	require.NoError(t, err)

	countSQL, countArgs, err := repo.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM (`+selectPrefix+` AND "status" = $2) AS sub`, countSQL)
	assert.Equal(t, []any{"org-1", "paid"}, countArgs)

	q, err = repo.applyPaging(q, req)
	require.NoError(t, err)
	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+` AND "status" = $2 ORDER BY "hours_spent" DESC, "id" ASC LIMIT 2`, sql)
}

func TestApplyPaging_KeyTieBreaker(t *testing.T) {
	repo := NewReportRepo(nil)
	byRef := invoices
	byRef.KeyField = "ref"
	byRef.Fields = append([]metadata.FieldDef{{Name: "ref", Column: "invoice_ref", Type: metadata.TypeString}}, invoices.Fields[1:]...)
	noKey := invoices
	noKey.Fields = invoices.Fields[1:]

	tests := []struct {
		name    string
		entity  metadata.EntityDef
		sorting []reports.Sort
		wantSQL string
	}{
		{
			name:    "no sorting orders by key",
			entity:  invoices,
			wantSQL: ` ORDER BY "id" ASC LIMIT 2`,
		},
		{
			name:    "key follows requested sort",
			entity:  invoices,
			sorting: []reports.Sort{{Field: "status"}},
			wantSQL: ` ORDER BY "status" ASC, "id" ASC LIMIT 2`,
		},
		{
			name:    "explicit key sort is not repeated",
			entity:  invoices,
			sorting: []reports.Sort{{Field: "id", Direction: reports.SortDesc}},
			wantSQL: ` ORDER BY "id" DESC LIMIT 2`,
		},
		{
			name:    "custom key uses its column",
			entity:  byRef,
			sorting: []reports.Sort{{Field: "amount"}},
			wantSQL: ` ORDER BY "amount" ASC, "invoice_ref" ASC LIMIT 2`,
		},
		{
			name:    "entity without key",
			entity:  noKey,
			wantSQL: ` LIMIT 2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := reports.FetchRequest{
				Entity:  tt.entity,
				Columns: []string{"status"},
				Sorting: tt.sorting,
				Limit:   2,
				ScopeID: "org-1",
			}
			q, err := repo.buildQuery(req)
			require.NoError(t, err)
			q, err = repo.applyPaging(q, req)
			require.NoError(t, err)

			sql, _, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, `SELECT "status" AS "status" FROM "invoices" WHERE "organization_id" = $1`+tt.wantSQL, sql)
		})
	}
}

func TestBuildQuery_AllColumnsByDefault(t *testing.T) {
	q, err := NewReportRepo(nil).buildQuery(reports.FetchRequest{Entity: invoices, ScopeID: "org-1"})
	require.NoError(t, err)

	sql, _, err := q.ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id" AS "id", "status" AS "status", "amount" AS "amount", "hours_spent" AS "hours", "issued_at" AS "issued_at" FROM "invoices" WHERE "organization_id" = $1`,
		sql)
}

func TestBuildQuery_Rejects(t *testing.T) {
	repo := NewReportRepo(nil)

	_, err := repo.buildQuery(reports.FetchRequest{Entity: invoices, Columns: []string{"password"}, ScopeID: "org-1"})
	assert.Error(t, err, "unknown columns never reach SQL")

	_, err = repo.buildQuery(reports.FetchRequest{Entity: invoices})
	assert.Error(t, err, "scope is mandatory")

	_, err = repo.buildQuery(reports.FetchRequest{Entity: metadata.EntityDef{Name: "x"}, ScopeID: "org-1"})
	assert.Error(t, err)

	_, err = repo.buildQuery(reports.FetchRequest{
		Entity:      invoices,
		ScopeID:     "org-1",
		Constraints: []filter.Constraint{{Field: "status", Kind: filter.Kind(99)}},
	})
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"amount"`, quote("amount"))
	assert.Equal(t, `"a""b"`, quote(`a"b`))
}

func TestNormalizeValue(t *testing.T) {
	var num pgtype.Numeric
	require.NoError(t, num.Scan("12.75"))

	id := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}

	assert.Equal(t, 12.75, normalizeValue(num))
	assert.Nil(t, normalizeValue(pgtype.Numeric{}))
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", normalizeValue(id))
	assert.Equal(t, int64(7), normalizeValue(int32(7)))
	assert.Equal(t, "text", normalizeValue("text"))
	assert.Nil(t, normalizeValue(nil))
}

package reports

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reportengine/internal/core/apperror"
	"reportengine/internal/core/security"
	"reportengine/internal/domain/filter"
	"reportengine/internal/metadata"
	"reportengine/pkg/logger"
)

// DefaultMaxRows caps retrieval when the configuration has no limit.
const DefaultMaxRows = 50000

// Options tune execution. The zero value is usable.
type Options struct {
	// MaxRows caps the rows fetched by an ungrouped execution; 0 disables
	// the cap. Grouped executions aggregate every matching row and honor only
	// an explicit Limit.
	MaxRows int

	// Location is where date buckets and presets are computed. Defaults to UTC.
	Location *time.Location

	// Now overrides the clock used for presets and stamps.
	Now func() time.Time

	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
}

// Service executes report configurations.
// It holds only immutable dependencies, so one instance serves concurrent calls.
type Service struct {
	repo     Repository
	registry *metadata.Registry
	maxRows  int
	loc      *time.Location
	now      func() time.Time
	tracer   trace.Tracer
}

// NewService creates a new reports service.
func NewService(repo Repository, registry *metadata.Registry, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	return &Service{
		repo:     repo,
		registry: registry,
		maxRows:  opts.MaxRows,
		loc:      opts.Location,
		now:      opts.Now,
		tracer:   opts.TracerProvider.Tracer("reportengine/reports"),
	}
}

// Registry exposes the field registry the service validates against.
func (s *Service) Registry() *metadata.Registry {
	return s.registry
}

// Execute runs one configuration: validate, compile, fetch, transform, stamp.
// Cancellation is checked before every step.
func (s *Service) Execute(ctx context.Context, cfg Configuration) (_ *Results, err error) {
	started := s.now()

	ctx, span := s.tracer.Start(ctx, "reports.execute", trace.WithAttributes(
		attribute.String("report.entity", cfg.Entity),
		attribute.Bool("report.grouped", cfg.Grouped()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := logger.FromContext(ctx).WithComponent("reports").With("entity", cfg.Entity)

	// 1. Validate
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	entity, err := Validate(cfg, s.registry)
	if err != nil {
		return nil, err
	}

	// 2. Compile
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	req, err := s.buildRequest(ctx, cfg, entity)
	if err != nil {
		return nil, err
	}

	// 3. Fetch
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	fetched, err := s.repo.Fetch(ctx, req)
	if err != nil {
		return nil, retrievalError(ctx, err)
	}
	if fetched == nil {
		fetched = &FetchResult{}
	}
	if req.Limit > 0 && req.Limit != cfg.Limit && fetched.TotalCount > len(fetched.Rows) {
		log.Warnw("report truncated by row cap",
			"max_rows", req.Limit,
			"total", fetched.TotalCount,
		)
	}

	// 4. Transform
	if err := checkpoint(ctx); err != nil {
		return nil, err
	}
	data, err := Transform(fetched.Rows, cfg.GroupBy, cfg.Aggregations, s.loc)
	if err != nil {
		return nil, apperror.NewExecution(err)
	}
	if data == nil {
		data = []Row{}
	}

	// 5. Stamp
	finished := s.now()
	results := &Results{
		Data:          data,
		Columns:       s.columns(cfg, req),
		TotalRows:     fetched.TotalCount,
		GeneratedAt:   finished.UTC(),
		Configuration: cfg,
		ExecutionTime: finished.Sub(started).Milliseconds(),
	}

	span.SetAttributes(
		attribute.Int("report.rows", len(results.Data)),
		attribute.Int("report.total", results.TotalRows),
	)
	log.Infow("report executed",
		"rows", len(results.Data),
		"total", results.TotalRows,
		"grouped", cfg.Grouped(),
		"duration_ms", results.ExecutionTime,
	)

	return results, nil
}

func (s *Service) buildRequest(ctx context.Context, cfg Configuration, entity metadata.EntityDef) (FetchRequest, error) {
	constraints, err := filter.Compile(cfg.Filters)
	if err != nil {
		// Validation admits only compilable filters; reaching here is a bug.
		return FetchRequest{}, apperror.NewConfiguration(err.Error())
	}
	constraints = resolveDates(entity, constraints, s.loc)
	if cfg.DateRange != nil {
		constraints = append(constraints, s.dateRangeConstraints(*cfg.DateRange)...)
	}

	scope := security.NewAccessScope(ctx)
	if err := scope.Require(); err != nil {
		return FetchRequest{}, err
	}

	return FetchRequest{
		Entity:      entity,
		Columns:     fetchColumns(cfg, entity),
		Constraints: constraints,
		Sorting:     cfg.Sorting,
		Limit:       s.effectiveLimit(cfg),
		ScopeID:     scope.ScopeID(),
		Location:    s.loc,
	}, nil
}

// resolveDates turns date operands into instants in loc, so "2024-03-01"
// means local midnight, the same boundary the day bucket uses.
func resolveDates(entity metadata.EntityDef, constraints []filter.Constraint, loc *time.Location) []filter.Constraint {
	for i, c := range constraints {
		f, ok := entity.Field(c.Field)
		if !ok || f.Type != metadata.TypeDate || c.Kind == filter.KindILike || c.Kind == filter.KindNotILike {
			continue
		}
		if t, ok := ToTime(c.Value, loc); ok {
			constraints[i].Value = t
		}
		if len(c.Values) > 0 {
			values := make([]any, len(c.Values))
			for j, v := range c.Values {
				values[j] = v
				if t, ok := ToTime(v, loc); ok {
					values[j] = t
				}
			}
			constraints[i].Values = values
		}
	}
	return constraints
}

func (s *Service) effectiveLimit(cfg Configuration) int {
	if cfg.Grouped() {
		return cfg.Limit
	}
	if s.maxRows > 0 && (cfg.Limit == 0 || cfg.Limit > s.maxRows) {
		return s.maxRows
	}
	return cfg.Limit
}

func (s *Service) dateRangeConstraints(dr DateRange) []filter.Constraint {
	var from, to *time.Time
	if dr.Preset != "" {
		f, t, ok := presetRange(dr.Preset, s.now(), s.loc)
		if !ok {
			return nil
		}
		from, to = &f, &t
	} else {
		from, to = dr.From, dr.To
	}

	var out []filter.Constraint
	if from != nil {
		out = append(out, filter.Constraint{Field: dr.Field, Kind: filter.KindGtOrEq, Value: *from})
	}
	if to != nil {
		out = append(out, filter.Constraint{Field: dr.Field, Kind: filter.KindLt, Value: *to})
	}
	return out
}

func (s *Service) columns(cfg Configuration, req FetchRequest) []string {
	if cfg.Grouped() {
		return OutputColumns(cfg.GroupBy, cfg.Aggregations)
	}
	return req.Columns
}

// fetchColumns lists what retrieval must return: the selection (or every
// field) without grouping, the group and aggregated fields with it.
func fetchColumns(cfg Configuration, entity metadata.EntityDef) []string {
	if !cfg.Grouped() {
		if len(cfg.Fields) > 0 {
			return append([]string(nil), cfg.Fields...)
		}
		return entity.FieldNames()
	}

	seen := make(map[string]struct{})
	var cols []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		cols = append(cols, name)
	}
	for _, g := range cfg.GroupBy {
		add(g.Field)
	}
	for _, a := range cfg.Aggregations {
		if a.usesField() {
			add(a.Field)
		}
	}
	return cols
}

func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewTimeout(err)
	}
	return nil
}

// retrievalError keeps adapter AppErrors and cancellations recognizable and
// wraps everything else as RETRIEVAL_ERROR.
func retrievalError(ctx context.Context, err error) error {
	if apperror.IsAppError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return apperror.NewTimeout(err)
	}
	return apperror.NewRetrieval(err)
}

// Package resolver resolves root record fields. Each resolution plans the
// associations the query selects, asks the data-access layer to preload
// them, and falls back to an unplanned lookup when the plan is rejected.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"go.opentelemetry.io/otel/attribute"

	"graphql-preload/internal/logging"
	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
	"graphql-preload/internal/observability"
	"graphql-preload/internal/planner"
	"graphql-preload/internal/store"
	"graphql-preload/internal/uuidutil"
)

// Argument names accepted by generated root fields.
const (
	ArgID      = "id"
	ArgUseUUID = "use_uuid"
)

// Resolvable is implemented by anything that can serve as a graphql-go
// field resolver.
type Resolvable interface {
	Resolve(p graphql.ResolveParams) (any, error)
}

// Planner turns a selection tree into an include plan.
type Planner interface {
	Plan(m *model.Model, selections []ast.Selection, fragments map[string]ast.Definition) planner.Plan
}

// DataAccess is the part of the store the resolver depends on.
type DataAccess interface {
	Scope(m *model.Model) store.Finder
	ApplyIncludes(m *model.Model, plan planner.Plan) store.IncludeResult
}

// Lookup identifies the record to resolve.
type Lookup struct {
	Key     string
	UseUUID bool
}

func (l Lookup) kind() string {
	if l.UseUUID {
		return "uuid"
	}
	return "id"
}

func (l Lookup) find(ctx context.Context, finder store.Finder) (store.Record, error) {
	if l.UseUUID {
		return finder.FindByUUID(ctx, l.Key)
	}
	return finder.Find(ctx, l.Key)
}

// FieldResolver resolves a single model's root field.
type FieldResolver struct {
	model   *model.Model
	data    DataAccess
	planner Planner
	logger  *slog.Logger
	metrics *observability.ResolverMetrics
	field   string
}

// Option customizes a FieldResolver.
type Option func(*FieldResolver)

// WithLogger sets the fallback logger used when the request context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(r *FieldResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records resolution metrics.
func WithMetrics(metrics *observability.ResolverMetrics) Option {
	return func(r *FieldResolver) {
		r.metrics = metrics
	}
}

// WithFieldName overrides the root field name Field generates. Empty keeps
// the default from FieldName.
func WithFieldName(name string) Option {
	return func(r *FieldResolver) {
		r.field = name
	}
}

// WithPlanner replaces the planner.
func WithPlanner(p Planner) Option {
	return func(r *FieldResolver) {
		if p != nil {
			r.planner = p
		}
	}
}

var _ Resolvable = (*FieldResolver)(nil)

// New creates a resolver for m. The default planner resolves nested types
// through registry and inflects with naming.Default.
func New(m *model.Model, data DataAccess, registry *model.Registry, opts ...Option) (*FieldResolver, error) {
	if !m.IsRelational() {
		return nil, fmt.Errorf("model %v is not table-backed", m)
	}
	if data == nil {
		return nil, errors.New("data access is required")
	}
	r := &FieldResolver{
		model:  m,
		data:   data,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.planner == nil {
		r.planner = planner.New(registry, naming.Default(), planner.WithLogger(r.logger))
	}
	return r, nil
}

// Model returns the model the resolver serves.
func (r *FieldResolver) Model() *model.Model {
	return r.model
}

// Resolve implements Resolvable.
func (r *FieldResolver) Resolve(p graphql.ResolveParams) (any, error) {
	lookup, err := lookupFromArgs(p.Args)
	if err != nil {
		return nil, err
	}

	var selections []ast.Selection
	if len(p.Info.FieldASTs) > 0 && p.Info.FieldASTs[0].SelectionSet != nil {
		selections = p.Info.FieldASTs[0].SelectionSet.Selections
	}

	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}
	record, err := r.ResolveRecord(ctx, lookup, selections, p.Info.Fragments)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ResolveRecord loads the record identified by lookup with the associations
// the selections reach preloaded. The key reaches the data layer as given. A rejected plan is logged and the record is
// loaded without preloads; a missing record yields store.ErrRecordNotFound.
func (r *FieldResolver) ResolveRecord(ctx context.Context, lookup Lookup, selections []ast.Selection, fragments map[string]ast.Definition) (store.Record, error) {
	plan := r.planner.Plan(r.model, selections, fragments)

	attrs := []attribute.KeyValue{
		attribute.String("graphql.resolver.model", r.model.Name),
		attribute.String("graphql.resolver.lookup", lookup.kind()),
		attribute.Int("graphql.resolver.plan_size", plan.Size()),
		attribute.Int("graphql.resolver.plan_depth", plan.Depth()),
	}
	if lookup.UseUUID {
		attrs = append(attrs, attribute.String("graphql.resolver.uuid_format", string(uuidutil.FormatOf(lookup.Key))))
	}
	ctx, span := startResolverSpan(ctx, "resolver.find", attrs...)
	r.metrics.RecordPlanSize(ctx, r.model.Name, plan.Size())

	finder, fellBack := r.finder(ctx, plan)
	record, err := lookup.find(ctx, finder)

	outcome := outcomeSuccess
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		outcome = outcomeNotFound
	case err != nil:
		outcome = outcomeError
	case fellBack:
		outcome = outcomeFallback
	}
	finishResolverSpan(span, err, outcome)
	r.metrics.RecordResolution(ctx, r.model.Name, outcome)

	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *FieldResolver) finder(ctx context.Context, plan planner.Plan) (store.Finder, bool) {
	switch result := r.data.ApplyIncludes(r.model, plan).(type) {
	case store.Applied:
		return result.Finder, false
	case store.Rejected:
		r.loggerFor(ctx).Warn("include plan rejected; loading without preloads",
			slog.String("model", r.model.Name),
			slog.String("plan", plan.String()),
			slog.String("reason", fmt.Sprint(result.Reason)),
		)
		r.metrics.RecordFallback(ctx, r.model.Name)
		return r.data.Scope(r.model), true
	default:
		return r.data.Scope(r.model), true
	}
}

func (r *FieldResolver) loggerFor(ctx context.Context) *slog.Logger {
	if logger, ok := logging.Lookup(ctx); ok {
		return logger.Logger
	}
	return r.logger
}

func lookupFromArgs(args map[string]any) (Lookup, error) {
	raw, ok := args[ArgID]
	if !ok || raw == nil {
		return Lookup{}, fmt.Errorf("argument %q is required", ArgID)
	}
	lookup := Lookup{Key: fmt.Sprint(raw)}
	if useUUID, ok := args[ArgUseUUID].(bool); ok {
		lookup.UseUUID = useUUID
	}
	return lookup, nil
}

// FieldName is the root field name for m, e.g. "lineItem" for LineItem.
func FieldName(m *model.Model) string {
	return naming.Camelize(naming.Underscore(m.Name))
}

// Field builds the root field for m resolving to objectType. The field is
// named by FieldName unless WithFieldName supplies a name.
func Field(m *model.Model, objectType graphql.Output, data DataAccess, registry *model.Registry, opts ...Option) (*graphql.Field, error) {
	r, err := New(m, data, registry, opts...)
	if err != nil {
		return nil, err
	}
	name := r.field
	if name == "" {
		name = FieldName(m)
	}
	return &graphql.Field{
		Name:        name,
		Type:        objectType,
		Description: fmt.Sprintf("Find a %s by ID/UUID", m.Name),
		Args: graphql.FieldConfigArgument{
			ArgID: &graphql.ArgumentConfig{
				Type: graphql.NewNonNull(graphql.ID),
			},
			ArgUseUUID: &graphql.ArgumentConfig{
				Type:         graphql.Boolean,
				DefaultValue: false,
			},
		},
		Resolve: r.Resolve,
	}, nil
}

// Package schema builds the executable GraphQL schema from the model
// registry: one object per table-backed model and one root field per object.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/graphql-go/graphql"

	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
	"graphql-preload/internal/resolver"
	"graphql-preload/internal/sqltype"
	"graphql-preload/internal/store"
)

// LookupValueTypeName is the object type returned by lookup relations.
const LookupValueTypeName = "LookupValue"

// DataAccess is what generated fields need from the store.
type DataAccess interface {
	resolver.DataAccess
	LoadRelation(ctx context.Context, m *model.Model, relationName string, record store.Record) (any, error)
}

// Option customizes Build.
type Option func(*builder)

// WithLogger sets the logger used while building and by relation fields.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithResolverOptions passes options to every generated root resolver.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(b *builder) {
		b.resolverOpts = append(b.resolverOpts, opts...)
	}
}

type builder struct {
	registry     *model.Registry
	data         DataAccess
	logger       *slog.Logger
	resolverOpts []resolver.Option
	objects      map[string]*graphql.Object
	lookupValue  *graphql.Object
}

// Build creates the schema for every table-backed model in registry.
func Build(registry *model.Registry, data DataAccess, opts ...Option) (graphql.Schema, error) {
	if registry == nil {
		return graphql.Schema{}, errors.New("model registry is required")
	}
	if data == nil {
		return graphql.Schema{}, errors.New("data access is required")
	}

	b := &builder{
		registry: registry,
		data:     data,
		logger:   slog.Default(),
		objects:  make(map[string]*graphql.Object),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.lookupValue = graphql.NewObject(graphql.ObjectConfig{
		Name:        LookupValueTypeName,
		Description: "A coded value referenced by a lookup relation.",
		Fields: graphql.Fields{
			"code": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	var models []*model.Model
	for _, m := range registry.Models() {
		if !m.IsRelational() {
			b.logger.Debug("skipping model without table", slog.String("model", m.Name))
			continue
		}
		models = append(models, m)
		b.objects[m.Name] = b.objectFor(m)
	}
	if len(models) == 0 {
		return graphql.Schema{}, errors.New("no table-backed models to expose")
	}

	rootFields := graphql.Fields{}
	for _, m := range models {
		fieldOpts := b.resolverOpts
		if m.RootField != "" {
			fieldOpts = append(append([]resolver.Option{}, b.resolverOpts...), resolver.WithFieldName(m.RootField))
		}
		field, err := resolver.Field(m, b.objects[m.Name], data, registry, fieldOpts...)
		if err != nil {
			return graphql.Schema{}, fmt.Errorf("root field for %s: %w", m.Name, err)
		}
		if _, dup := rootFields[field.Name]; dup {
			return graphql.Schema{}, fmt.Errorf("root field %s is declared by more than one model", field.Name)
		}
		rootFields[field.Name] = field
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: rootFields,
		}),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build schema: %w", err)
	}
	return schema, nil
}

func (b *builder) objectFor(m *model.Model) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: m.Name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			fields := graphql.Fields{}
			for _, col := range m.Columns {
				fields[col.FieldName()] = &graphql.Field{Type: columnType(m, col)}
			}
			for _, rel := range m.Relations() {
				if field := b.relationField(m, rel); field != nil {
					fields[rel.FieldName()] = field
				}
			}
			return fields
		}),
	})
}

func columnType(m *model.Model, col model.Column) graphql.Output {
	if col.Name == m.PrimaryKey {
		return graphql.NewNonNull(graphql.ID)
	}
	return sqltype.MapToGraphQL(col.Type).Scalar()
}

func (b *builder) relationField(m *model.Model, rel model.Relation) *graphql.Field {
	if rel.Kind == model.KindLookup {
		fkField := naming.Camelize(rel.ForeignKey)
		return &graphql.Field{
			Type: b.lookupValue,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				record, _ := p.Source.(store.Record)
				code := record[fkField]
				if code == nil {
					return nil, nil
				}
				return map[string]any{"code": fmt.Sprint(code)}, nil
			},
		}
	}

	target, ok := b.registry.Target(rel)
	if !ok {
		b.logger.Warn("relation target not registered; field omitted",
			slog.String("model", m.Name),
			slog.String("relation", rel.Name),
		)
		return nil
	}
	object := b.objects[target.Name]

	var fieldType graphql.Output = object
	if rel.Cardinality() == model.ToMany {
		fieldType = graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(object)))
	}

	field := rel.FieldName()
	return &graphql.Field{
		Type: fieldType,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			record, ok := p.Source.(store.Record)
			if !ok {
				return nil, nil
			}
			if value, preloaded := record[field]; preloaded {
				return value, nil
			}
			ctx := p.Context
			if ctx == nil {
				ctx = context.Background()
			}
			return b.data.LoadRelation(ctx, m, rel.Name, record)
		},
	}
}

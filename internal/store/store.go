// Package store is the data-access layer: it executes point lookups for a
// model and preloads the relations named by an include plan with one batched
// query per relation and nesting level.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/model"
	"graphql-preload/internal/planner"
	"graphql-preload/internal/sqlutil"
)

// DefaultBatchSize caps the number of keys in a single IN (...) list.
const DefaultBatchSize = 500

// Record is a fetched row keyed by GraphQL field name. Preloaded relations are
// stored under the relation's field name: a Record or nil for to-one
// relations and a []Record for to-many relations.
type Record = map[string]any

// Finder performs point lookups for one model.
type Finder interface {
	Find(ctx context.Context, id any) (Record, error)
	FindByUUID(ctx context.Context, uuid string) (Record, error)
}

// IncludeResult is the outcome of ApplyIncludes: either Applied or Rejected.
type IncludeResult interface {
	includeResult()
}

// Applied carries a finder that preloads the accepted plan.
type Applied struct {
	Finder Finder
}

// Rejected carries the reason a plan cannot be preloaded.
type Rejected struct {
	Reason error
}

func (Applied) includeResult()  {}
func (Rejected) includeResult() {}

// Store executes queries for registered models.
type Store struct {
	exec      dbexec.QueryExecutor
	registry  *model.Registry
	dialect   sqlutil.Dialect
	logger    *slog.Logger
	batchSize int
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// New creates a store over the given executor.
func New(exec dbexec.QueryExecutor, registry *model.Registry, dialect sqlutil.Dialect, opts ...Option) *Store {
	s := &Store{
		exec:      exec,
		registry:  registry,
		dialect:   dialect,
		logger:    slog.Default(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scope returns a finder for m that preloads nothing.
func (s *Store) Scope(m *model.Model) Finder {
	return &Query{store: s, model: m}
}

// ApplyIncludes checks every entry of plan against the registry and returns a
// finder that preloads it, or the first reason the plan cannot be executed.
// An empty plan is always applied.
func (s *Store) ApplyIncludes(m *model.Model, plan planner.Plan) IncludeResult {
	if !m.IsRelational() {
		return Rejected{Reason: fmt.Errorf("model %v is not table-backed", m)}
	}
	if err := s.validate(m, plan); err != nil {
		return Rejected{Reason: err}
	}
	return Applied{Finder: &Query{store: s, model: m, includes: plan}}
}

func (s *Store) validate(m *model.Model, plan planner.Plan) error {
	for _, entry := range plan {
		rel, ok := m.Relation(entry.Name)
		if !ok {
			return &InvalidIncludeError{Model: m.Name, Relation: entry.Name, Reason: "no such association"}
		}
		if !rel.IsAssociation() {
			return &InvalidIncludeError{Model: m.Name, Relation: entry.Name, Reason: fmt.Sprintf("%s relation has no loader", rel.Kind)}
		}
		target, ok := s.registry.Target(rel)
		if !ok || !target.IsRelational() {
			return &InvalidIncludeError{Model: m.Name, Relation: entry.Name, Reason: fmt.Sprintf("target %q is not a table-backed model", rel.Target)}
		}
		keyOwner := target
		if rel.Kind == model.KindBelongsTo {
			keyOwner = m
		}
		if _, ok := keyOwner.Column(rel.ForeignKey); !ok {
			return &InvalidIncludeError{Model: m.Name, Relation: entry.Name, Reason: fmt.Sprintf("foreign key %s is not a column of %s", rel.ForeignKey, keyOwner.Name)}
		}
		if err := s.validate(target, entry.Children); err != nil {
			return err
		}
	}
	return nil
}

// Query is a model-scoped lookup with an optional include plan.
type Query struct {
	store    *Store
	model    *model.Model
	includes planner.Plan
}

// Find looks a record up by primary key.
func (q *Query) Find(ctx context.Context, id any) (Record, error) {
	return q.findBy(ctx, q.model.PrimaryKey, id)
}

// FindByUUID looks a record up by the model's uuid column.
func (q *Query) FindByUUID(ctx context.Context, uuid string) (Record, error) {
	if !q.model.HasUUID() {
		return nil, fmt.Errorf("model %s has no uuid column", q.model.Name)
	}
	return q.findBy(ctx, q.model.UUIDColumn, uuid)
}

func (q *Query) findBy(ctx context.Context, column string, value any) (Record, error) {
	s := q.store
	d := s.dialect
	query, args, err := d.StatementBuilder().
		Select(d.QuoteIdentifiers(q.model.ColumnNames())...).
		From(d.QuoteIdentifier(q.model.Table)).
		Where(d.QuoteIdentifier(column)+" = ?", value).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", q.model.Name, err)
	}

	records, err := s.query(ctx, q.model, query, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Model: q.model.Name, Column: column, Key: value}
	}

	if err := s.preload(ctx, q.model, records, q.includes); err != nil {
		return nil, err
	}
	return records[0], nil
}

// LoadRelation loads a single relation of an already fetched record. It is
// the lazy path for relations that were not part of the include plan; the
// record itself is not modified.
func (s *Store) LoadRelation(ctx context.Context, m *model.Model, relationName string, record Record) (any, error) {
	if err := s.validate(m, planner.Plan{planner.Leaf(relationName)}); err != nil {
		return nil, err
	}
	rel, _ := m.Relation(relationName)
	target, _ := s.registry.Target(rel)

	probe := Record{}
	for _, key := range []string{fieldName(m.PrimaryKey), fieldName(rel.ForeignKey)} {
		if v, ok := record[key]; ok {
			probe[key] = v
		}
	}
	if _, err := s.loadRelation(ctx, m, rel, target, []Record{probe}); err != nil {
		return nil, err
	}
	return probe[rel.FieldName()], nil
}

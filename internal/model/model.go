// Package model describes relational entity types (models), their columns and
// their named relations, and holds them in an immutable registry built once at
// startup.
package model

import (
	"fmt"
	"strings"

	"graphql-preload/internal/naming"
)

// Kind identifies how a relation is backed.
type Kind string

const (
	// KindBelongsTo is a to-one relation whose foreign key lives on the owner.
	KindBelongsTo Kind = "belongs_to"
	// KindHasOne is a to-one relation whose foreign key lives on the target.
	KindHasOne Kind = "has_one"
	// KindHasMany is a to-many relation whose foreign key lives on the target.
	KindHasMany Kind = "has_many"
	// KindLookup is an enum-like reference into a lookup table. It is listed
	// among a model's relations but has no loader, so it is never preloaded.
	KindLookup Kind = "lookup"
)

// Cardinality is the number of records a relation yields.
type Cardinality int

const (
	ToOne Cardinality = iota
	ToMany
)

func (c Cardinality) String() string {
	if c == ToMany {
		return "to-many"
	}
	return "to-one"
}

// Column is a persisted attribute of a model.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// FieldName is the GraphQL field name for the column.
func (c Column) FieldName() string {
	return naming.Camelize(c.Name)
}

// Relation is a named reference from one model to another.
type Relation struct {
	Name       string
	Kind       Kind
	Target     string
	ForeignKey string
}

// Cardinality reports whether the relation yields one record or a collection.
func (r Relation) Cardinality() Cardinality {
	if r.Kind == KindHasMany {
		return ToMany
	}
	return ToOne
}

// IsAssociation reports whether the relation can actually be loaded: it must
// be a belongs_to/has_one/has_many with a target and a foreign key.
func (r Relation) IsAssociation() bool {
	switch r.Kind {
	case KindBelongsTo, KindHasOne, KindHasMany:
		return r.Target != "" && r.ForeignKey != ""
	default:
		return false
	}
}

// FieldName is the GraphQL field name for the relation, also used as the key
// of preloaded values in fetched records.
func (r Relation) FieldName() string {
	return naming.Camelize(r.Name)
}

// Model is the descriptor of a relational entity type. A model without a
// table describes a plain object type that is not persisted.
type Model struct {
	Name       string
	Table      string
	PrimaryKey string
	UUIDColumn string
	RootField  string // overrides the generated root query field name
	Columns    []Column

	relations     []Relation
	relationIndex map[string]int
	columnIndex   map[string]int
}

// IsRelational reports whether the model is backed by a table.
func (m *Model) IsRelational() bool {
	return m != nil && m.Table != ""
}

// HasUUID reports whether the model supports secondary-key lookups.
func (m *Model) HasUUID() bool {
	return m.UUIDColumn != ""
}

// Relation looks up a relation by name. Matching ignores case and word
// separators, so "orderItems" and "order_items" address the same relation.
func (m *Model) Relation(name string) (Relation, bool) {
	if m == nil {
		return Relation{}, false
	}
	idx, ok := m.relationIndex[naming.NormalizeKey(name)]
	if !ok {
		return Relation{}, false
	}
	return m.relations[idx], true
}

// Relations returns the model's relations in declaration order.
func (m *Model) Relations() []Relation {
	out := make([]Relation, len(m.relations))
	copy(out, m.relations)
	return out
}

// Column looks up a column by its exact name.
func (m *Model) Column(name string) (Column, bool) {
	idx, ok := m.columnIndex[name]
	if !ok {
		return Column{}, false
	}
	return m.Columns[idx], true
}

// ColumnNames returns the column names in declaration order.
func (m *Model) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, col := range m.Columns {
		names[i] = col.Name
	}
	return names
}

func (m *Model) String() string {
	return m.Name
}

// NewModel builds a model from its configuration and checks everything that
// can be checked without seeing the other models.
func NewModel(cfg Config) (*Model, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if naming.IsReservedTypeName(name) {
		return nil, fmt.Errorf("model %s: name is reserved in GraphQL", name)
	}

	m := &Model{
		Name:          name,
		Table:         strings.TrimSpace(cfg.Table),
		PrimaryKey:    strings.TrimSpace(cfg.PrimaryKey),
		UUIDColumn:    strings.TrimSpace(cfg.UUIDColumn),
		RootField:     strings.TrimSpace(cfg.RootField),
		relationIndex: make(map[string]int, len(cfg.Relations)),
		columnIndex:   make(map[string]int, len(cfg.Columns)),
	}

	if naming.IsReservedFieldName(m.RootField) {
		return nil, fmt.Errorf("model %s: root field %s is reserved for introspection", name, m.RootField)
	}

	fieldNames := make(map[string]string, len(cfg.Columns))
	for _, colCfg := range cfg.Columns {
		col := Column{Name: strings.TrimSpace(colCfg.Name), Type: colCfg.Type, Nullable: colCfg.Nullable}
		if col.Name == "" {
			return nil, fmt.Errorf("model %s: column name is required", name)
		}
		if _, dup := m.columnIndex[col.Name]; dup {
			return nil, fmt.Errorf("model %s: duplicate column %s", name, col.Name)
		}
		if other, dup := fieldNames[col.FieldName()]; dup {
			return nil, fmt.Errorf("model %s: columns %s and %s map to the same field %s", name, other, col.Name, col.FieldName())
		}
		m.columnIndex[col.Name] = len(m.Columns)
		m.Columns = append(m.Columns, col)
		fieldNames[col.FieldName()] = col.Name
	}

	if m.IsRelational() {
		if m.PrimaryKey == "" {
			m.PrimaryKey = "id"
		}
		if _, ok := m.columnIndex[m.PrimaryKey]; !ok {
			return nil, fmt.Errorf("model %s: primary key %s is not a declared column", name, m.PrimaryKey)
		}
	}
	if m.UUIDColumn != "" {
		if _, ok := m.columnIndex[m.UUIDColumn]; !ok {
			return nil, fmt.Errorf("model %s: uuid column %s is not a declared column", name, m.UUIDColumn)
		}
	}

	for _, relCfg := range cfg.Relations {
		rel := Relation{
			Name:       strings.TrimSpace(relCfg.Name),
			Kind:       Kind(strings.ToLower(strings.TrimSpace(relCfg.Kind))),
			Target:     strings.TrimSpace(relCfg.Target),
			ForeignKey: strings.TrimSpace(relCfg.ForeignKey),
		}
		if rel.Name == "" {
			return nil, fmt.Errorf("model %s: relation name is required", name)
		}
		switch rel.Kind {
		case KindBelongsTo, KindHasOne, KindHasMany, KindLookup:
		default:
			return nil, fmt.Errorf("model %s: relation %s has unknown kind %q", name, rel.Name, relCfg.Kind)
		}
		key := naming.NormalizeKey(rel.Name)
		if idx, dup := m.relationIndex[key]; dup {
			return nil, fmt.Errorf("model %s: relation %s duplicates %s", name, rel.Name, m.relations[idx].Name)
		}
		if col, clash := fieldNames[rel.FieldName()]; clash {
			return nil, fmt.Errorf("model %s: relation %s collides with column %s", name, rel.Name, col)
		}
		if rel.ForeignKey == "" {
			rel.ForeignKey = defaultForeignKey(m.Name, rel)
		}
		if rel.Kind == KindBelongsTo || rel.Kind == KindLookup {
			if _, ok := m.columnIndex[rel.ForeignKey]; !ok {
				return nil, fmt.Errorf("model %s: relation %s foreign key %s is not a declared column", name, rel.Name, rel.ForeignKey)
			}
		}
		m.relationIndex[key] = len(m.relations)
		m.relations = append(m.relations, rel)
	}

	return m, nil
}

// defaultForeignKey follows the usual convention: the owner side carries
// "<relation>_id", the target side carries "<owner model>_id".
func defaultForeignKey(owner string, rel Relation) string {
	switch rel.Kind {
	case KindHasOne, KindHasMany:
		return naming.Underscore(owner) + "_id"
	default:
		return naming.Underscore(rel.Name) + "_id"
	}
}

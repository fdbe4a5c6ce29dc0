package planner

import (
	"log/slog"

	"github.com/graphql-go/graphql/language/ast"

	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
)

// Inflector produces singular and plural forms of a word.
type Inflector interface {
	Singularize(word string) string
	Pluralize(word string) string
}

// TypeRegistry resolves a canonical type name to a model descriptor.
type TypeRegistry interface {
	Lookup(typeName string) (*model.Model, bool)
}

// Planner computes include plans. It holds only read-only collaborators and
// may be shared across goroutines.
type Planner struct {
	types     TypeRegistry
	inflector Inflector
	logger    *slog.Logger
}

// Option customizes a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for debug traces of planning decisions.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Planner backed by the given type registry and inflector.
func New(types TypeRegistry, inflector Inflector, opts ...Option) *Planner {
	p := &Planner{
		types:     types,
		inflector: inflector,
		logger:    slog.Default(),
	}
	if p.inflector == nil {
		p.inflector = naming.Default()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan walks selections as seen from m and returns the relations of m that
// must be preloaded. Planning never fails: selections it cannot attribute to a
// relation are either passed through to m or dropped.
func (p *Planner) Plan(m *model.Model, selections []ast.Selection, fragments map[string]ast.Definition) Plan {
	w := &walker{
		planner:   p,
		fragments: fragments,
		expanding: make(map[string]bool),
	}
	return w.plan(m, selections)
}

type walker struct {
	planner   *Planner
	fragments map[string]ast.Definition
	// expanding holds the fragment spreads on the current path.
	expanding map[string]bool
}

// target is what a single selection points at once fragment indirection is resolved.
type target struct {
	name       string
	selections []ast.Selection
	fragment   string
}

func (w *walker) plan(m *model.Model, selections []ast.Selection) Plan {
	var out Plan
	for _, selection := range selections {
		tgt, ok := w.resolve(selection)
		if !ok || len(tgt.selections) == 0 {
			continue
		}

		// The plural is derived from the singular so names that are already
		// plural (people, orders) round-trip to themselves.
		singular := w.planner.inflector.Singularize(tgt.name)
		plural := w.planner.inflector.Pluralize(singular)
		next := w.nestedModel(m, singular)

		if tgt.fragment != "" {
			w.expanding[tgt.fragment] = true
		}
		nested := w.plan(next, tgt.selections)
		if tgt.fragment != "" {
			delete(w.expanding, tgt.fragment)
		}

		relation, isRelation := w.relationName(m, singular, plural)
		switch {
		case isRelation && len(nested) > 0:
			out = append(out, Entry{Name: relation, Children: nested})
		case len(nested) > 0:
			// Not a relation of m: whatever it reaches is attributed to m.
			out = append(out, nested...)
		case isRelation:
			out = append(out, Entry{Name: relation})
		}
	}
	return out
}

// resolve reports the effective name and child selections of a selection.
// Inline fragments are skipped because the concrete type behind them is not
// known while planning, and guessing would request relations that may not
// exist on the resolved type.
func (w *walker) resolve(selection ast.Selection) (target, bool) {
	switch sel := selection.(type) {
	case *ast.Field:
		if sel.Name == nil {
			return target{}, false
		}
		return target{name: sel.Name.Value, selections: selectionsOf(sel.SelectionSet)}, true
	case *ast.FragmentSpread:
		if sel.Name == nil {
			return target{}, false
		}
		fragmentName := sel.Name.Value
		if w.expanding[fragmentName] {
			return target{}, false
		}
		def, ok := w.fragments[fragmentName]
		if !ok {
			w.planner.logger.Debug("fragment spread references unknown fragment",
				slog.String("fragment", fragmentName),
			)
			return target{}, false
		}
		fragment, ok := def.(*ast.FragmentDefinition)
		if !ok || fragment.TypeCondition == nil || fragment.TypeCondition.Name == nil {
			return target{}, false
		}
		return target{
			name:       naming.Underscore(fragment.TypeCondition.Name.Value),
			selections: selectionsOf(fragment.SelectionSet),
			fragment:   fragmentName,
		}, true
	case *ast.InlineFragment:
		return target{}, false
	default:
		return target{}, false
	}
}

// nestedModel picks the model that child selections are planned against. A
// name that does not resolve to a table-backed model keeps the current model.
func (w *walker) nestedModel(current *model.Model, singular string) *model.Model {
	if w.planner.types == nil {
		return current
	}
	next, ok := w.planner.types.Lookup(naming.Classify(singular))
	if !ok || !next.IsRelational() {
		return current
	}
	return next
}

// relationName finds the association of m named by the singular form (to-one)
// or, failing that, the plural form (to-many).
func (w *walker) relationName(m *model.Model, singular, plural string) (string, bool) {
	for _, candidate := range []string{singular, plural} {
		rel, ok := m.Relation(candidate)
		if !ok {
			continue
		}
		if !rel.IsAssociation() {
			w.planner.logger.Debug("skipping relation without a loader",
				slog.String("model", m.Name),
				slog.String("relation", rel.Name),
				slog.String("kind", string(rel.Kind)),
			)
			continue
		}
		return rel.Name, true
	}
	return "", false
}

func selectionsOf(set *ast.SelectionSet) []ast.Selection {
	if set == nil {
		return nil
	}
	return set.Selections
}

package model

import (
	"fmt"
)

// Registry maps canonical type names to model descriptors. It is built once
// and is safe for concurrent reads because it is never mutated afterwards.
type Registry struct {
	models map[string]*Model
	order  []*Model
}

// NewRegistry validates cross-model references and returns an immutable registry.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{
		models: make(map[string]*Model, len(models)),
		order:  make([]*Model, 0, len(models)),
	}
	for _, m := range models {
		if m == nil {
			return nil, fmt.Errorf("nil model")
		}
		if _, dup := r.models[m.Name]; dup {
			return nil, fmt.Errorf("duplicate model %s", m.Name)
		}
		r.models[m.Name] = m
		r.order = append(r.order, m)
	}

	for _, m := range r.order {
		for _, rel := range m.relations {
			if rel.Kind == KindLookup {
				continue
			}
			target, ok := r.models[rel.Target]
			if !ok {
				return nil, fmt.Errorf("model %s: relation %s targets unknown model %q", m.Name, rel.Name, rel.Target)
			}
			if !m.IsRelational() || !target.IsRelational() {
				return nil, fmt.Errorf("model %s: relation %s must connect two table-backed models", m.Name, rel.Name)
			}
			if rel.Kind == KindHasOne || rel.Kind == KindHasMany {
				if _, ok := target.Column(rel.ForeignKey); !ok {
					return nil, fmt.Errorf("model %s: relation %s foreign key %s is not a column of %s", m.Name, rel.Name, rel.ForeignKey, target.Name)
				}
			}
		}
	}

	return r, nil
}

// Build creates every model from configuration and returns the registry.
func Build(cfgs []Config) (*Registry, error) {
	models := make([]*Model, 0, len(cfgs))
	for _, cfg := range cfgs {
		m, err := NewModel(cfg)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return NewRegistry(models...)
}

// Lookup returns the model registered under the canonical type name.
func (r *Registry) Lookup(typeName string) (*Model, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.models[typeName]
	return m, ok
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []*Model {
	out := make([]*Model, len(r.order))
	copy(out, r.order)
	return out
}

// Target resolves the model a relation points at. Lookup relations have none.
func (r *Registry) Target(rel Relation) (*Model, bool) {
	if rel.Kind == KindLookup {
		return nil, false
	}
	return r.Lookup(rel.Target)
}

// Package planner converts the selection tree of a GraphQL field into an
// include plan: the nested set of relations a data-access layer has to preload
// so that resolving the selection needs no per-row follow-up queries.
package planner

import "strings"

// Entry is one relation to preload. An entry without children is a leaf.
type Entry struct {
	Name     string
	Children Plan
}

// IsLeaf reports whether the entry has no nested relations.
func (e Entry) IsLeaf() bool {
	return len(e.Children) == 0
}

// Plan is an ordered list of relations to preload, in order of first
// encounter in the selection tree.
type Plan []Entry

// Empty reports whether the plan requests no preloading at all.
func (p Plan) Empty() bool {
	return len(p) == 0
}

// Size counts every entry in the plan, nested ones included.
func (p Plan) Size() int {
	total := 0
	for _, entry := range p {
		total += 1 + entry.Children.Size()
	}
	return total
}

// Depth is the longest chain of nested entries.
func (p Plan) Depth() int {
	deepest := 0
	for _, entry := range p {
		if d := 1 + entry.Children.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// String renders the plan compactly, e.g. "[product orders:[line_items]]".
func (p Plan) String() string {
	var b strings.Builder
	p.write(&b)
	return b.String()
}

func (p Plan) write(b *strings.Builder) {
	b.WriteByte('[')
	for i, entry := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(entry.Name)
		if !entry.IsLeaf() {
			b.WriteByte(':')
			entry.Children.write(b)
		}
	}
	b.WriteByte(']')
}

// Leaf is shorthand for a plan entry with no nested relations.
func Leaf(name string) Entry {
	return Entry{Name: name}
}

// Nest is shorthand for a plan entry with nested relations.
func Nest(name string, children ...Entry) Entry {
	return Entry{Name: name, Children: Plan(children)}
}

// Package hierarchy answers subtype and method-lookup queries over the class
// hierarchy of a view. An Index is built once per analysis run and never
// changes afterwards.
package hierarchy

import (
	"slices"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// Index holds the direct subclass and implementer relations of a view.
type Index struct {
	view         view.View
	subclasses   map[ir.ClassType][]ir.ClassType
	implementers map[ir.ClassType][]ir.ClassType
}

// New scans every class of v once.
func New(v view.View) *Index {
	idx := &Index{
		view:         v,
		subclasses:   make(map[ir.ClassType][]ir.ClassType),
		implementers: make(map[ir.ClassType][]ir.ClassType),
	}
	// Classes come sorted, so every edge list is sorted too.
	for _, c := range v.Classes() {
		if super, ok := c.Superclass(); ok {
			idx.subclasses[super] = append(idx.subclasses[super], c.Name)
		}
		for _, i := range c.Interfaces() {
			idx.implementers[i] = append(idx.implementers[i], c.Name)
		}
	}
	return idx
}

// View returns the view the index was built from.
func (idx *Index) View() view.View { return idx.view }

// IsInterface reports whether t is a known interface.
func (idx *Index) IsInterface(t ir.ClassType) bool {
	c, ok := idx.view.Class(t)
	return ok && c.IsInterface()
}

// DirectSubtypes returns the classes that extend t and, when t is an
// interface, the classes and interfaces that implement or extend it.
func (idx *Index) DirectSubtypes(t ir.ClassType) []ir.ClassType {
	out := idx.subclasses[t]
	if idx.IsInterface(t) {
		out = append(slices.Clip(out), idx.implementers[t]...)
	}
	return out
}

// Closure returns t and all its transitive subtypes in breadth-first order.
// Types unknown to the view are included but not expanded.
func (idx *Index) Closure(t ir.ClassType) []ir.ClassType {
	seen := map[ir.ClassType]struct{}{t: {}}
	out := []ir.ClassType{t}
	for queue := []ir.ClassType{t}; len(queue) > 0; {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := idx.view.Class(cur); !ok {
			continue
		}
		for _, sub := range idx.DirectSubtypes(cur) {
			if _, ok := seen[sub]; ok {
				continue
			}
			seen[sub] = struct{}{}
			out = append(out, sub)
			queue = append(queue, sub)
		}
	}
	return out
}

// WalkPolicy controls the upward method search.
type WalkPolicy struct {
	// SkipInterfaces ignores interfaces met on the way up.
	SkipInterfaces bool
}

// FindMethods walks the superclass chain starting at start and returns the
// methods of the first class declaring a method with the name and exact
// parameter list of sig. All matches within that class are returned. The walk
// stops at the first class that is not in the view.
func (idx *Index) FindMethods(start ir.ClassType, sig ir.MethodSignature, policy WalkPolicy) []ir.MethodSignature {
	seen := make(map[ir.ClassType]struct{})
	for cur := start; cur != ""; {
		if _, ok := seen[cur]; ok {
			return nil
		}
		seen[cur] = struct{}{}

		c, ok := idx.view.Class(cur)
		if !ok {
			return nil
		}
		if !policy.SkipInterfaces || !c.IsInterface() {
			if ms := c.MethodsMatching(sig); len(ms) > 0 {
				out := make([]ir.MethodSignature, len(ms))
				for i, m := range ms {
					out[i] = m.Signature()
				}
				return out
			}
		}
		cur, _ = c.Superclass()
	}
	return nil
}

package vta

import (
	"slices"

	"github.com/yourbasic/graph"
	"golang.org/x/tools/container/intsets"

	"github.com/715d/irflow/pkg/ir"
)

// TypeGraph is the type propagation graph: nodes are IR values, an edge
// a -> b means every type a may hold flows into b, and each node carries the
// set of class types it may hold.
//
// Field references are identified by their text, so every occurrence of
// "r0.<A: B f>" is one node. Every other value is identified by object
// identity; the front end interns locals per method body, so a local is one
// node per body while two equal constants or expressions are two nodes. This
// is an approximation: it is neither field- nor occurrence-precise.
//
// Tag sets only grow. A published set is never mutated: growing a node's tags
// builds a new set and replaces the old one.
type TypeGraph struct {
	ids    map[any]int
	values []ir.Value
	succs  [][]int
	tags   []*intsets.Sparse

	typeIDs map[ir.ClassType]int
	types   []ir.ClassType
}

// NewTypeGraph returns an empty graph.
func NewTypeGraph() *TypeGraph {
	return &TypeGraph{
		ids:     make(map[any]int),
		typeIDs: make(map[ir.ClassType]int),
	}
}

func keyOf(v ir.Value) any {
	switch v := v.(type) {
	case *ir.InstanceFieldRef, *ir.StaticFieldRef:
		return "field " + v.String()
	}
	return v
}

// Node returns the id of v, adding it when new.
func (g *TypeGraph) Node(v ir.Value) int {
	k := keyOf(v)
	if id, ok := g.ids[k]; ok {
		return id
	}
	id := len(g.values)
	g.ids[k] = id
	g.values = append(g.values, v)
	g.succs = append(g.succs, nil)
	g.tags = append(g.tags, nil)
	return id
}

// lookup returns the id of v without adding it.
func (g *TypeGraph) lookup(v ir.Value) (int, bool) {
	id, ok := g.ids[keyOf(v)]
	return id, ok
}

// NumNodes returns the number of nodes.
func (g *TypeGraph) NumNodes() int { return len(g.values) }

// NumTypes returns the number of distinct class types seen so far.
func (g *TypeGraph) NumTypes() int { return len(g.types) }

// AddEdge records that types flow from src to dst.
func (g *TypeGraph) AddEdge(src, dst ir.Value) {
	from, to := g.Node(src), g.Node(dst)
	if slices.Contains(g.succs[from], to) {
		return
	}
	g.succs[from] = append(g.succs[from], to)
}

// HasEdge reports whether types flow directly from src to dst.
func (g *TypeGraph) HasEdge(src, dst ir.Value) bool {
	from, ok := g.lookup(src)
	if !ok {
		return false
	}
	to, ok := g.lookup(dst)
	return ok && slices.Contains(g.succs[from], to)
}

func (g *TypeGraph) typeID(t ir.ClassType) int {
	if id, ok := g.typeIDs[t]; ok {
		return id
	}
	id := len(g.types)
	g.typeIDs[t] = id
	g.types = append(g.types, t)
	return id
}

// Tag adds t to the tags of v. It returns whether the tags grew.
func (g *TypeGraph) Tag(v ir.Value, t ir.ClassType) bool {
	var s intsets.Sparse
	s.Insert(g.typeID(t))
	return g.addTags(g.Node(v), &s)
}

// addTags merges s into the tags of node id by replacement.
func (g *TypeGraph) addTags(id int, s *intsets.Sparse) bool {
	if s == nil || s.IsEmpty() {
		return false
	}
	cur := g.tags[id]
	if cur != nil && s.SubsetOf(cur) {
		return false
	}
	next := new(intsets.Sparse)
	if cur != nil {
		next.Copy(cur)
	}
	next.UnionWith(s)
	g.tags[id] = next
	return true
}

// Tags returns the class types v may hold, sorted.
func (g *TypeGraph) Tags(v ir.Value) []ir.ClassType {
	id, ok := g.lookup(v)
	if !ok {
		return nil
	}
	return g.typesOf(g.tags[id])
}

func (g *TypeGraph) typesOf(s *intsets.Sparse) []ir.ClassType {
	if s == nil {
		return nil
	}
	var ids []int
	ids = s.AppendTo(ids)
	out := make([]ir.ClassType, len(ids))
	for i, id := range ids {
		out[i] = g.types[id]
	}
	slices.Sort(out)
	return out
}

// order returns the nodes grouped so that a node's strongly connected
// component comes before the components it feeds. Propagating in this order
// moves tags from sources to sinks in few passes; any order reaches the same
// fixpoint.
func (g *TypeGraph) order() []int {
	dg := graph.New(len(g.values))
	for from, succs := range g.succs {
		for _, to := range succs {
			dg.Add(from, to)
		}
	}
	// Tarjan emits components sinks first.
	comps := graph.StrongComponents(dg)
	out := make([]int, 0, len(g.values))
	for i := len(comps) - 1; i >= 0; i-- {
		out = append(out, comps[i]...)
	}
	return out
}

// propagate pushes every node's tags to its successors once, in the given
// order. It returns whether any tag set grew.
func (g *TypeGraph) propagate(order []int) bool {
	changed := false
	for _, from := range order {
		src := g.tags[from]
		if src == nil {
			continue
		}
		for _, to := range g.succs[from] {
			if g.addTags(to, src) {
				changed = true
			}
		}
	}
	return changed
}

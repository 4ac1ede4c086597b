// Package callgraph holds the call graph data structure, the worklist
// builder shared by all resolution strategies and entry-point discovery.
package callgraph

import (
	"maps"
	"slices"
	"strings"

	"github.com/715d/irflow/pkg/ir"
)

// Set is a generic set.
type Set[T comparable] map[T]struct{}

// Edge is a caller to callee pair.
type Edge struct {
	Caller ir.MethodSignature
	Callee ir.MethodSignature
}

func (e Edge) String() string { return e.Caller.String() + " -> " + e.Callee.String() }

// Graph maps each method to the set of methods it may call. It only grows:
// nodes and edges are added idempotently and never removed.
type Graph struct {
	nodes map[string]ir.MethodSignature
	edges map[string]Set[string]
	count int
}

// New returns an empty call graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]ir.MethodSignature),
		edges: make(map[string]Set[string]),
	}
}

// AddNode inserts sig. It returns false when sig was already present.
func (g *Graph) AddNode(sig ir.MethodSignature) bool {
	key := sig.String()
	if _, ok := g.nodes[key]; ok {
		return false
	}
	g.nodes[key] = sig
	return true
}

// HasNode reports whether sig is a node.
func (g *Graph) HasNode(sig ir.MethodSignature) bool {
	_, ok := g.nodes[sig.String()]
	return ok
}

// AddEdge inserts caller -> callee. Both endpoints must already be nodes; an
// edge with a missing endpoint is rejected. It returns whether the edge is
// new.
func (g *Graph) AddEdge(caller, callee ir.MethodSignature) bool {
	from, to := caller.String(), callee.String()
	if _, ok := g.nodes[from]; !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	out := g.edges[from]
	if out == nil {
		out = make(Set[string])
		g.edges[from] = out
	}
	if _, ok := out[to]; ok {
		return false
	}
	out[to] = struct{}{}
	g.count++
	return true
}

// HasEdge reports whether caller -> callee is an edge.
func (g *Graph) HasEdge(caller, callee ir.MethodSignature) bool {
	_, ok := g.edges[caller.String()][callee.String()]
	return ok
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int { return g.count }

// Nodes returns all nodes sorted by their canonical string.
func (g *Graph) Nodes() []ir.MethodSignature {
	keys := slices.Sorted(maps.Keys(g.nodes))
	out := make([]ir.MethodSignature, len(keys))
	for i, k := range keys {
		out[i] = g.nodes[k]
	}
	return out
}

// Callees returns the targets of sig sorted by canonical string.
func (g *Graph) Callees(sig ir.MethodSignature) []ir.MethodSignature {
	keys := slices.Sorted(maps.Keys(g.edges[sig.String()]))
	out := make([]ir.MethodSignature, len(keys))
	for i, k := range keys {
		out[i] = g.nodes[k]
	}
	return out
}

// Edges returns every edge sorted by caller then callee.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.count)
	for _, caller := range g.Nodes() {
		for _, callee := range g.Callees(caller) {
			out = append(out, Edge{Caller: caller, Callee: callee})
		}
	}
	return out
}

// String renders one edge per line.
func (g *Graph) String() string {
	var b strings.Builder
	for _, e := range g.Edges() {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

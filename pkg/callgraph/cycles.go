package callgraph

import (
	"slices"
	"strings"

	"github.com/yourbasic/graph"

	"github.com/715d/irflow/pkg/ir"
)

// Stats summarises a call graph.
type Stats struct {
	Nodes  int `json:"nodes"`
	Edges  int `json:"edges"`
	Cycles int `json:"cycles"` // strongly connected components that contain a cycle
}

// Stats computes node, edge and recursion-cycle counts.
func (g *Graph) Stats() Stats {
	return Stats{Nodes: g.NumNodes(), Edges: g.NumEdges(), Cycles: len(g.Cycles())}
}

// Cycles returns the groups of mutually recursive methods: strongly connected
// components with more than one method, or a single method calling itself.
// Each group is sorted by signature, and groups are ordered by their first
// member.
func (g *Graph) Cycles() [][]ir.MethodSignature {
	nodes := g.Nodes()
	ids := make(map[string]int, len(nodes))
	for i, n := range nodes {
		ids[n.String()] = i
	}
	dg := graph.New(len(nodes))
	for i, n := range nodes {
		for callee := range g.edges[n.String()] {
			dg.Add(i, ids[callee])
		}
	}

	var out [][]ir.MethodSignature
	for _, comp := range graph.StrongComponents(dg) {
		if len(comp) == 1 && !dg.Edge(comp[0], comp[0]) {
			continue
		}
		// Node indices follow the sorted node order.
		slices.Sort(comp)
		group := make([]ir.MethodSignature, len(comp))
		for i, id := range comp {
			group[i] = nodes[id]
		}
		out = append(out, group)
	}
	slices.SortFunc(out, func(x, y []ir.MethodSignature) int {
		return strings.Compare(x[0].String(), y[0].String())
	})
	return out
}

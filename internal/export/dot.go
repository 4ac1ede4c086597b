// Package export writes call graphs to Graphviz DOT and to Neo4j.
package export

import (
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"

	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/ir"
)

// methodNode wraps a call graph node so gonum can encode it. IDs follow the
// sorted node order of the source graph, which keeps the output stable.
type methodNode struct {
	id  int64
	sig ir.MethodSignature
}

// ID implements graph.Node.
func (n methodNode) ID() int64 { return n.id }

// DOTID implements dot.Node. Signatures are quoted here: unquoted, their
// angle brackets would read as an HTML ID.
func (n methodNode) DOTID() string { return strconv.Quote(n.sig.String()) }

// Directed converts g into a gonum directed multigraph. A multigraph is used
// because it admits self loops, so recursive calls survive the conversion.
func Directed(g *callgraph.Graph) *multi.DirectedGraph {
	out := multi.NewDirectedGraph()
	ids := make(map[string]graph.Node, g.NumNodes())
	for i, sig := range g.Nodes() {
		n := methodNode{id: int64(i), sig: sig}
		ids[sig.String()] = n
		out.AddNode(n)
	}
	for _, e := range g.Edges() {
		from, to := ids[e.Caller.String()], ids[e.Callee.String()]
		out.SetLine(out.NewLine(from, to))
	}
	return out
}

// WriteDOT writes g to w as a DOT digraph called name.
func WriteDOT(w io.Writer, g *callgraph.Graph, name string) error {
	data, err := dot.MarshalMulti(Directed(g), name, "", "\t")
	if err != nil {
		return fmt.Errorf("encoding dot: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

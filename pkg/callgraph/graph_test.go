package callgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

func sig(class, name string) ir.MethodSignature {
	return ir.NewMethodSignature(ir.ClassType(class), ir.Void, name)
}

func TestGraph_NodesAndEdges(t *testing.T) {
	g := New()
	a, b, c := sig("A", "a"), sig("B", "b"), sig("C", "c")

	require.True(t, g.AddNode(a))
	require.False(t, g.AddNode(a), "node insertion is idempotent")
	require.True(t, g.AddNode(b))

	require.False(t, g.AddEdge(a, c), "edge to a missing node is rejected")
	require.False(t, g.HasEdge(a, c))

	require.True(t, g.AddEdge(a, b))
	require.False(t, g.AddEdge(a, b), "duplicate edge")
	require.True(t, g.HasEdge(a, b))
	require.False(t, g.HasEdge(b, a))

	require.Equal(t, 2, g.NumNodes())
	require.Equal(t, 1, g.NumEdges())
	require.Equal(t, []Edge{{Caller: a, Callee: b}}, g.Edges())
	require.Equal(t, "<A: void a()> -> <B: void b()>\n", g.String())
}

func TestGraph_StructuralKeys(t *testing.T) {
	g := New()
	g.AddNode(ir.NewMethodSignature("A", ir.Void, "m", "int"))
	require.True(t, g.HasNode(ir.NewMethodSignature("A", ir.Void, "m", "int")), "a fresh but equal signature is the same node")
	require.False(t, g.HasNode(ir.NewMethodSignature("A", ir.Void, "m", "long")))
}

func TestGraph_EveryEdgeEndpointIsNode(t *testing.T) {
	g := New()
	sigs := []ir.MethodSignature{sig("A", "a"), sig("B", "b"), sig("C", "c"), sig("D", "d")}
	for i, s := range sigs {
		if i%2 == 0 {
			g.AddNode(s)
		}
	}
	for _, from := range sigs {
		for _, to := range sigs {
			g.AddEdge(from, to)
		}
	}
	for _, e := range g.Edges() {
		require.True(t, g.HasNode(e.Caller))
		require.True(t, g.HasNode(e.Callee))
	}
	require.Equal(t, 4, g.NumEdges())
}

func TestGraph_Cycles(t *testing.T) {
	g := New()
	a, b, c, d := sig("A", "a"), sig("B", "b"), sig("C", "c"), sig("D", "d")
	for _, s := range []ir.MethodSignature{a, b, c, d} {
		g.AddNode(s)
	}
	g.AddEdge(a, b)
	g.AddEdge(b, a)
	g.AddEdge(b, c)
	g.AddEdge(d, d)

	require.Equal(t, [][]ir.MethodSignature{{a, b}, {d}}, g.Cycles())

	// Insertion order does not leak into the result.
	h := New()
	for _, s := range []ir.MethodSignature{d, c, b, a} {
		h.AddNode(s)
	}
	h.AddEdge(d, d)
	h.AddEdge(b, c)
	h.AddEdge(b, a)
	h.AddEdge(a, b)
	require.Equal(t, g.Cycles(), h.Cycles())

	require.Equal(t, Stats{Nodes: 4, Edges: 4, Cycles: 2}, g.Stats())
}

func TestEntryPoints(t *testing.T) {
	mainSig := ir.NewMethodSignature("", ir.Void, "main", "java.lang.String[]")
	clinit := ir.NewMethodSignature("", ir.Void, "<clinit>")
	body := ir.NewBody(nil, []ir.Stmt{&ir.ReturnVoidStmt{}})

	app := view.NewClass("App", "", nil, false,
		view.NewMethod(mainSig, true, body),
		view.NewMethod(clinit, true, body),
		view.NewMethod(ir.NewMethodSignature("", ir.Void, "helper"), true, body),
	)
	lib := view.NewClass("Lib", "", nil, false, view.NewMethod(mainSig, true, body))
	lib.Library = true
	prog := view.NewProgram("p", app, lib)

	require.Equal(t, []ir.MethodSignature{
		ir.NewMethodSignature("App", ir.Void, "main", "java.lang.String[]"),
		ir.NewMethodSignature("App", ir.Void, "<clinit>"),
	}, EntryPoints(prog))

	prog.EntryPoints = []ir.MethodSignature{ir.NewMethodSignature("App", ir.Void, "helper")}
	require.Equal(t, prog.EntryPoints, EntryPoints(prog), "declared entry points win")
}

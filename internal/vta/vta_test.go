package vta

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/internal/cha"
	"github.com/715d/irflow/internal/rta"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/frontend"
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

const (
	mainSig    = "<Main: void main(java.lang.String[])>"
	useMadeSig = "<Main: void useMade()>"
)

func loadShapes(t *testing.T) *view.Program {
	t.Helper()
	prog, err := frontend.LoadFile(t.Context(), "../../testdata/shapes/program.yaml")
	require.NoError(t, err)
	return prog
}

func edgeStrings(g *callgraph.Graph) []string {
	var out []string
	for _, e := range g.Edges() {
		out = append(out, e.String())
	}
	return out
}

func TestStrategy_Shapes(t *testing.T) {
	s := New()
	g, err := callgraph.Build(context.Background(), s, loadShapes(t))
	require.NoError(t, err)

	want := []string{
		mainSig + " -> <Circle: void <init>()>",
		mainSig + " -> <Circle: void draw()>",
		mainSig + " -> " + useMadeSig,
		mainSig + " -> <Impl: void run()>",
		useMadeSig + " -> <Main: Shape make()>",
		useMadeSig + " -> <Square: void draw()>",
	}
	require.ElementsMatch(t, want, edgeStrings(g))
	require.Equal(t, 7, g.NumNodes())

	res := s.Result()
	require.NotNil(t, res)
	require.Len(t, res.Discovered, 11)
	require.Equal(t, 2, res.Passes, "one pass moves the return type, one confirms")
}

func TestStrategy_ReturnTypesReachCallSite(t *testing.T) {
	prog := loadShapes(t)
	s := New()
	_, err := callgraph.Build(context.Background(), s, prog)
	require.NoError(t, err)

	m, ok := prog.Method(ir.NewMethodSignature("Main", ir.Void, "useMade"))
	require.True(t, ok)
	local, ok := m.Body().Local("t")
	require.True(t, ok)
	require.Equal(t, []ir.ClassType{"Square"}, s.Result().Graph.Tags(local))
}

// Every call site's targets shrink from CHA to RTA to VTA on a program whose
// receivers are all tagged.
func TestStrategies_PrecisionOrder(t *testing.T) {
	prog := loadShapes(t)
	build := func(a callgraph.Algorithm) *callgraph.Graph {
		g, err := callgraph.Build(context.Background(), a, prog)
		require.NoError(t, err)
		return g
	}
	gCHA, gRTA, gVTA := build(cha.New()), build(rta.New()), build(New())

	for _, e := range gVTA.Edges() {
		require.True(t, gRTA.HasEdge(e.Caller, e.Callee), "RTA misses %s", e)
	}
	for _, e := range gRTA.Edges() {
		require.True(t, gCHA.HasEdge(e.Caller, e.Callee), "CHA misses %s", e)
	}
	require.Less(t, gVTA.NumEdges(), gRTA.NumEdges())
	require.Less(t, gRTA.NumEdges(), gCHA.NumEdges())
}

func TestStrategy_UntaggedReceiverFallsBackToCHA(t *testing.T) {
	prog, err := frontend.Load(strings.NewReader(`
classes:
  - name: Main
    methods:
      - name: main
        static: true
        params: ["java.lang.String[]"]
        body: |
          r0 := @parameter0: java.lang.String[]
          virtualinvoke r0.<Base: void f()>()
          return
  - name: Base
    methods:
      - name: f
        body: |
          return
  - name: Derived
    super: Base
    methods:
      - name: f
        body: |
          return
`), "inline")
	require.NoError(t, err)

	g, err := callgraph.Build(context.Background(), New(), prog)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		mainSig + " -> <Base: void f()>",
		mainSig + " -> <Derived: void f()>",
	}, edgeStrings(g))
}

func TestStrategy_Deterministic(t *testing.T) {
	prog := loadShapes(t)
	first, err := callgraph.Build(context.Background(), New(), prog)
	require.NoError(t, err)
	for range 3 {
		g, err := callgraph.Build(context.Background(), New(), prog)
		require.NoError(t, err)
		require.Equal(t, first.Nodes(), g.Nodes())
		require.Equal(t, first.Edges(), g.Edges())
	}
}

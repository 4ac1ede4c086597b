package rta

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

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
		mainSig + " -> <Square: void draw()>",
		mainSig + " -> " + useMadeSig,
		mainSig + " -> <Impl: void run()>",
		useMadeSig + " -> <Main: Shape make()>",
		useMadeSig + " -> <Circle: void draw()>",
		useMadeSig + " -> <Square: void draw()>",
	}
	require.ElementsMatch(t, want, edgeStrings(g))
	require.Equal(t, 7, g.NumNodes())
	require.False(t, g.HasNode(ir.NewMethodSignature("Triangle", ir.Void, "draw")), "never instantiated")
	require.False(t, g.HasNode(ir.NewMethodSignature("Shape", ir.Void, "draw")), "abstract declarations are skipped")

	res := s.Result()
	require.NotNil(t, res)
	require.Equal(t, []ir.ClassType{"Circle", "Impl", "Square"}, res.Instantiated, "return new T counts as an allocation")
}

func TestStrategy_DiscoveredCoversGraph(t *testing.T) {
	s := New()
	g, err := callgraph.Build(context.Background(), s, loadShapes(t))
	require.NoError(t, err)

	discovered := make(map[string]bool)
	for _, m := range s.Result().Discovered {
		discovered[m.String()] = true
	}
	require.Len(t, discovered, 11, "phase one sees everything CHA reaches")
	for _, e := range g.Edges() {
		require.True(t, discovered[e.Caller.String()], e.String())
		require.True(t, discovered[e.Callee.String()], e.String())
	}
}

func TestDiscover(t *testing.T) {
	res, err := Discover(context.Background(), loadShapes(t))
	require.NoError(t, err)
	require.Equal(t, mainSig, res.Discovered[0].String(), "entry points are processed first")
	require.Equal(t, []ir.ClassType{"Circle", "Impl", "Square"}, res.Instantiated)
}

func TestStrategy_ThroughUninstantiatedSupertype(t *testing.T) {
	// Base is never allocated but Derived is; a call on Base still reaches
	// Derived's inherited implementation.
	prog, err := frontend.Load(strings.NewReader(`
classes:
  - name: Main
    methods:
      - name: main
        static: true
        params: ["java.lang.String[]"]
        body: |
          b = new Derived
          virtualinvoke b.<Base: void f()>()
          return
  - name: Base
    methods:
      - name: f
        body: |
          return
  - name: Derived
    super: Base
`), "inline")
	require.NoError(t, err)

	g, err := callgraph.Build(context.Background(), New(), prog)
	require.NoError(t, err)
	require.Equal(t, []string{mainSig + " -> <Base: void f()>"}, edgeStrings(g))
}

func TestStrategy_Deterministic(t *testing.T) {
	prog := loadShapes(t)
	first, err := callgraph.Build(context.Background(), New(), prog)
	require.NoError(t, err)
	for range 3 {
		g, err := callgraph.Build(context.Background(), New(), prog)
		require.NoError(t, err)
		require.Equal(t, first.Edges(), g.Edges())
	}
}

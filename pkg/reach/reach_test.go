package reach

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/internal/cha"
	"github.com/715d/irflow/internal/rta"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/frontend"
	"github.com/715d/irflow/pkg/view"
)

func loadShapes(t *testing.T) *view.Program {
	t.Helper()
	prog, err := frontend.LoadFile(t.Context(), "../../testdata/shapes/program.yaml")
	require.NoError(t, err)
	return prog
}

func unreachable(t *testing.T, prog *view.Program, algo callgraph.Algorithm, opts Options) []string {
	t.Helper()
	g, err := callgraph.Build(context.Background(), algo, prog)
	require.NoError(t, err)
	a, err := NewAnalyzer(prog, g, opts)
	require.NoError(t, err)

	var names []string
	for _, info := range a.Unreachable() {
		names = append(names, info.Name)
	}
	return names
}

func TestAnalyzer_Unreachable(t *testing.T) {
	prog := loadShapes(t)
	require.Equal(t, []string{"Main.unused()"}, unreachable(t, prog, cha.New(), Options{}))
	require.Equal(t, []string{"Main.unused()", "Other.run()", "Triangle.draw()"}, unreachable(t, prog, rta.New(), Options{}))
}

func TestAnalyzer_LibraryAndSuppression(t *testing.T) {
	prog, err := frontend.Load(strings.NewReader(`
classes:
  - name: app.Main
    methods:
      - name: main
        static: true
        params: ["java.lang.String[]"]
        body: |
          return
      - name: kept
        static: true
        body: |
          return // nolint:unreachable called reflectively
      - name: dead
        static: true
        body: |
          return
      - name: "<clinit>"
        static: true
        body: |
          return
  - name: java.util.Helper
    methods:
      - name: help
        body: |
          return
  - name: vendor.Lib
    library: true
    methods:
      - name: f
        body: |
          return
`), "inline")
	require.NoError(t, err)

	require.Equal(t, []string{"Main.dead()"}, unreachable(t, prog, cha.New(), Options{}))
	require.Equal(t, []string{"Main.dead()", "Helper.help()"}, unreachable(t, prog, cha.New(), Options{LibraryPrefixes: []string{}}),
		"an empty prefix list still honours declared library classes")
}

func TestAnalyzer_EntryPointsAreNotReported(t *testing.T) {
	prog := loadShapes(t)
	g := callgraph.New()
	a, err := NewAnalyzer(prog, g, Options{})
	require.NoError(t, err)

	methods := a.CollectMethods()
	a.AnalyzeMethods(methods)
	main := methods["<Main: void main(java.lang.String[])>"]
	require.NotNil(t, main)
	require.True(t, main.IsEntryPoint)
	require.False(t, main.IsReachable, "the empty graph reaches nothing")
	require.False(t, main.ShouldReport())
}

func TestNewAnalyzer_Errors(t *testing.T) {
	_, err := NewAnalyzer(nil, callgraph.New(), Options{})
	require.Error(t, err)
	_, err = NewAnalyzer(view.NewProgram("p"), nil, Options{})
	require.Error(t, err)
}

func TestAnalyzer_IsTargetClass(t *testing.T) {
	a, err := NewAnalyzer(loadShapes(t), callgraph.New(), Options{})
	require.NoError(t, err)
	require.True(t, a.IsTargetClass("Main"))
	require.False(t, a.IsTargetClass("java.lang.Object"))
	require.False(t, a.IsTargetClass("javax.crypto.Cipher"))
}

package irflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/pkg/frontend"
	"github.com/715d/irflow/pkg/view"
)

func loadProgram(t *testing.T, name string) *view.Program {
	t.Helper()
	prog, err := frontend.LoadFile(t.Context(), "../../testdata/"+name+"/program.yaml")
	require.NoError(t, err)
	return prog
}

func TestNewStrategy(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"cha", "CHA", false},
		{"RTA", "RTA", false},
		{"Vta", "VTA", false},
		{"pta", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStrategy(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownAlgorithm)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, s.Algorithm())
		})
	}
}

func TestAnalyzer_CallGraph(t *testing.T) {
	prog := loadProgram(t, "shapes")
	tests := []struct {
		algorithm string
		edges     int
		nodes     int
	}{
		{"cha", 14, 11},
		{"rta", 8, 7},
		{"vta", 6, 7},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			g, err := NewAnalyzer(AnalyzerOptions{Algorithm: tt.algorithm}).CallGraph(t.Context(), prog)
			require.NoError(t, err)
			require.Equal(t, tt.edges, g.NumEdges())
			require.Equal(t, tt.nodes, g.NumNodes())
		})
	}

	_, err := NewAnalyzer(AnalyzerOptions{Algorithm: "bogus"}).CallGraph(t.Context(), prog)
	require.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = NewAnalyzer(AnalyzerOptions{}).CallGraph(t.Context(), nil)
	require.Error(t, err)
}

func TestAnalyzer_Check(t *testing.T) {
	prog := loadProgram(t, "security")
	res, err := NewAnalyzer(AnalyzerOptions{Workers: 2}).Check(t.Context(), prog)
	require.NoError(t, err)
	require.Equal(t, 7, res.Methods)

	type row struct {
		method     string
		analysis   string
		index      int
		line       int
		suppressed bool
		reason     string
	}
	var got []row
	for _, f := range res.Findings {
		got = append(got, row{f.Method.Name, f.Analysis, f.Index, f.Line, f.Suppressed, f.Reason})
	}
	require.Equal(t, []row{
		{"crypto", AnalysisMisuse, 0, 1, false, ""},
		{"leak", AnalysisTypestate, 3, 4, false, ""},
		{"quiet", AnalysisMisuse, 0, 1, true, "legacy protocol"},
		{"quiet", AnalysisTypestate, 3, 4, true, "closed by the caller"},
	}, got)

	active := res.Active()
	require.Len(t, active, 2)
	require.Equal(t, "crypto", active[0].Method.Name)
	require.Equal(t, "leak", active[1].Method.Name)
}

func TestAnalyzer_CheckSelectedAnalyses(t *testing.T) {
	prog := loadProgram(t, "security")

	res, err := NewAnalyzer(AnalyzerOptions{Analyses: []string{AnalysisMisuse}}).Check(t.Context(), prog)
	require.NoError(t, err)
	for _, f := range res.Findings {
		require.Equal(t, AnalysisMisuse, f.Analysis)
	}
	require.Len(t, res.Findings, 2)

	_, err = NewAnalyzer(AnalyzerOptions{Analyses: []string{"nullness"}}).Check(t.Context(), prog)
	require.ErrorContains(t, err, "unknown analysis")
}

func TestAnalyzer_CheckCanceled(t *testing.T) {
	prog := loadProgram(t, "security")
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := NewAnalyzer(AnalyzerOptions{}).Check(ctx, prog)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Unreachable(t *testing.T) {
	prog := loadProgram(t, "security")
	res, err := NewAnalyzer(AnalyzerOptions{Algorithm: "cha"}).Unreachable(t.Context(), prog)
	require.NoError(t, err)
	require.Equal(t, 7, res.Total)
	require.Equal(t, 1, res.Suppressed)
	require.Equal(t, []UnreachableMethod{{
		Name:      "App.orphan()",
		Signature: "<App: void orphan()>",
		Class:     "App",
		Line:      1,
		Reason:    "not reachable from entry points under CHA",
	}}, res.Methods)
}

func TestAnalyzer_UnreachableByAlgorithm(t *testing.T) {
	prog := loadProgram(t, "shapes")
	tests := []struct {
		algorithm string
		want      []string
	}{
		{"cha", []string{"Main.unused()"}},
		{"rta", []string{"Main.unused()", "Other.run()", "Triangle.draw()"}},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			res, err := NewAnalyzer(AnalyzerOptions{Algorithm: tt.algorithm}).Unreachable(t.Context(), prog)
			require.NoError(t, err)
			var names []string
			for _, m := range res.Methods {
				names = append(names, m.Name)
			}
			require.Equal(t, tt.want, names)
		})
	}
}

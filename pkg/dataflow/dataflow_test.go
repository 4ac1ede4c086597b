package dataflow

import (
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/pkg/frontend"
	"github.com/715d/irflow/pkg/ir"
)

type defs map[string]struct{}

func (d defs) sorted() []string { return slices.Sorted(maps.Keys(d)) }

// defined collects the locals assigned on some path to each statement.
type defined struct {
	seed []string
}

func (a defined) NewInitialFlow() defs {
	d := make(defs)
	for _, s := range a.seed {
		d[s] = struct{}{}
	}
	return d
}

func (defined) Copy(src defs) defs { return maps.Clone(src) }

func (defined) Merge(x, y defs) defs {
	out := maps.Clone(x)
	maps.Copy(out, y)
	return out
}

func (defined) Equal(x, y defs) bool {
	return maps.Equal(x, y)
}

func (a defined) FlowThrough(in defs, stmt ir.Stmt) defs {
	out := a.Copy(in)
	if s, ok := stmt.(*ir.AssignStmt); ok {
		if l, ok := s.Left.(*ir.Local); ok {
			out[l.Name] = struct{}{}
		}
	}
	return out
}

func parse(t *testing.T, text string) *ir.Body {
	t.Helper()
	body, err := frontend.ParseBody(text, nil)
	require.NoError(t, err)
	return body
}

func TestSolve_StraightLine(t *testing.T) {
	body := parse(t, "x = 1\ny = x\nreturn")
	res := Solve[defs](body, defined{})

	require.Equal(t, 3, res.Len())
	require.Equal(t, 3, res.Iterations(), "loop-free bodies flow each statement once")
	require.Empty(t, res.In(0).sorted())
	require.Equal(t, []string{"x"}, res.In(1).sorted())
	require.Equal(t, []string{"x", "y"}, res.Out(2).sorted())
}

func TestSolve_Loop(t *testing.T) {
	body := parse(t, `
x = 1
head:
if x == 0 goto end
y = x
goto head
end:
return
`)
	res := Solve[defs](body, defined{})

	require.Equal(t, []string{"x", "y"}, res.In(1).sorted(), "the back edge reaches the loop header")
	require.Equal(t, []string{"x", "y"}, res.In(4).sorted())
	require.Equal(t, 7, res.Iterations(), "header and body are re-flowed once")
}

func TestSolve_EntryWithBackEdge(t *testing.T) {
	body := parse(t, "head:\nx = 1\ngoto head")
	res := Solve[defs](body, defined{seed: []string{"p"}})

	require.Equal(t, []string{"p", "x"}, res.In(0).sorted(), "entry merges the initial flow with its predecessors")
	require.Equal(t, []string{"p", "x"}, res.Out(1).sorted())
}

func TestSolve_UnreachableStatement(t *testing.T) {
	body := parse(t, "x = 1\nreturn\ny = 2\nreturn")
	res := Solve[defs](body, defined{seed: []string{"p"}})

	require.Equal(t, 4, res.Iterations(), "every statement is flowed")
	require.Equal(t, []string{"p"}, res.In(2).sorted(), "statements without predecessors start from the initial flow")
	require.Equal(t, []string{"p", "y"}, res.Out(2).sorted())
}

func TestSolve_EmptyBody(t *testing.T) {
	res := Solve[defs](ir.NewBody(nil, nil), defined{})
	require.Zero(t, res.Len())
	require.Zero(t, res.Iterations())
}

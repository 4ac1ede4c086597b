package report

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/715d/irflow/pkg/frontend"
	"github.com/715d/irflow/pkg/ir"
)

func TestCollector_Concurrent(t *testing.T) {
	body, err := frontend.ParseBody("x = 1\ny = 2\nreturn", nil)
	require.NoError(t, err)

	c := NewCollector()
	var g errgroup.Group
	for i := range 20 {
		sig := ir.NewMethodSignature("C", ir.Void, fmt.Sprintf("m%02d", i))
		g.Go(func() error {
			r := c.For("typestate")
			for j := len(body.Stmts) - 1; j >= 0; j-- {
				r.ReportVulnerability(sig, body.Stmts[j])
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, 60, c.Len())
	fs := c.Findings()
	require.Len(t, fs, 60)
	require.Equal(t, "<C: void m00()>", fs[0].MethodName)
	require.Equal(t, 0, fs[0].Index, "findings are ordered by statement within a method")
	require.Equal(t, 2, fs[2].Index)
	require.Equal(t, "<C: void m19()>", fs[59].MethodName)
}

func TestFinding_String(t *testing.T) {
	body, err := frontend.ParseBody("nop\nreturn", nil)
	require.NoError(t, err)

	f := NewFinding("typestate", ir.NewMethodSignature("C", ir.Void, "m"), body.Stmts[1])
	require.Equal(t, "<C: void m()>:2: typestate: return", f.String())
	require.Equal(t, 1, f.Index)
}

func TestCollector_OrdersAnalyses(t *testing.T) {
	body, err := frontend.ParseBody("return", nil)
	require.NoError(t, err)
	sig := ir.NewMethodSignature("C", ir.Void, "m")

	c := NewCollector()
	c.For("typestate").ReportVulnerability(sig, body.Stmts[0])
	c.For("misuse").ReportVulnerability(sig, body.Stmts[0])

	fs := c.Findings()
	require.Equal(t, []string{"misuse", "typestate"}, []string{fs[0].Analysis, fs[1].Analysis})
}

package frontend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/pkg/ir"
)

func TestParseBody_Statements(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, s ir.Stmt)
	}{
		{
			name: "allocation",
			text: "f = new target.exercise2.File",
			check: func(t *testing.T, s ir.Stmt) {
				a := s.(*ir.AssignStmt)
				require.Equal(t, "f", a.Left.String())
				require.Equal(t, &ir.NewExpr{Class: "target.exercise2.File"}, a.Right)
				require.Equal(t, ir.Type("target.exercise2.File"), a.Left.Type(), "local type inferred from allocation")
			},
		},
		{
			name: "virtual invoke",
			text: "virtualinvoke f.<target.exercise2.File: void open()>()",
			check: func(t *testing.T, s ir.Stmt) {
				call := s.(*ir.InvokeStmt).Call
				require.Equal(t, ir.InvokeVirtual, call.Kind)
				require.Equal(t, "f", call.Base.Name)
				require.Equal(t, "<target.exercise2.File: void open()>", call.Method.String())
				require.Empty(t, call.Args)
			},
		},
		{
			name: "static invoke with string literal",
			text: `c = staticinvoke <javax.crypto.Cipher: javax.crypto.Cipher getInstance(java.lang.String)>("DES")`,
			check: func(t *testing.T, s ir.Stmt) {
				call, ok := ir.InvokeOf(s)
				require.True(t, ok)
				require.Equal(t, ir.InvokeStatic, call.Kind)
				require.Nil(t, call.Base)
				require.Equal(t, []ir.Value{&ir.StringConstant{Value: "DES"}}, call.Args)
			},
		},
		{
			name: "constructor call",
			text: "specialinvoke f.<target.exercise2.File: void <init>(int,java.lang.String[])>(-3, r1)",
			check: func(t *testing.T, s ir.Stmt) {
				call := s.(*ir.InvokeStmt).Call
				require.True(t, call.Method.IsConstructor())
				require.Equal(t, []ir.Type{"int", "java.lang.String[]"}, call.Method.Params)
				require.Equal(t, int64(-3), call.Args[0].(*ir.IntConstant).Value)
			},
		},
		{
			name: "instance field store",
			text: "r0.<A: B f> = b",
			check: func(t *testing.T, s ir.Stmt) {
				a := s.(*ir.AssignStmt)
				ref := a.Left.(*ir.InstanceFieldRef)
				require.Equal(t, "r0", ref.Base.Name)
				require.Equal(t, ir.FieldSignature{Class: "A", Type: "B", Name: "f"}, ref.Field)
				require.Equal(t, "r0.<A: B f> = b", s.String())
			},
		},
		{
			name: "static field load",
			text: "b = <A: B g>",
			check: func(t *testing.T, s ir.Stmt) {
				require.IsType(t, &ir.StaticFieldRef{}, s.(*ir.AssignStmt).Right)
			},
		},
		{
			name: "cast",
			text: "b = (B) a",
			check: func(t *testing.T, s ir.Stmt) {
				c := s.(*ir.AssignStmt).Right.(*ir.CastExpr)
				require.Equal(t, ir.Type("B"), c.To)
				require.Equal(t, "a", c.Op.String())
			},
		},
		{
			name: "identity this",
			text: "r0 := @this: A",
			check: func(t *testing.T, s ir.Stmt) {
				id := s.(*ir.IdentityStmt)
				require.Equal(t, &ir.ThisRef{Class: "A"}, id.Right)
				require.Equal(t, ir.Type("A"), id.Left.Typ)
			},
		},
		{
			name: "identity parameter",
			text: "r1 := @parameter0: java.lang.String[]",
			check: func(t *testing.T, s ir.Stmt) {
				require.Equal(t, &ir.ParameterRef{Index: 0, Typ: "java.lang.String[]"}, s.(*ir.IdentityStmt).Right)
			},
		},
		{
			name: "return value",
			text: "return new B",
			check: func(t *testing.T, s ir.Stmt) {
				require.IsType(t, &ir.NewExpr{}, s.(*ir.ReturnStmt).Op)
			},
		},
		{
			name: "return void with comment",
			text: "return // nolint:typestate closed by caller",
			check: func(t *testing.T, s ir.Stmt) {
				require.IsType(t, &ir.ReturnVoidStmt{}, s)
				require.Equal(t, "nolint:typestate closed by caller", s.Source().Comment)
				require.Equal(t, 1, s.Source().Line)
			},
		},
		{
			name: "nop",
			text: "nop",
			check: func(t *testing.T, s ir.Stmt) {
				require.IsType(t, &ir.NopStmt{}, s)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := ParseBody(tt.text, nil)
			require.NoError(t, err)
			require.Len(t, body.Stmts, 1)
			tt.check(t, body.Stmts[0])
		})
	}
}

func TestParseBody_LabelsAndLocals(t *testing.T) {
	text := strings.Join([]string{
		"r0 := @parameter0: int",
		"if r0 == 0 goto done",
		"f = new target.File",
		"goto done",
		"done:",
		"return",
	}, "\n")
	body, err := ParseBody(text, map[string]ir.Type{"z": "int"})
	require.NoError(t, err)
	require.Len(t, body.Stmts, 5)

	cond := body.Stmts[1].(*ir.IfStmt)
	require.Equal(t, 4, cond.Target)
	require.Equal(t, "==", cond.Cond.(*ir.BinopExpr).Op)
	require.Equal(t, 4, body.Stmts[3].(*ir.GotoStmt).Target)
	require.Equal(t, []int{2, 4}, body.Succs(1))
	require.Equal(t, 6, body.Stmts[4].Source().Line)

	var names []string
	for _, l := range body.Locals {
		names = append(names, l.Name)
	}
	require.Equal(t, []string{"z", "r0", "f"}, names)
}

func TestParseBody_InternsLocals(t *testing.T) {
	body, err := ParseBody("x = new A\ny = x\nvirtualinvoke x.<A: void m()>()", nil)
	require.NoError(t, err)

	first := body.Stmts[0].(*ir.AssignStmt).Left
	second := body.Stmts[1].(*ir.AssignStmt).Right
	base := body.Stmts[2].(*ir.InvokeStmt).Call.Base
	require.Same(t, first, second)
	require.Same(t, first, base)
}

func TestParseBody_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unknown label", "goto nowhere"},
		{"dangling label", "return\nend:"},
		{"duplicate label", "a:\nnop\na:\nreturn"},
		{"missing operand", "x ="},
		{"trailing tokens", "return x y"},
		{"bad identity", "x := @self: A"},
		{"identity on field", "r0.<A: B f> := @this: A"},
		{"unterminated signature", "virtualinvoke x.<A: void m(>()"},
		{"if without goto", "if x == 0 return"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBody(tt.text, nil)
			require.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestParseMethodSignature(t *testing.T) {
	sig, err := ParseMethodSignature("<Main: void main(java.lang.String[])>")
	require.NoError(t, err)
	require.Equal(t, ir.NewMethodSignature("Main", ir.Void, "main", "java.lang.String[]"), sig)

	_, err = ParseMethodSignature("<Main: void main(>")
	require.ErrorIs(t, err, ErrSyntax)

	_, err = ParseMethodSignature("<Main: void main()> extra")
	require.ErrorIs(t, err, ErrSyntax)
}

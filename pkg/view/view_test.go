package view

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/pkg/ir"
)

func TestProgram_Lookup(t *testing.T) {
	open := NewMethod(ir.NewMethodSignature("", ir.Void, "open"), false, ir.NewBody(nil, []ir.Stmt{&ir.ReturnVoidStmt{}}))
	closeM := NewMethod(ir.NewMethodSignature("", ir.Void, "close"), false, nil)
	file := NewClass("target.File", "java.lang.Object", nil, false, open, closeM)
	reader := NewClass("target.Reader", "", nil, true)
	prog := NewProgram("p", reader, file)

	m, ok := prog.Method(ir.NewMethodSignature("target.File", ir.Void, "open"))
	require.True(t, ok)
	require.Same(t, open, m)
	require.True(t, m.HasBody())
	require.Same(t, file, m.Class())

	m, ok = prog.Method(ir.NewMethodSignature("target.File", ir.Void, "close"))
	require.True(t, ok)
	require.False(t, m.HasBody())
	require.True(t, m.IsAbstract())

	_, ok = prog.Method(ir.NewMethodSignature("target.File", "int", "open"))
	require.False(t, ok, "return type is part of the exact signature")

	require.Equal(t, []*Class{file, reader}, prog.Classes())

	super, ok := file.Superclass()
	require.True(t, ok)
	require.Equal(t, ir.ClassType("java.lang.Object"), super)
	require.False(t, reader.HasSuperclass())
	require.True(t, reader.IsInterface())
}

func TestProgram_AddClassReplaces(t *testing.T) {
	prog := NewProgram("p", NewClass("A", "", nil, false, NewMethod(ir.NewMethodSignature("", ir.Void, "m"), false, nil)))
	prog.AddClass(NewClass("A", "", nil, false))

	require.Len(t, prog.Classes(), 1)
	_, ok := prog.Method(ir.NewMethodSignature("A", ir.Void, "m"))
	require.False(t, ok)
}

func TestMethod_IsMain(t *testing.T) {
	tests := []struct {
		name   string
		sig    ir.MethodSignature
		static bool
		want   bool
	}{
		{"main", ir.NewMethodSignature("Main", ir.Void, "main", "java.lang.String[]"), true, true},
		{"instance main", ir.NewMethodSignature("Main", ir.Void, "main", "java.lang.String[]"), false, false},
		{"no args", ir.NewMethodSignature("Main", ir.Void, "main"), true, false},
		{"returns int", ir.NewMethodSignature("Main", "int", "main", "java.lang.String[]"), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewMethod(tt.sig, tt.static, nil).IsMain())
		})
	}
}

func TestClass_MethodsMatching(t *testing.T) {
	c := NewClass("A", "", nil, false,
		NewMethod(ir.NewMethodSignature("", ir.Void, "m", "int"), false, nil),
		NewMethod(ir.NewMethodSignature("", "int", "m", "int"), false, nil),
		NewMethod(ir.NewMethodSignature("", ir.Void, "m"), false, nil),
	)
	got := c.MethodsMatching(ir.NewMethodSignature("Other", "long", "m", "int"))
	require.Len(t, got, 2, "all matches with the same name and parameters are kept")
}

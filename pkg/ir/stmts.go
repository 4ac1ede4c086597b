package ir

import (
	"strconv"
)

// Pos locates a statement in its body and source text.
type Pos struct {
	Line    int    // 1-based line in the method body text, 0 when built in code
	Comment string // trailing comment text without the leading "//"

	index int
}

// Index returns the statement's position in its body.
func (p *Pos) Index() int { return p.index }

// Source returns the source location.
func (p *Pos) Source() Pos { return *p }

func (p *Pos) pos() *Pos { return p }

// Stmt is a single statement of a method body.
type Stmt interface {
	Index() int
	Source() Pos
	String() string
	pos() *Pos
}

// AssignStmt stores Right into Left.
type AssignStmt struct {
	Pos
	Left  Value
	Right Value
}

func (s *AssignStmt) String() string { return s.Left.String() + " = " + s.Right.String() }

// IdentityStmt binds a parameter or the receiver to a local.
type IdentityStmt struct {
	Pos
	Left  *Local
	Right Value
}

func (s *IdentityStmt) String() string { return s.Left.String() + " := " + s.Right.String() }

// InvokeStmt calls a method and discards the result.
type InvokeStmt struct {
	Pos
	Call *InvokeExpr
}

func (s *InvokeStmt) String() string { return s.Call.String() }

// ReturnStmt returns Op.
type ReturnStmt struct {
	Pos
	Op Value
}

func (s *ReturnStmt) String() string { return "return " + s.Op.String() }

// ReturnVoidStmt returns without a value.
type ReturnVoidStmt struct {
	Pos
}

func (*ReturnVoidStmt) String() string { return "return" }

// IfStmt branches to Target when Cond holds and falls through otherwise.
type IfStmt struct {
	Pos
	Cond   Value
	Target int
}

func (s *IfStmt) String() string { return "if " + s.Cond.String() + " goto " + strconv.Itoa(s.Target) }

// GotoStmt jumps to Target.
type GotoStmt struct {
	Pos
	Target int
}

func (s *GotoStmt) String() string { return "goto " + strconv.Itoa(s.Target) }

// NopStmt does nothing.
type NopStmt struct {
	Pos
}

func (*NopStmt) String() string { return "nop" }

// InvokeOf returns the call carried by s: the call of an InvokeStmt, or the
// right-hand side of an AssignStmt when that is a call.
func InvokeOf(s Stmt) (*InvokeExpr, bool) {
	switch s := s.(type) {
	case *InvokeStmt:
		return s.Call, true
	case *AssignStmt:
		call, ok := s.Right.(*InvokeExpr)
		return call, ok
	}
	return nil, false
}

// IsReturn reports whether s leaves the method.
func IsReturn(s Stmt) bool {
	switch s.(type) {
	case *ReturnStmt, *ReturnVoidStmt:
		return true
	}
	return false
}

// SetSource records where s came from.
func SetSource(s Stmt, line int, comment string) {
	p := s.pos()
	p.Line = line
	p.Comment = comment
}

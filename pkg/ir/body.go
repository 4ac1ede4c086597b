package ir

import (
	"slices"
	"strings"
)

// Body is the ordered statement list of a method together with its locals.
// Statement i falls through to i+1 unless it returns or jumps.
type Body struct {
	Locals []*Local
	Stmts  []Stmt

	succs [][]int
	preds [][]int
}

// NewBody numbers stmts and builds the statement graph. When locals is nil
// they are collected from the statements in order of first appearance.
func NewBody(locals []*Local, stmts []Stmt) *Body {
	b := &Body{Locals: locals, Stmts: stmts}
	for i, s := range stmts {
		s.pos().index = i
	}
	if b.Locals == nil {
		b.Locals = collectLocals(stmts)
	}

	n := len(stmts)
	b.succs = make([][]int, n)
	b.preds = make([][]int, n)
	for i, s := range stmts {
		var out []int
		switch s := s.(type) {
		case *ReturnStmt, *ReturnVoidStmt:
		case *GotoStmt:
			out = appendTarget(out, s.Target, n)
		case *IfStmt:
			out = appendTarget(out, i+1, n)
			out = appendTarget(out, s.Target, n)
		default:
			out = appendTarget(out, i+1, n)
		}
		b.succs[i] = out
		for _, j := range out {
			b.preds[j] = append(b.preds[j], i)
		}
	}
	return b
}

func appendTarget(out []int, target, n int) []int {
	if target < 0 || target >= n || slices.Contains(out, target) {
		return out
	}
	return append(out, target)
}

// Len returns the number of statements.
func (b *Body) Len() int { return len(b.Stmts) }

// Succs returns the indices of the statements that may execute after i.
func (b *Body) Succs(i int) []int { return b.succs[i] }

// Preds returns the indices of the statements that may execute before i.
func (b *Body) Preds(i int) []int { return b.preds[i] }

// Local returns the local called name.
func (b *Body) Local(name string) (*Local, bool) {
	for _, l := range b.Locals {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// String renders the body one statement per line.
func (b *Body) String() string {
	var sb strings.Builder
	for _, s := range b.Stmts {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func collectLocals(stmts []Stmt) []*Local {
	var locals []*Local
	seen := make(map[*Local]struct{})
	add := func(l *Local) {
		if l == nil {
			return
		}
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		locals = append(locals, l)
	}
	var visit func(v Value)
	visit = func(v Value) {
		switch v := v.(type) {
		case *Local:
			add(v)
		case *InstanceFieldRef:
			add(v.Base)
		case *CastExpr:
			visit(v.Op)
		case *BinopExpr:
			visit(v.X)
			visit(v.Y)
		case *InvokeExpr:
			add(v.Base)
			for _, a := range v.Args {
				visit(a)
			}
		}
	}
	for _, s := range stmts {
		switch s := s.(type) {
		case *AssignStmt:
			visit(s.Left)
			visit(s.Right)
		case *IdentityStmt:
			add(s.Left)
		case *InvokeStmt:
			visit(s.Call)
		case *ReturnStmt:
			visit(s.Op)
		case *IfStmt:
			visit(s.Cond)
		}
	}
	return locals
}

// Package dataflow solves forward dataflow problems over a single method body.
//
// An Analysis supplies the lattice operations and the transfer function;
// Solve drives them over the statement graph until every statement's output
// is stable. Loop-free bodies settle after one flow per statement. Bodies
// with loops are re-flowed wherever an incoming fact changes.
package dataflow

import (
	"golang.org/x/tools/container/intsets"

	"github.com/715d/irflow/pkg/ir"
)

// Analysis is a forward dataflow problem over facts of type F.
//
// Implementations must treat F as a value: Copy returns an independent
// duplicate, Merge and FlowThrough return fresh facts and leave their inputs
// untouched.
type Analysis[F any] interface {
	// NewInitialFlow returns the fact at the entry and at statements without
	// predecessors.
	NewInitialFlow() F

	// Copy returns a deep duplicate of src.
	Copy(src F) F

	// Merge combines the facts flowing into a join point.
	Merge(a, b F) F

	// Equal reports whether two facts are the same.
	Equal(a, b F) bool

	// FlowThrough returns the fact after stmt given the fact before it. It
	// starts from Copy(in) and applies the statement's kill and gen effects.
	FlowThrough(in F, stmt ir.Stmt) F
}

// Result holds the stable facts before and after every statement.
type Result[F any] struct {
	in, out    []F
	iterations int
}

// In returns the fact before statement i.
func (r *Result[F]) In(i int) F { return r.in[i] }

// Out returns the fact after statement i.
func (r *Result[F]) Out(i int) F { return r.out[i] }

// Len returns the number of statements.
func (r *Result[F]) Len() int { return len(r.in) }

// Iterations returns how many times FlowThrough was called.
func (r *Result[F]) Iterations() int { return r.iterations }

// Solve runs a to a fixpoint over body. The worklist always yields the
// lowest pending statement index, so straight-line code is processed in
// program order and loops are re-entered only when a back edge changes
// something. Every statement is flowed at least once.
func Solve[F any](body *ir.Body, a Analysis[F]) *Result[F] {
	n := body.Len()
	res := &Result[F]{in: make([]F, n), out: make([]F, n)}
	flowed := make([]bool, n)

	var work intsets.Sparse
	for i := range n {
		work.Insert(i)
	}

	var i int
	for work.TakeMin(&i) {
		in := res.incoming(body, a, flowed, i)
		if flowed[i] && a.Equal(in, res.in[i]) {
			continue
		}
		res.in[i] = in

		out := a.FlowThrough(in, body.Stmts[i])
		res.iterations++
		changed := !flowed[i] || !a.Equal(out, res.out[i])
		res.out[i] = out
		flowed[i] = true
		if !changed {
			continue
		}
		for _, s := range body.Succs(i) {
			work.Insert(s)
		}
	}
	return res
}

// incoming merges the outputs of the already flowed predecessors of i. The
// entry statement additionally starts from the initial flow.
func (r *Result[F]) incoming(body *ir.Body, a Analysis[F], flowed []bool, i int) F {
	var (
		in  F
		set bool
	)
	if i == 0 {
		in, set = a.NewInitialFlow(), true
	}
	for _, p := range body.Preds(i) {
		if !flowed[p] {
			continue
		}
		if !set {
			in, set = a.Copy(r.out[p]), true
			continue
		}
		in = a.Merge(in, r.out[p])
	}
	if !set {
		return a.NewInitialFlow()
	}
	return in
}

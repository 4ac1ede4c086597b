// Package rta implements Rapid Type Analysis. The algorithm was first
// described in:
//
// David F. Bacon and Peter F. Sweeney. 1996.
// Fast static analysis of C++ virtual function calls. (OOPSLA '96)
// http://doi.acm.org/10.1145/236337.236371
//
// RTA refines class hierarchy analysis with the set of classes the program
// actually allocates: a dynamically dispatched call can only reach methods of
// types that have been instantiated somewhere.
//
// This implementation runs in two phases. The first phase walks every method
// reachable under CHA and records each allocation site type; it always runs
// to completion and never touches the output graph. The second phase builds
// the output graph, keeping only targets whose runtime type was recorded by
// the first phase.
package rta

import (
	"context"
	"log/slog"
	"slices"

	"github.com/715d/irflow/internal/cha"
	"github.com/715d/irflow/internal/hierarchy"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// A Result holds what the first phase discovered.
type Result struct {
	// Discovered are the methods reachable under CHA, in processing order.
	Discovered []ir.MethodSignature

	// Instantiated are the allocated class types, sorted.
	Instantiated []ir.ClassType
}

// Working state of one RTA run.
type rta struct {
	index        *hierarchy.Index
	instantiated callgraph.Set[ir.ClassType]
}

// Strategy builds call graphs with RTA. The result of the most recent run is
// available from Result.
type Strategy struct {
	result *Result
}

// New returns the RTA strategy.
func New() *Strategy { return &Strategy{} }

// Algorithm returns "RTA".
func (*Strategy) Algorithm() string { return "RTA" }

// Result returns the first-phase result of the last Populate, or nil.
func (s *Strategy) Result() *Result { return s.result }

// Populate fills g with the methods reachable from the entry points of v.
func (s *Strategy) Populate(ctx context.Context, v view.View, g *callgraph.Graph) error {
	res, r, err := discover(ctx, v)
	if err != nil {
		return err
	}
	s.result = res

	b := callgraph.NewBuilder(v, g, callgraph.ResolverFunc(r.resolve), callgraph.BuilderOptions{})
	if err := b.Build(ctx, callgraph.EntryPoints(v)); err != nil {
		return err
	}
	slog.Debug("rta done", "discovered", len(res.Discovered), "instantiated", len(res.Instantiated),
		"nodes", g.NumNodes(), "edges", g.NumEdges())
	return nil
}

// Discover runs the first phase only.
func Discover(ctx context.Context, v view.View) (*Result, error) {
	res, _, err := discover(ctx, v)
	return res, err
}

func discover(ctx context.Context, v view.View) (*Result, *rta, error) {
	r := &rta{
		index:        hierarchy.New(v),
		instantiated: make(callgraph.Set[ir.ClassType]),
	}

	// The scratch graph keeps discovery out of the caller's graph.
	b := callgraph.NewBuilder(v, callgraph.New(), cha.NewResolver(r.index), callgraph.BuilderOptions{
		OnMethod: r.visitMethod,
	})
	if err := b.Build(ctx, callgraph.EntryPoints(v)); err != nil {
		return nil, nil, err
	}

	res := &Result{Discovered: b.Processed()}
	for t := range r.instantiated {
		res.Instantiated = append(res.Instantiated, t)
	}
	slices.Sort(res.Instantiated)
	return res, r, nil
}

// visitMethod records the allocation sites of m.
func (r *rta) visitMethod(m *view.Method) {
	for _, stmt := range m.Body().Stmts {
		var v ir.Value
		switch s := stmt.(type) {
		case *ir.AssignStmt:
			v = s.Right
		case *ir.ReturnStmt:
			v = s.Op
		default:
			continue
		}
		if n, ok := v.(*ir.NewExpr); ok {
			r.instantiated[n.Class] = struct{}{}
		}
	}
}

// resolve restricts CHA to instantiated, non-interface types. The closure is
// still traversed through uninstantiated types so their instantiated
// subtypes are found.
func (r *rta) resolve(_ *view.Method, _ ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature {
	var out []ir.MethodSignature
	seen := make(callgraph.Set[string])
	for _, t := range r.index.Closure(call.Method.Class) {
		if _, ok := r.instantiated[t]; !ok || r.index.IsInterface(t) {
			continue
		}
		for _, m := range r.index.FindMethods(t, call.Method, hierarchy.WalkPolicy{SkipInterfaces: true}) {
			key := m.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Package cha implements Class Hierarchy Analysis: a dynamically dispatched
// call may reach the matching method of any subtype of the receiver's
// declared type.
package cha

import (
	"context"
	"log/slog"

	"github.com/715d/irflow/internal/hierarchy"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// Resolver resolves call sites by class hierarchy alone.
type Resolver struct {
	index *hierarchy.Index
}

// NewResolver creates a resolver over idx.
func NewResolver(idx *hierarchy.Index) *Resolver {
	return &Resolver{index: idx}
}

// Resolve implements callgraph.Resolver.
func (r *Resolver) Resolve(_ *view.Method, _ ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature {
	return r.Targets(call.Method)
}

// Targets returns, for every type in the subtype closure of sig's declaring
// class, the first matching method found walking up from that type.
func (r *Resolver) Targets(sig ir.MethodSignature) []ir.MethodSignature {
	var out []ir.MethodSignature
	seen := make(callgraph.Set[string])
	for _, t := range r.index.Closure(sig.Class) {
		for _, m := range r.index.FindMethods(t, sig, hierarchy.WalkPolicy{}) {
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

// Strategy builds call graphs with CHA.
type Strategy struct{}

// New returns the CHA strategy.
func New() *Strategy { return &Strategy{} }

// Algorithm returns "CHA".
func (*Strategy) Algorithm() string { return "CHA" }

// Populate fills g with every method reachable from the entry points of v.
func (*Strategy) Populate(ctx context.Context, v view.View, g *callgraph.Graph) error {
	idx := hierarchy.New(v)
	b := callgraph.NewBuilder(v, g, NewResolver(idx), callgraph.BuilderOptions{})
	if err := b.Build(ctx, callgraph.EntryPoints(v)); err != nil {
		return err
	}
	slog.Debug("cha done", "nodes", g.NumNodes(), "edges", g.NumEdges())
	return nil
}

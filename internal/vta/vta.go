// Package vta implements Variable Type Analysis: call sites are resolved by
// the class types that can actually reach the receiver through assignments,
// casts and return values, rather than by the receiver's declared type.
//
// A run has three phases. Phase one discovers the methods reachable under
// CHA and builds the type propagation graph from their bodies. Phase two
// propagates types through the graph and across call-site return values
// until nothing changes. Phase three builds the output call graph, resolving
// each dynamic call by the types tagged on its receiver.
package vta

import (
	"context"
	"log/slog"

	"golang.org/x/tools/container/intsets"

	"github.com/715d/irflow/internal/cha"
	"github.com/715d/irflow/internal/hierarchy"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// Result describes the last run.
type Result struct {
	// Graph is the propagated type graph.
	Graph *TypeGraph

	// Discovered are the methods reachable under CHA, in processing order.
	Discovered []ir.MethodSignature

	// Passes is the number of propagation passes, including the final one
	// that changed nothing.
	Passes int
}

// callSite is an assignment whose right-hand side is a call.
type callSite struct {
	left    ir.Value
	targets []ir.MethodSignature
}

// methodReturns tracks what a method may return.
type methodReturns struct {
	direct intsets.Sparse // types of "return new T"
	values []ir.Value     // other returned values
	types  *intsets.Sparse
}

type vta struct {
	index   *hierarchy.Index
	cha     *cha.Resolver
	tpg     *TypeGraph
	returns map[string]*methodReturns
	sites   []callSite
}

// Strategy builds call graphs with VTA.
type Strategy struct {
	result *Result
}

// New returns the VTA strategy.
func New() *Strategy { return &Strategy{} }

// Algorithm returns "VTA".
func (*Strategy) Algorithm() string { return "VTA" }

// Result returns the outcome of the last Populate, or nil.
func (s *Strategy) Result() *Result { return s.result }

// Populate fills g with the methods reachable from the entry points of v.
func (s *Strategy) Populate(ctx context.Context, v view.View, g *callgraph.Graph) error {
	idx := hierarchy.New(v)
	a := &vta{
		index:   idx,
		cha:     cha.NewResolver(idx),
		tpg:     NewTypeGraph(),
		returns: make(map[string]*methodReturns),
	}
	entries := callgraph.EntryPoints(v)

	discovery := callgraph.NewBuilder(v, callgraph.New(), a.cha, callgraph.BuilderOptions{
		OnMethod: a.visitMethod,
		OnCall:   a.visitCall,
	})
	if err := discovery.Build(ctx, entries); err != nil {
		return err
	}

	passes := a.solve()
	slog.Debug("vta propagation done", "nodes", a.tpg.NumNodes(), "types", a.tpg.NumTypes(), "passes", passes)

	b := callgraph.NewBuilder(v, g, callgraph.ResolverFunc(a.resolve), callgraph.BuilderOptions{})
	if err := b.Build(ctx, entries); err != nil {
		return err
	}
	s.result = &Result{Graph: a.tpg, Discovered: discovery.Processed(), Passes: passes}
	return nil
}

func (a *vta) returnsOf(sig ir.MethodSignature) *methodReturns {
	key := sig.String()
	r, ok := a.returns[key]
	if !ok {
		r = &methodReturns{}
		a.returns[key] = r
	}
	return r
}

// visitMethod adds the assignments, casts, allocations and returns of m to
// the type graph.
func (a *vta) visitMethod(m *view.Method) {
	for _, stmt := range m.Body().Stmts {
		switch s := stmt.(type) {
		case *ir.AssignStmt:
			a.tpg.AddEdge(s.Right, s.Left)
			switch r := s.Right.(type) {
			case *ir.NewExpr:
				a.tpg.Tag(s.Left, r.Class)
			case *ir.CastExpr:
				a.tpg.AddEdge(r.Op, s.Left)
			}
		case *ir.ReturnStmt:
			ret := a.returnsOf(m.Signature())
			if n, ok := s.Op.(*ir.NewExpr); ok {
				ret.direct.Insert(a.tpg.typeID(n.Class))
				continue
			}
			ret.values = append(ret.values, s.Op)
		}
	}
}

// visitCall remembers assignments from calls together with the targets
// discovery resolved for them.
func (a *vta) visitCall(_ *view.Method, stmt ir.Stmt, _ *ir.InvokeExpr, targets []ir.MethodSignature) {
	if s, ok := stmt.(*ir.AssignStmt); ok && len(targets) > 0 {
		a.sites = append(a.sites, callSite{left: s.Left, targets: targets})
	}
}

// solve runs passes until one changes nothing and returns the pass count.
func (a *vta) solve() int {
	order := a.tpg.order()
	passes := 0
	for {
		passes++
		changed := a.tpg.propagate(order)
		if a.updateReturns() {
			changed = true
		}
		if a.applyCallSites() {
			changed = true
		}
		if !changed {
			return passes
		}
	}
}

// updateReturns recomputes every method's return types from its direct
// allocations and the current tags of its returned values.
func (a *vta) updateReturns() bool {
	changed := false
	for _, r := range a.returns {
		next := new(intsets.Sparse)
		next.Copy(&r.direct)
		for _, v := range r.values {
			if id, ok := a.tpg.lookup(v); ok && a.tpg.tags[id] != nil {
				next.UnionWith(a.tpg.tags[id])
			}
		}
		if r.types != nil && next.SubsetOf(r.types) {
			continue
		}
		if r.types != nil {
			next.UnionWith(r.types)
		}
		if next.IsEmpty() {
			continue
		}
		r.types = next
		changed = true
	}
	return changed
}

// applyCallSites tags the left side of every call assignment with the
// return types of the call's targets.
func (a *vta) applyCallSites() bool {
	changed := false
	for _, site := range a.sites {
		for _, t := range site.targets {
			r, ok := a.returns[t.String()]
			if !ok || r.types == nil {
				continue
			}
			if a.tpg.addTags(a.tpg.Node(site.left), r.types) {
				changed = true
			}
		}
	}
	return changed
}

// resolve dispatches on the receiver's tags, falling back to CHA on the
// declared type when the receiver has none.
func (a *vta) resolve(_ *view.Method, _ ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature {
	var tags []ir.ClassType
	if call.Base != nil {
		tags = a.tpg.Tags(call.Base)
	}
	if len(tags) == 0 {
		return a.cha.Targets(call.Method)
	}

	var out []ir.MethodSignature
	seen := make(callgraph.Set[string])
	for _, tag := range tags {
		for _, t := range a.index.Closure(tag) {
			for _, m := range a.index.FindMethods(t, call.Method, hierarchy.WalkPolicy{SkipInterfaces: true}) {
				key := m.String()
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, m)
			}
		}
	}
	return out
}

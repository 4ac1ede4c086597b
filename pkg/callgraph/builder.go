package callgraph

import (
	"context"
	"log/slog"
	"slices"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// Resolver maps a dynamically dispatched call site to its possible targets.
// Static and special calls never reach a Resolver: they always resolve to the
// declared method.
type Resolver interface {
	Resolve(caller *view.Method, stmt ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(caller *view.Method, stmt ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(caller *view.Method, stmt ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature {
	return f(caller, stmt, call)
}

// BuilderOptions holds optional observation hooks.
type BuilderOptions struct {
	// OnMethod is called once for every processed method that has a body.
	OnMethod func(m *view.Method)

	// OnCall is called for every call-bearing statement with its resolved
	// targets.
	OnCall func(caller *view.Method, stmt ir.Stmt, call *ir.InvokeExpr, targets []ir.MethodSignature)
}

// Builder runs the reachability worklist: starting from the entry points it
// pops a method, resolves each of its call sites and enqueues every target
// not yet in the graph. A method is processed at most once.
//
// A Builder is single use. Each strategy phase creates a fresh one.
type Builder struct {
	view      view.View
	graph     *Graph
	resolver  Resolver
	opts      BuilderOptions
	worklist  []ir.MethodSignature
	processed Set[string]
	order     []ir.MethodSignature
}

// NewBuilder creates a builder that writes into g.
func NewBuilder(v view.View, g *Graph, r Resolver, opts BuilderOptions) *Builder {
	return &Builder{
		view:      v,
		graph:     g,
		resolver:  r,
		opts:      opts,
		processed: make(Set[string]),
	}
}

// Build processes methods until the worklist is empty. It returns early only
// when ctx is cancelled.
func (b *Builder) Build(ctx context.Context, entries []ir.MethodSignature) error {
	for _, e := range entries {
		b.graph.AddNode(e)
		b.worklist = append(b.worklist, e)
	}

	for len(b.worklist) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		sig := b.worklist[0]
		b.worklist = b.worklist[1:]

		key := sig.String()
		if _, ok := b.processed[key]; ok {
			continue
		}
		b.processed[key] = struct{}{}
		b.order = append(b.order, sig)

		m, ok := b.view.Method(sig)
		if !ok || !m.HasBody() {
			continue
		}
		b.processMethod(m)
	}
	slog.Debug("call graph built", "processed", len(b.order), "nodes", b.graph.NumNodes(), "edges", b.graph.NumEdges())
	return nil
}

func (b *Builder) processMethod(m *view.Method) {
	if b.opts.OnMethod != nil {
		b.opts.OnMethod(m)
	}
	caller := m.Signature()
	for _, stmt := range m.Body().Stmts {
		call, ok := ir.InvokeOf(stmt)
		if !ok {
			continue
		}
		targets := b.resolve(m, stmt, call)
		if b.opts.OnCall != nil {
			b.opts.OnCall(m, stmt, call, targets)
		}
		for _, t := range targets {
			if b.graph.AddNode(t) {
				b.worklist = append(b.worklist, t)
			}
			b.graph.AddEdge(caller, t)
		}
	}
}

func (b *Builder) resolve(m *view.Method, stmt ir.Stmt, call *ir.InvokeExpr) []ir.MethodSignature {
	if !call.Kind.IsDynamic() {
		return []ir.MethodSignature{call.Method}
	}
	return b.resolver.Resolve(m, stmt, call)
}

// Processed returns the methods popped from the worklist, in processing
// order.
func (b *Builder) Processed() []ir.MethodSignature {
	return slices.Clone(b.order)
}

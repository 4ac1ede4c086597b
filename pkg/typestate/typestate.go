// Package typestate finds resources that are opened but never closed.
//
// A resource is tracked from its allocation through the values that alias
// it. Calling the open method moves it to Open, the close method to Close. A
// vulnerability is reported when the last alias of an Open resource is
// overwritten, and at every return while a resource is still Open.
package typestate

import (
	"github.com/715d/irflow/pkg/dataflow"
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/report"
	"github.com/715d/irflow/pkg/view"
)

// Config names the tracked resource type and its lifecycle methods.
type Config struct {
	ResourceType ir.ClassType
	OpenMethod   string
	CloseMethod  string
}

// DefaultConfig tracks target.exercise2.File.
func DefaultConfig() Config {
	return Config{
		ResourceType: "target.exercise2.File",
		OpenMethod:   "open",
		CloseMethod:  "close",
	}
}

// Analyzer runs the typestate analysis with a fixed configuration. It holds
// no per-method state and may be shared between goroutines.
type Analyzer struct {
	cfg Config
}

// New returns an analyzer for cfg.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Run analyzes m with the default configuration and reports to r.
func Run(m *view.Method, r report.Reporter) {
	New(DefaultConfig()).Run(m, r)
}

// Run analyzes m and reports every offending statement to r, in statement
// order. Methods without a body are skipped.
func (a *Analyzer) Run(m *view.Method, r report.Reporter) {
	if !m.HasBody() {
		return
	}
	_, found := a.Analyze(m)
	for _, stmt := range found {
		r.ReportVulnerability(m.Signature(), stmt)
	}
}

// Analyze solves m and returns the stable facts together with the offending
// statements. A statement appears once per offending fact.
func (a *Analyzer) Analyze(m *view.Method) (*dataflow.Result[FactSet], []ir.Stmt) {
	body := m.Body()
	fl := &flow{
		cfg:      a.cfg,
		universe: universe(body),
		pending:  make([]int, body.Len()),
	}
	res := dataflow.Solve[FactSet](body, fl)

	var found []ir.Stmt
	for i, n := range fl.pending {
		for range n {
			found = append(found, body.Stmts[i])
		}
	}
	return res, found
}

// universe lists every value a fact may mention: the locals, both sides of
// every assignment and the receiver of every call.
func universe(body *ir.Body) []ir.Value {
	var out []ir.Value
	seen := make(map[string]bool)
	add := func(v ir.Value) {
		if v == nil {
			return
		}
		k := ir.EquivKey(v)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, v)
	}
	for _, l := range body.Locals {
		add(l)
	}
	for _, stmt := range body.Stmts {
		if s, ok := stmt.(*ir.AssignStmt); ok {
			add(s.Left)
			add(s.Right)
		}
		if call, ok := ir.InvokeOf(stmt); ok && call.Base != nil {
			add(call.Base)
		}
	}
	return out
}

// flow is the transfer function of one method. pending holds, per
// statement, how many facts its latest flow found offending; a re-flow
// replaces the count, so only the stable input is reported.
type flow struct {
	cfg      Config
	universe []ir.Value
	pending  []int
}

func (*flow) NewInitialFlow() FactSet { return NewFactSet() }

func (*flow) Copy(src FactSet) FactSet { return src.Union(FactSet{}) }

func (*flow) Merge(a, b FactSet) FactSet { return a.Union(b) }

func (*flow) Equal(a, b FactSet) bool { return a.Equal(b) }

func (fl *flow) FlowThrough(in FactSet, stmt ir.Stmt) FactSet {
	out := fl.Copy(in)
	leaks := 0

	if s, ok := stmt.(*ir.AssignStmt); ok {
		var n int
		out, n = fl.kill(out, s.Left)
		leaks += n
		switch r := s.Right.(type) {
		case *ir.NewExpr:
			if r.Class == fl.cfg.ResourceType {
				out = out.Union(NewFactSet(NewFact([]ir.Value{s.Left}, Init)))
			}
		case *ir.InvokeExpr:
			// Calls only move state, through their receiver.
		default:
			out = fl.alias(out, s.Left, s.Right)
		}
	}

	if call, ok := ir.InvokeOf(stmt); ok {
		out = fl.invoke(out, call)
	}

	if ir.IsReturn(stmt) {
		for _, f := range out.Facts() {
			if f.State() == Open {
				leaks++
			}
		}
	}

	fl.pending[stmt.Index()] = leaks
	return out
}

// rebuild returns the universe values that are aliases of f, except skip.
func (fl *flow) rebuild(f Fact, skip ir.Value) []ir.Value {
	var out []ir.Value
	for _, v := range fl.universe {
		if skip != nil && ir.Equivalent(v, skip) {
			continue
		}
		if f.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// kill removes left from every fact. A fact left without aliases is dropped;
// it counts as a leak when it was Open.
func (fl *flow) kill(in FactSet, left ir.Value) (FactSet, int) {
	var keep []Fact
	leaks := 0
	for _, f := range in.Facts() {
		if !f.Contains(left) {
			keep = append(keep, f)
			continue
		}
		rest := fl.rebuild(f, left)
		if len(rest) == 0 {
			if f.State() == Open {
				leaks++
			}
			continue
		}
		keep = append(keep, NewFact(rest, f.State()))
	}
	return NewFactSet(keep...), leaks
}

// alias adds left to every fact that right belongs to.
func (fl *flow) alias(in FactSet, left, right ir.Value) FactSet {
	var out []Fact
	for _, f := range in.Facts() {
		if !f.Contains(right) {
			out = append(out, f)
			continue
		}
		out = append(out, NewFact(append(fl.rebuild(f, nil), left), f.State()))
	}
	return NewFactSet(out...)
}

// invoke applies lifecycle calls on the tracked type to the facts of the
// call's receiver.
func (fl *flow) invoke(in FactSet, call *ir.InvokeExpr) FactSet {
	if call.Base == nil || call.Method.Class != fl.cfg.ResourceType {
		return in
	}
	var out []Fact
	for _, f := range in.Facts() {
		if !f.Contains(call.Base) {
			out = append(out, f)
			continue
		}
		next := NewFact(fl.rebuild(f, nil), f.State())
		switch call.Method.Name {
		case fl.cfg.OpenMethod:
			next = next.WithState(Open)
		case fl.cfg.CloseMethod:
			next = next.WithState(Close)
		}
		out = append(out, next)
	}
	return NewFactSet(out...)
}

package irflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/715d/irflow/internal/analysis"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/misuse"
	"github.com/715d/irflow/pkg/reach"
	"github.com/715d/irflow/pkg/report"
	"github.com/715d/irflow/pkg/suppress"
	"github.com/715d/irflow/pkg/typestate"
	"github.com/715d/irflow/pkg/view"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	// Algorithm names the call graph strategy. Defaults to "vta".
	Algorithm string

	// Workers bounds concurrent method analyses. Defaults to NumCPU.
	Workers int

	// Analyses selects the per-method analyses to run. Defaults to all.
	Analyses []string

	Typestate typestate.Config
	Misuse    misuse.Config

	// LibraryPrefixes are class name prefixes treated as library code. Nil
	// means reach.DefaultLibraryPrefixes.
	LibraryPrefixes []string
}

// Analyzer orchestrates call graph construction and the method analyses.
type Analyzer struct {
	opts      AnalyzerOptions
	typestate *typestate.Analyzer
	misuse    *misuse.Analyzer
}

// CheckResult holds the outcome of Check.
type CheckResult struct {
	// Findings are every reported statement, suppressed ones included,
	// ordered by method, statement and analysis.
	Findings []report.Finding

	// Methods is the number of method bodies analyzed.
	Methods int
}

// Active returns the findings that are not suppressed.
func (r *CheckResult) Active() []report.Finding {
	var out []report.Finding
	for _, f := range r.Findings {
		if !f.Suppressed {
			out = append(out, f)
		}
	}
	return out
}

// NewAnalyzer creates a new analyzer with the given options. Zero-valued
// analysis configurations take their defaults.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	if opts.Algorithm == "" {
		opts.Algorithm = "vta"
	}
	if opts.Workers <= 0 {
		opts.Workers = goruntime.NumCPU()
	}
	if len(opts.Analyses) == 0 {
		opts.Analyses = []string{AnalysisTypestate, AnalysisMisuse}
	}
	if opts.Typestate == (typestate.Config{}) {
		opts.Typestate = typestate.DefaultConfig()
	}
	if opts.Misuse == (misuse.Config{}) {
		opts.Misuse = misuse.DefaultConfig()
	}
	if opts.LibraryPrefixes == nil {
		opts.LibraryPrefixes = reach.DefaultLibraryPrefixes
	}
	return &Analyzer{
		opts:      opts,
		typestate: typestate.New(opts.Typestate),
		misuse:    misuse.New(opts.Misuse),
	}
}

// CallGraph builds the call graph of prog with the configured algorithm.
func (a *Analyzer) CallGraph(ctx context.Context, prog *view.Program) (*callgraph.Graph, error) {
	if prog == nil {
		return nil, errors.New("no program provided")
	}
	strategy, err := NewStrategy(a.opts.Algorithm)
	if err != nil {
		return nil, err
	}
	g, err := callgraph.Build(ctx, strategy, prog)
	if err != nil {
		return nil, err
	}
	stats := g.Stats()
	slog.Debug("call graph stats", "algo", strategy.Algorithm(), "nodes", stats.Nodes, "edges", stats.Edges, "cycles", stats.Cycles)
	return g, nil
}

// Check runs the selected analyses over every application method body of
// prog in parallel and marks the findings suppressed by comments.
func (a *Analyzer) Check(ctx context.Context, prog *view.Program) (*CheckResult, error) {
	if prog == nil {
		return nil, errors.New("no program provided")
	}
	start := time.Now()

	suppressions := suppress.NewChecker()
	suppressions.Load(prog)

	collector := report.NewCollector()
	runners := make([]func(*view.Method), 0, len(a.opts.Analyses))
	for _, name := range a.opts.Analyses {
		switch name {
		case AnalysisTypestate:
			r := collector.For(AnalysisTypestate)
			runners = append(runners, func(m *view.Method) { a.typestate.Run(m, r) })
		case AnalysisMisuse:
			r := collector.For(AnalysisMisuse)
			runners = append(runners, func(m *view.Method) { a.misuse.Run(m, r) })
		default:
			return nil, fmt.Errorf("unknown analysis %q", name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	var methods int64
	for _, m := range prog.Methods() {
		if !m.HasBody() || !a.isTarget(m) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, run := range runners {
				run(m)
			}
			atomic.AddInt64(&methods, 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := collector.Findings()
	for i := range findings {
		f := &findings[i]
		f.Suppressed, f.Reason = suppressions.IsSuppressed(f.Method, f.Stmt, f.Analysis)
	}
	slog.Info("check completed", "methods", methods, "findings", len(findings), "dur", time.Since(start))
	return &CheckResult{Findings: findings, Methods: int(methods)}, nil
}

// UnreachableResult holds the outcome of Unreachable.
type UnreachableResult struct {
	// Methods are the reported methods ordered by signature.
	Methods []UnreachableMethod

	// Total is the number of application methods considered.
	Total int

	// Suppressed is the number of methods silenced by a directive.
	Suppressed int
}

// Unreachable builds the call graph of prog and reports the application
// methods it does not reach.
func (a *Analyzer) Unreachable(ctx context.Context, prog *view.Program) (*UnreachableResult, error) {
	g, err := a.CallGraph(ctx, prog)
	if err != nil {
		return nil, err
	}
	return a.UnreachableIn(prog, g)
}

// UnreachableIn reports the application methods of prog that g does not
// reach.
func (a *Analyzer) UnreachableIn(prog *view.Program, g *callgraph.Graph) (*UnreachableResult, error) {
	r, err := reach.NewAnalyzer(prog, g, reach.Options{LibraryPrefixes: a.opts.LibraryPrefixes})
	if err != nil {
		return nil, err
	}

	methods := r.CollectMethods()
	r.AnalyzeMethods(methods)

	res := &UnreachableResult{Total: len(methods)}
	for _, info := range methods {
		if info.IsSuppressed {
			res.Suppressed++
		}
		if info.ShouldReport() {
			res.Methods = append(res.Methods, a.convert(info))
		}
	}
	slices.SortFunc(res.Methods, func(x, y UnreachableMethod) int {
		return strings.Compare(x.Signature, y.Signature)
	})
	return res, nil
}

func (a *Analyzer) convert(info *analysis.MethodInfo) UnreachableMethod {
	sig := info.Signature()
	line := 0
	if body := info.Method.Body(); body != nil && len(body.Stmts) > 0 {
		line = body.Stmts[0].Source().Line
	}
	return UnreachableMethod{
		Name:      info.Name,
		Signature: sig.String(),
		Class:     string(sig.Class),
		Line:      line,
		Reason:    "not reachable from entry points under " + strings.ToUpper(a.opts.Algorithm),
	}
}

func (a *Analyzer) isTarget(m *view.Method) bool {
	if c := m.Class(); c != nil && c.Library {
		return false
	}
	return !analysis.IsLibraryClass(m.Signature().Class, a.opts.LibraryPrefixes)
}

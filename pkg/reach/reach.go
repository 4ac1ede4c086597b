// Package reach finds the methods a call graph never reaches.
package reach

import (
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/715d/irflow/internal/analysis"
	"github.com/715d/irflow/pkg/callgraph"
	"github.com/715d/irflow/pkg/suppress"
	"github.com/715d/irflow/pkg/view"
)

// Analyzer marks methods reachable from the entry points of a program using
// a prebuilt call graph.
type Analyzer struct {
	// program is the analyzed program
	program *view.Program

	// graph is the call graph built for program
	graph *callgraph.Graph

	// suppressions holds the program's suppression directives
	suppressions *suppress.Checker

	// nameCache is used for computing display names
	nameCache *analysis.NameCache

	// libraryPrefixes are class name prefixes never reported
	libraryPrefixes []string
}

// Options configures an Analyzer.
type Options struct {
	// LibraryPrefixes replaces DefaultLibraryPrefixes when non-nil.
	LibraryPrefixes []string

	// Suppressions are consulted for "unreachable" directives. When nil the
	// program's directives are loaded.
	Suppressions *suppress.Checker
}

// NewAnalyzer creates an analyzer over prog and its call graph g.
func NewAnalyzer(prog *view.Program, g *callgraph.Graph, opts Options) (*Analyzer, error) {
	if prog == nil {
		return nil, errors.New("no program provided")
	}
	if g == nil {
		return nil, errors.New("no call graph provided")
	}

	a := &Analyzer{
		program:         prog,
		graph:           g,
		suppressions:    opts.Suppressions,
		nameCache:       analysis.NewNameCache(),
		libraryPrefixes: opts.LibraryPrefixes,
	}
	if a.libraryPrefixes == nil {
		a.libraryPrefixes = DefaultLibraryPrefixes
	}
	if a.suppressions == nil {
		a.suppressions = suppress.NewChecker()
		a.suppressions.Load(prog)
	}
	return a, nil
}

// CollectMethods returns a MethodInfo for every application method of the
// program, keyed by signature.
func (a *Analyzer) CollectMethods() map[string]*analysis.MethodInfo {
	methods := make(map[string]*analysis.MethodInfo)
	for _, m := range a.program.Methods() {
		if !a.IsTargetClass(m.Signature().Class) {
			continue
		}
		methods[m.Signature().String()] = analysis.NewMethodInfo(m, a.nameCache, a.libraryPrefixes)
	}
	return methods
}

// AnalyzeMethods marks every method of methods that the call graph reaches,
// every entry point and every suppressed method.
func (a *Analyzer) AnalyzeMethods(methods map[string]*analysis.MethodInfo) {
	entries := make(callgraph.Set[string])
	for _, e := range callgraph.EntryPoints(a.program) {
		entries[e.String()] = struct{}{}
	}

	for key, info := range methods {
		sig := info.Signature()
		info.IsReachable = a.graph.HasNode(sig)
		_, info.IsEntryPoint = entries[key]
		info.IsSuppressed, info.SuppressionReason = a.suppressions.IsMethodSuppressed(sig, "unreachable")
	}
}

// Unreachable returns the methods that should be reported, ordered by
// signature.
func (a *Analyzer) Unreachable() []*analysis.MethodInfo {
	methods := a.CollectMethods()
	a.AnalyzeMethods(methods)

	var out []*analysis.MethodInfo
	for _, info := range methods {
		if info.ShouldReport() {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(x, y *analysis.MethodInfo) int {
		return strings.Compare(x.Signature().String(), y.Signature().String())
	})
	slog.Debug("reachability done", "methods", len(methods), "reachable", a.graph.NumNodes(), "unreachable", len(out))
	return out
}

// Package suppress implements comment-based suppression of findings.
//
// A directive is the trailing comment of a statement:
//
//	virtualinvoke f.<F: void open()>()   // nolint:typestate kept open for the caller
//	c = staticinvoke <C: C get(S)>("DES") // lint:ignore misuse legacy protocol
//	return                                // nolint
//
// A directive on the first statement of a body also applies to the method
// itself, which is how unreachable-method findings are silenced.
package suppress

import (
	"regexp"
	"slices"
	"strings"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// Checker handles nolint and lint:ignore comment suppression.
type Checker struct {
	// suppressions maps a method and statement index to its directive.
	suppressions map[location]*Suppression
}

type location struct {
	method string
	index  int
}

// Suppression represents a parsed suppression directive.
type Suppression struct {
	// Analyses lists the silenced analyses; empty means all of them.
	Analyses []string
	Reason   string
	Type     SuppressionType
}

// SuppressionType represents different types of suppression comments.
type SuppressionType int

const (
	// SuppressionNolint represents nolint:<analysis> comments.
	SuppressionNolint SuppressionType = iota

	// SuppressionLintIgnore represents lint:ignore <analysis> comments.
	SuppressionLintIgnore
)

// Suppression patterns, matched against comment text without the leading
// slashes.
var (
	// nolintPattern matches nolint:a,b with an optional "// reason".
	nolintPattern = regexp.MustCompile(`^nolint:([\w,-]+)(?:\s+(?://\s*)?(.+))?$`)

	// lintIgnorePattern matches lint:ignore a,b with an optional reason.
	lintIgnorePattern = regexp.MustCompile(`^lint:ignore\s+([\w,-]+)(?:\s+(.+))?$`)

	// genericNolintPattern matches nolint without a specific analysis.
	genericNolintPattern = regexp.MustCompile(`^nolint(?:\s|$)`)
)

// NewChecker creates a new suppression checker.
func NewChecker() *Checker {
	return &Checker{
		suppressions: make(map[location]*Suppression),
	}
}

// Load collects the suppression directives of every method body in prog.
func (sc *Checker) Load(prog *view.Program) {
	for _, m := range prog.Methods() {
		sc.LoadMethod(m)
	}
}

// LoadMethod collects the directives of one method body.
func (sc *Checker) LoadMethod(m *view.Method) {
	if !m.HasBody() {
		return
	}
	key := m.Signature().String()
	for _, stmt := range m.Body().Stmts {
		if s := Parse(stmt.Source().Comment); s != nil {
			sc.suppressions[location{key, stmt.Index()}] = s
		}
	}
}

// Parse parses a comment to check if it's a suppression directive.
func Parse(comment string) *Suppression {
	text := strings.TrimSpace(comment)

	if matches := nolintPattern.FindStringSubmatch(text); matches != nil {
		return &Suppression{
			Analyses: splitRules(matches[1]),
			Reason:   strings.TrimSpace(matches[2]),
			Type:     SuppressionNolint,
		}
	}

	if matches := lintIgnorePattern.FindStringSubmatch(text); matches != nil {
		return &Suppression{
			Analyses: splitRules(matches[1]),
			Reason:   strings.TrimSpace(matches[2]),
			Type:     SuppressionLintIgnore,
		}
	}

	if genericNolintPattern.MatchString(text) {
		return &Suppression{Type: SuppressionNolint}
	}
	return nil
}

func splitRules(s string) []string {
	var out []string
	for rule := range strings.SplitSeq(s, ",") {
		if rule = strings.TrimSpace(rule); rule != "" {
			out = append(out, rule)
		}
	}
	return out
}

// Covers reports whether the directive silences analysis.
func (s *Suppression) Covers(analysis string) bool {
	return len(s.Analyses) == 0 || slices.Contains(s.Analyses, analysis)
}

// IsSuppressed checks if findings of analysis at stmt of sig are suppressed.
func (sc *Checker) IsSuppressed(sig ir.MethodSignature, stmt ir.Stmt, analysis string) (bool, string) {
	return sc.lookup(location{sig.String(), stmt.Index()}, analysis)
}

// IsMethodSuppressed checks the directive on the first statement of sig.
func (sc *Checker) IsMethodSuppressed(sig ir.MethodSignature, analysis string) (bool, string) {
	return sc.lookup(location{sig.String(), 0}, analysis)
}

func (sc *Checker) lookup(loc location, analysis string) (bool, string) {
	s, ok := sc.suppressions[loc]
	if !ok || !s.Covers(analysis) {
		return false, ""
	}
	if s.Reason == "" {
		return true, "suppressed"
	}
	return true, s.Reason
}

// Len returns the number of directives loaded.
func (sc *Checker) Len() int { return len(sc.suppressions) }

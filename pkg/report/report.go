// Package report collects the findings of the per-method analyses.
package report

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/715d/irflow/pkg/ir"
)

// Reporter receives vulnerabilities found by an analysis. Implementations
// used with parallel analyses must accept concurrent calls.
type Reporter interface {
	ReportVulnerability(sig ir.MethodSignature, stmt ir.Stmt)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(sig ir.MethodSignature, stmt ir.Stmt)

// ReportVulnerability implements Reporter.
func (f ReporterFunc) ReportVulnerability(sig ir.MethodSignature, stmt ir.Stmt) { f(sig, stmt) }

// Finding is one reported statement.
type Finding struct {
	Analysis   string             `json:"analysis"`
	Method     ir.MethodSignature `json:"-"`
	MethodName string             `json:"method"`
	Stmt       ir.Stmt            `json:"-"`
	Index      int                `json:"index"`
	Line       int                `json:"line"`
	Text       string             `json:"stmt"`
	Suppressed bool               `json:"suppressed,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// NewFinding describes stmt of sig as found by analysis.
func NewFinding(analysis string, sig ir.MethodSignature, stmt ir.Stmt) Finding {
	return Finding{
		Analysis:   analysis,
		Method:     sig,
		MethodName: sig.String(),
		Stmt:       stmt,
		Index:      stmt.Index(),
		Line:       stmt.Source().Line,
		Text:       stmt.String(),
	}
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", f.MethodName, f.Line, f.Analysis, f.Text)
}

// Collector is a Reporter sink safe for concurrent use. Findings are grouped
// by method and returned in a deterministic order regardless of the order
// they arrived in.
type Collector struct {
	byMethod *xsync.Map[string, []Finding]
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{byMethod: xsync.NewMap[string, []Finding]()}
}

// For returns a Reporter that records findings under the given analysis name.
func (c *Collector) For(analysis string) Reporter {
	return ReporterFunc(func(sig ir.MethodSignature, stmt ir.Stmt) {
		c.Add(NewFinding(analysis, sig, stmt))
	})
}

// Add records f.
func (c *Collector) Add(f Finding) {
	c.byMethod.Compute(f.MethodName, func(old []Finding, _ bool) ([]Finding, xsync.ComputeOp) {
		// Copy so slices handed out by Findings never alias a later append.
		return append(slices.Clip(old), f), xsync.UpdateOp
	})
}

// Len returns the number of findings.
func (c *Collector) Len() int {
	n := 0
	c.byMethod.Range(func(_ string, fs []Finding) bool {
		n += len(fs)
		return true
	})
	return n
}

// Findings returns every finding ordered by method, statement index and
// analysis.
func (c *Collector) Findings() []Finding {
	var out []Finding
	c.byMethod.Range(func(_ string, fs []Finding) bool {
		out = append(out, fs...)
		return true
	})
	slices.SortStableFunc(out, compare)
	return out
}

func compare(a, b Finding) int {
	return cmp.Or(
		cmp.Compare(a.MethodName, b.MethodName),
		cmp.Compare(a.Index, b.Index),
		cmp.Compare(a.Analysis, b.Analysis),
	)
}

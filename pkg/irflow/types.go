// Package irflow runs the call graph strategies and the per-method analyses
// over a loaded program.
package irflow

// Analysis names, as used in findings and suppression comments.
const (
	AnalysisTypestate   = "typestate"
	AnalysisMisuse      = "misuse"
	AnalysisUnreachable = "unreachable"
)

// UnreachableMethod represents a method that should be reported as
// unreachable.
type UnreachableMethod struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Class     string `json:"class"`
	Line      int    `json:"line"`
	Reason    string `json:"reason"`
}

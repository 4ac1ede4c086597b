// Package misuse flags insecure arguments to a cryptographic factory method.
//
// A call to the factory is reported when it has no arguments, or when its
// first argument is a string literal other than the approved configuration.
// Arguments that are not literals are not judged.
package misuse

import (
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/report"
	"github.com/715d/irflow/pkg/view"
)

// Config names the factory and the single accepted configuration value.
type Config struct {
	FactoryClass  ir.ClassType
	FactoryMethod string
	ApprovedValue string
}

// DefaultConfig checks javax.crypto.Cipher.getInstance.
func DefaultConfig() Config {
	return Config{
		FactoryClass:  "javax.crypto.Cipher",
		FactoryMethod: "getInstance",
		ApprovedValue: "AES/GCM/PKCS5Padding",
	}
}

// Analyzer checks method bodies statement by statement. It is safe for
// concurrent use.
type Analyzer struct {
	cfg Config
}

// New returns an analyzer for cfg.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Run checks m with the default configuration and reports to r.
func Run(m *view.Method, r report.Reporter) {
	New(DefaultConfig()).Run(m, r)
}

// Run reports every insecure factory call in m to r.
func (a *Analyzer) Run(m *view.Method, r report.Reporter) {
	if !m.HasBody() {
		return
	}
	for _, stmt := range m.Body().Stmts {
		if a.Insecure(stmt) {
			r.ReportVulnerability(m.Signature(), stmt)
		}
	}
}

// Insecure reports whether stmt calls the factory with an unapproved
// configuration.
func (a *Analyzer) Insecure(stmt ir.Stmt) bool {
	call, ok := ir.InvokeOf(stmt)
	if !ok || call.Method.Class != a.cfg.FactoryClass || call.Method.Name != a.cfg.FactoryMethod {
		return false
	}
	if len(call.Args) == 0 {
		return true
	}
	lit, ok := call.Args[0].(*ir.StringConstant)
	return ok && lit.Value != a.cfg.ApprovedValue
}

package callgraph

import (
	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// EntryPointSource is implemented by views that declare their own entry
// points.
type EntryPointSource interface {
	DeclaredEntryPoints() []ir.MethodSignature
}

// EntryPoints returns the roots of reachability for v: the declared entry
// points when there are any, otherwise every static main method and static
// initializer of an application class.
func EntryPoints(v view.View) []ir.MethodSignature {
	if src, ok := v.(EntryPointSource); ok {
		if eps := src.DeclaredEntryPoints(); len(eps) > 0 {
			return eps
		}
	}

	var out []ir.MethodSignature
	for _, c := range v.Classes() {
		if c.Library {
			continue
		}
		for _, m := range c.Methods() {
			if m.IsMain() {
				out = append(out, m.Signature())
			}
		}
	}
	for _, c := range v.Classes() {
		if c.Library {
			continue
		}
		for _, m := range c.Methods() {
			if m.IsStatic() && m.Signature().Name == "<clinit>" && m.HasBody() {
				out = append(out, m.Signature())
			}
		}
	}
	return out
}

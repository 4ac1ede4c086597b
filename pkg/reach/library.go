package reach

import (
	"github.com/715d/irflow/internal/analysis"
	"github.com/715d/irflow/pkg/ir"
)

// DefaultLibraryPrefixes mark the runtime library classes.
var DefaultLibraryPrefixes = []string{"java.", "javax.", "sun.", "jdk."}

// IsTargetClass tells the analysis whether class is application code.
func (a *Analyzer) IsTargetClass(class ir.ClassType) bool {
	if c, ok := a.program.Class(class); ok && c.Library {
		return false
	}
	return !analysis.IsLibraryClass(class, a.libraryPrefixes)
}

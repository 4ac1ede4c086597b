// Package analysis provides method metadata and classification for
// unreachable-method detection.
package analysis

import (
	"strings"

	"github.com/715d/irflow/pkg/ir"
	"github.com/715d/irflow/pkg/view"
)

// MethodInfo represents information about a method in the program.
type MethodInfo struct {
	// Method is the declaration.
	Method *view.Method

	// Name is the display name, e.g. "Circle.draw()".
	Name string

	// IsReachable indicates whether the call graph reaches this method.
	IsReachable bool

	// IsEntryPoint indicates whether the method seeds the call graph.
	IsEntryPoint bool

	// IsLibrary indicates whether the declaring class is library code.
	IsLibrary bool

	// IsSuppressed indicates whether the method has a suppression comment.
	IsSuppressed bool

	// SuppressionReason is the reason given by the suppression comment.
	SuppressionReason string
}

// NewMethodInfo creates a MethodInfo for m. libraryPrefixes are class name
// prefixes treated as library code in addition to classes marked as library.
func NewMethodInfo(m *view.Method, nameCache *NameCache, libraryPrefixes []string) *MethodInfo {
	mi := &MethodInfo{
		Method: m,
		Name:   nameCache.ComputeMethodName(m.Signature()),
	}
	mi.IsLibrary = IsLibraryClass(m.Signature().Class, libraryPrefixes)
	if c := m.Class(); c != nil && c.Library {
		mi.IsLibrary = true
	}
	return mi
}

// Signature returns the method's signature.
func (mi *MethodInfo) Signature() ir.MethodSignature { return mi.Method.Signature() }

// IsLibraryClass reports whether class falls under one of the prefixes.
func IsLibraryClass(class ir.ClassType, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(string(class), p) {
			return true
		}
	}
	return false
}

// ShouldReport determines if this method should be reported as unreachable.
// Returns true if the method is unreachable, has a body, and belongs to
// application code that nobody suppressed.
func (mi *MethodInfo) ShouldReport() bool {
	if mi.IsReachable || mi.IsEntryPoint {
		return false
	}

	// Abstract declarations are never call targets of their own.
	if !mi.Method.HasBody() {
		return false
	}

	if mi.IsSuppressed || mi.IsLibrary {
		return false
	}

	// Static initializers run when the class loads.
	return mi.Method.Signature().Name != "<clinit>"
}

package analysis

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/715d/irflow/pkg/ir"
)

// NameCache provides efficient caching of short display names for method
// signatures and types. It is safe for concurrent use.
type NameCache struct {
	methodCache *xsync.Map[string, string]
	typeCache   *xsync.Map[ir.Type, string]
}

func NewNameCache() *NameCache {
	return &NameCache{
		methodCache: xsync.NewMap[string, string](),
		typeCache:   xsync.NewMap[ir.Type, string](),
	}
}

// ComputeMethodName returns the short name of sig: the unqualified class,
// the method name and the unqualified parameter types, e.g.
// "Main.main(String[])".
func (c *NameCache) ComputeMethodName(sig ir.MethodSignature) string {
	key := sig.String()
	name, ok := c.methodCache.Load(key)
	if ok {
		return name
	}
	name = c.computeMethodName(sig)
	c.methodCache.Store(key, name)
	return name
}

// ComputeTypeName returns typ without its package, keeping array suffixes.
func (c *NameCache) ComputeTypeName(typ ir.Type) string {
	if typ == "" {
		return ""
	}
	name, ok := c.typeCache.Load(typ)
	if ok {
		return name
	}
	name = computeTypeName(typ)
	c.typeCache.Store(typ, name)
	return name
}

func (c *NameCache) computeMethodName(sig ir.MethodSignature) string {
	var builder strings.Builder
	builder.Grow(64)

	builder.WriteString(c.ComputeTypeName(sig.Class.Type()))
	builder.WriteByte('.')
	builder.WriteString(sig.Name)
	builder.WriteByte('(')
	for i, p := range sig.Params {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(c.ComputeTypeName(p))
	}
	builder.WriteByte(')')
	return builder.String()
}

func computeTypeName(typ ir.Type) string {
	s := string(typ)
	base := strings.TrimRight(s, "[]")
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

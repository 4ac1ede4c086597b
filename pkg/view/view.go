// Package view provides read access to the classes and methods of a loaded
// program.
package view

import (
	"slices"
	"strings"

	"github.com/715d/irflow/pkg/ir"
)

// View is the read-only program model consumed by the analyses.
type View interface {
	// Method returns the method with exactly the given signature.
	Method(sig ir.MethodSignature) (*Method, bool)
	// Class returns the class or interface named t.
	Class(t ir.ClassType) (*Class, bool)
	// Classes returns every class of the program sorted by name.
	Classes() []*Class
}

// Class is a class or interface declaration.
type Class struct {
	Name       ir.ClassType
	Super      ir.ClassType // empty when the class has no superclass
	Implements []ir.ClassType
	Interface  bool
	Library    bool // library classes are never reported on

	methods []*Method
}

// NewClass creates a class declaring methods.
func NewClass(name, super ir.ClassType, implements []ir.ClassType, isInterface bool, methods ...*Method) *Class {
	c := &Class{Name: name, Super: super, Implements: implements, Interface: isInterface}
	for _, m := range methods {
		c.AddMethod(m)
	}
	return c
}

// IsInterface reports whether c is an interface.
func (c *Class) IsInterface() bool { return c.Interface }

// HasSuperclass reports whether c extends another class.
func (c *Class) HasSuperclass() bool { return c.Super != "" }

// Superclass returns the direct superclass.
func (c *Class) Superclass() (ir.ClassType, bool) { return c.Super, c.Super != "" }

// Interfaces returns the directly implemented (or, for interfaces, extended)
// interfaces.
func (c *Class) Interfaces() []ir.ClassType { return c.Implements }

// Methods returns the declared methods in declaration order.
func (c *Class) Methods() []*Method { return c.methods }

// AddMethod declares m in c, rewriting its declaring class.
func (c *Class) AddMethod(m *Method) {
	m.Sig.Class = c.Name
	m.class = c
	c.methods = append(c.methods, m)
}

// MethodsMatching returns the declared methods with the name and exact
// parameter list of sig.
func (c *Class) MethodsMatching(sig ir.MethodSignature) []*Method {
	var out []*Method
	for _, m := range c.methods {
		if m.Sig.Matches(sig) {
			out = append(out, m)
		}
	}
	return out
}

// Method is a method declaration with an optional body.
type Method struct {
	Sig      ir.MethodSignature
	Static   bool
	Abstract bool
	body     *ir.Body
	class    *Class
}

// NewMethod creates a method. A nil body marks an abstract or native method.
func NewMethod(sig ir.MethodSignature, static bool, body *ir.Body) *Method {
	return &Method{Sig: sig, Static: static, Abstract: body == nil, body: body}
}

// Signature returns the method's signature.
func (m *Method) Signature() ir.MethodSignature { return m.Sig }

// HasBody reports whether m has statements.
func (m *Method) HasBody() bool { return m.body != nil }

// Body returns the statements of m, or nil.
func (m *Method) Body() *ir.Body { return m.body }

// IsStatic reports whether m is static.
func (m *Method) IsStatic() bool { return m.Static }

// IsAbstract reports whether m has no implementation.
func (m *Method) IsAbstract() bool { return m.Abstract }

// Class returns the declaring class, or nil for a detached method.
func (m *Method) Class() *Class { return m.class }

// IsMain reports whether m is a "public static void main(String[])" entry
// point.
func (m *Method) IsMain() bool {
	return m.Static && m.Sig.Name == "main" && m.Sig.Return == ir.Void &&
		len(m.Sig.Params) == 1 && m.Sig.Params[0] == "java.lang.String[]"
}

// Program is an in-memory View.
type Program struct {
	Name        string
	EntryPoints []ir.MethodSignature

	classes map[ir.ClassType]*Class
	sorted  []*Class
	methods map[string]*Method
}

// NewProgram creates a program holding classes.
func NewProgram(name string, classes ...*Class) *Program {
	p := &Program{
		Name:    name,
		classes: make(map[ir.ClassType]*Class, len(classes)),
		methods: make(map[string]*Method),
	}
	for _, c := range classes {
		p.AddClass(c)
	}
	return p
}

// AddClass adds c, replacing any class with the same name.
func (p *Program) AddClass(c *Class) {
	if old, ok := p.classes[c.Name]; ok {
		for _, m := range old.methods {
			delete(p.methods, m.Sig.String())
		}
		p.sorted = slices.DeleteFunc(p.sorted, func(o *Class) bool { return o == old })
	}
	p.classes[c.Name] = c
	for _, m := range c.methods {
		p.methods[m.Sig.String()] = m
	}
	i, _ := slices.BinarySearchFunc(p.sorted, c.Name, func(o *Class, name ir.ClassType) int {
		return strings.Compare(string(o.Name), string(name))
	})
	p.sorted = slices.Insert(p.sorted, i, c)
}

// Method implements View.
func (p *Program) Method(sig ir.MethodSignature) (*Method, bool) {
	m, ok := p.methods[sig.String()]
	return m, ok
}

// Class implements View.
func (p *Program) Class(t ir.ClassType) (*Class, bool) {
	c, ok := p.classes[t]
	return c, ok
}

// Classes implements View.
func (p *Program) Classes() []*Class { return p.sorted }

// Methods returns every method of the program, ordered by class then
// declaration.
func (p *Program) Methods() []*Method {
	var out []*Method
	for _, c := range p.sorted {
		out = append(out, c.methods...)
	}
	return out
}

// DeclaredEntryPoints returns the entry points named by the program.
func (p *Program) DeclaredEntryPoints() []ir.MethodSignature { return p.EntryPoints }

package ir

import (
	"strconv"
	"strings"
)

// Value is an operand or expression appearing in a statement.
//
// Two values are equivalent when they have the same kind and the same
// canonical form (see Equivalent). Equivalence is distinct from identity:
// the front end interns one *Local per name per body, but every other value
// object stands for a single occurrence in the text.
type Value interface {
	Type() Type
	String() string
	kind() byte
}

// Local is a method-local variable.
type Local struct {
	Name string
	Typ  Type
}

// NewLocal creates a local.
func NewLocal(name string, typ Type) *Local { return &Local{Name: name, Typ: typ} }

func (l *Local) Type() Type     { return l.Typ }
func (l *Local) String() string { return l.Name }
func (*Local) kind() byte       { return 'l' }

// StringConstant is a string literal.
type StringConstant struct {
	Value string
}

func (*StringConstant) Type() Type       { return "java.lang.String" }
func (c *StringConstant) String() string { return strconv.Quote(c.Value) }
func (*StringConstant) kind() byte       { return 's' }

// IntConstant is an integer literal.
type IntConstant struct {
	Value int64
}

func (*IntConstant) Type() Type       { return "int" }
func (c *IntConstant) String() string { return strconv.FormatInt(c.Value, 10) }
func (*IntConstant) kind() byte       { return 'i' }

// NullConstant is the null literal.
type NullConstant struct{}

func (*NullConstant) Type() Type     { return "null" }
func (*NullConstant) String() string { return "null" }
func (*NullConstant) kind() byte     { return 'n' }

// InstanceFieldRef reads or writes a field of an object held in a local.
type InstanceFieldRef struct {
	Base  *Local
	Field FieldSignature
}

func (r *InstanceFieldRef) Type() Type     { return r.Field.Type }
func (r *InstanceFieldRef) String() string { return r.Base.Name + "." + r.Field.String() }
func (*InstanceFieldRef) kind() byte       { return 'f' }

// StaticFieldRef reads or writes a static field.
type StaticFieldRef struct {
	Field FieldSignature
}

func (r *StaticFieldRef) Type() Type     { return r.Field.Type }
func (r *StaticFieldRef) String() string { return r.Field.String() }
func (*StaticFieldRef) kind() byte       { return 'g' }

// NewExpr allocates an object of Class.
type NewExpr struct {
	Class ClassType
}

func (e *NewExpr) Type() Type     { return e.Class.Type() }
func (e *NewExpr) String() string { return "new " + string(e.Class) }
func (*NewExpr) kind() byte       { return 'a' }

// CastExpr converts Op to To.
type CastExpr struct {
	Op Value
	To Type
}

func (e *CastExpr) Type() Type     { return e.To }
func (e *CastExpr) String() string { return "(" + string(e.To) + ") " + e.Op.String() }
func (*CastExpr) kind() byte       { return 'c' }

// BinopExpr applies a binary operator, typically inside an if condition.
type BinopExpr struct {
	Op   string
	X, Y Value
}

func (e *BinopExpr) Type() Type {
	switch e.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		return "boolean"
	}
	return e.X.Type()
}
func (e *BinopExpr) String() string { return e.X.String() + " " + e.Op + " " + e.Y.String() }
func (*BinopExpr) kind() byte       { return 'b' }

// ParameterRef is the right-hand side of an identity statement binding a
// parameter.
type ParameterRef struct {
	Index int
	Typ   Type
}

func (r *ParameterRef) Type() Type { return r.Typ }
func (r *ParameterRef) String() string {
	return "@parameter" + strconv.Itoa(r.Index) + ": " + string(r.Typ)
}
func (*ParameterRef) kind() byte { return 'p' }

// ThisRef is the right-hand side of an identity statement binding the
// receiver.
type ThisRef struct {
	Class ClassType
}

func (r *ThisRef) Type() Type     { return r.Class.Type() }
func (r *ThisRef) String() string { return "@this: " + string(r.Class) }
func (*ThisRef) kind() byte       { return 't' }

// InvokeKind distinguishes dispatch modes.
type InvokeKind int

const (
	// InvokeSpecial calls constructors, private methods and super methods.
	InvokeSpecial InvokeKind = iota
	// InvokeStatic calls a static method.
	InvokeStatic
	// InvokeVirtual dispatches on the receiver's runtime class.
	InvokeVirtual
	// InvokeInterface dispatches through an interface.
	InvokeInterface
)

var invokeKeywords = [...]string{
	InvokeSpecial:   "specialinvoke",
	InvokeStatic:    "staticinvoke",
	InvokeVirtual:   "virtualinvoke",
	InvokeInterface: "interfaceinvoke",
}

func (k InvokeKind) String() string {
	if int(k) < len(invokeKeywords) {
		return invokeKeywords[k]
	}
	return "invoke(" + strconv.Itoa(int(k)) + ")"
}

// IsDynamic reports whether calls of kind k are resolved against the
// receiver's possible runtime types.
func (k InvokeKind) IsDynamic() bool {
	return k == InvokeVirtual || k == InvokeInterface
}

// InvokeExpr is a method call. Base is nil for static calls.
type InvokeExpr struct {
	Kind   InvokeKind
	Base   *Local
	Method MethodSignature
	Args   []Value
}

func (e *InvokeExpr) Type() Type { return e.Method.Return }

func (e *InvokeExpr) String() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteByte(' ')
	if e.Base != nil {
		b.WriteString(e.Base.Name)
		b.WriteByte('.')
	}
	b.WriteString(e.Method.String())
	b.WriteByte('(')
	for i, a := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}
func (*InvokeExpr) kind() byte { return 'v' }

// EquivKey returns the canonical form used to compare values structurally.
func EquivKey(v Value) string {
	if v == nil {
		return ""
	}
	if l, ok := v.(*Local); ok {
		return "l:" + l.Name + ":" + string(l.Typ)
	}
	return string(v.kind()) + ":" + v.String()
}

// Equivalent reports whether a and b are structurally equivalent.
func Equivalent(a, b Value) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind() != b.kind() {
		return false
	}
	return EquivKey(a) == EquivKey(b)
}

// Package ir defines the statement-level intermediate representation that
// every analysis in this module consumes: types, method and field
// signatures, values, statements and method bodies.
package ir

import (
	"strings"
)

// Type is a primitive or reference type name, e.g. "int",
// "java.lang.String" or "target.File[]".
type Type string

// Void is the return type of methods that return nothing.
const Void Type = "void"

var primitives = map[Type]struct{}{
	"boolean": {}, "byte": {}, "char": {}, "short": {},
	"int": {}, "long": {}, "float": {}, "double": {},
	Void: {},
}

// IsPrimitive reports whether t names a primitive type or void.
func (t Type) IsPrimitive() bool {
	_, ok := primitives[t]
	return ok
}

// IsArray reports whether t is an array type.
func (t Type) IsArray() bool {
	return strings.HasSuffix(string(t), "[]")
}

// Class returns the class type named by t. Primitive and array types have no
// class.
func (t Type) Class() (ClassType, bool) {
	if t == "" || t.IsPrimitive() || t.IsArray() {
		return "", false
	}
	return ClassType(t), true
}

// ClassType is the fully qualified name of a class or interface.
type ClassType string

// Type returns c as a Type.
func (c ClassType) Type() Type { return Type(c) }

// PackageName returns the part of c before the last dot.
func (c ClassType) PackageName() string {
	if i := strings.LastIndexByte(string(c), '.'); i >= 0 {
		return string(c[:i])
	}
	return ""
}

// ShortName returns the part of c after the last dot.
func (c ClassType) ShortName() string {
	if i := strings.LastIndexByte(string(c), '.'); i >= 0 {
		return string(c[i+1:])
	}
	return string(c)
}

// MethodSignature identifies a method by its declaring class, name, parameter
// types and return type. Signatures are compared structurally; String returns
// the canonical key.
type MethodSignature struct {
	Class  ClassType
	Name   string
	Params []Type
	Return Type
}

// NewMethodSignature builds a signature.
func NewMethodSignature(class ClassType, ret Type, name string, params ...Type) MethodSignature {
	return MethodSignature{Class: class, Name: name, Params: params, Return: ret}
}

// String renders s as "<Class: Return name(P1,P2)>".
func (s MethodSignature) String() string {
	var b strings.Builder
	b.Grow(len(s.Class) + len(s.Name) + 32)
	b.WriteByte('<')
	b.WriteString(string(s.Class))
	b.WriteString(": ")
	b.WriteString(string(s.Return))
	b.WriteByte(' ')
	b.WriteString(s.SubSignature())
	b.WriteByte('>')
	return b.String()
}

// SubSignature renders the part of s used for dispatch: "name(P1,P2)".
// The return type does not take part in matching.
func (s MethodSignature) SubSignature() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, p := range s.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(p))
	}
	b.WriteByte(')')
	return b.String()
}

// Equal reports whether s and o denote the same method.
func (s MethodSignature) Equal(o MethodSignature) bool {
	return s.Class == o.Class && s.Name == o.Name && s.Return == o.Return && sameParams(s.Params, o.Params)
}

// Matches reports whether s and o have the same name and exactly the same
// parameter list. Declaring class and return type are ignored.
func (s MethodSignature) Matches(o MethodSignature) bool {
	return s.Name == o.Name && sameParams(s.Params, o.Params)
}

// WithClass returns a copy of s declared in c.
func (s MethodSignature) WithClass(c ClassType) MethodSignature {
	s.Class = c
	return s
}

// IsConstructor reports whether s names an instance initializer.
func (s MethodSignature) IsConstructor() bool {
	return s.Name == "<init>"
}

func sameParams(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FieldSignature identifies a field by declaring class, type and name.
type FieldSignature struct {
	Class ClassType
	Type  Type
	Name  string
}

// String renders f as "<Class: Type name>".
func (f FieldSignature) String() string {
	return "<" + string(f.Class) + ": " + string(f.Type) + " " + f.Name + ">"
}

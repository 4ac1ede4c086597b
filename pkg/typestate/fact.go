package typestate

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/715d/irflow/pkg/ir"
)

// State is the lifecycle state of a tracked resource.
type State uint8

const (
	Init State = iota
	Open
	Close
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Open:
		return "Open"
	case Close:
		return "Close"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Fact is one resource instance: the values known to refer to it and its
// state. Facts are immutable; every change builds a new Fact.
type Fact struct {
	aliases []ir.Value
	keys    []string
	state   State
}

// NewFact returns a fact over aliases. Equivalent values are collapsed and
// the aliases are kept in a canonical order.
func NewFact(aliases []ir.Value, state State) Fact {
	byKey := make(map[string]ir.Value, len(aliases))
	for _, v := range aliases {
		k := ir.EquivKey(v)
		if _, ok := byKey[k]; !ok {
			byKey[k] = v
		}
	}
	f := Fact{keys: slices.Sorted(maps.Keys(byKey)), state: state}
	f.aliases = make([]ir.Value, len(f.keys))
	for i, k := range f.keys {
		f.aliases[i] = byKey[k]
	}
	return f
}

// Aliases returns the values referring to the resource.
func (f Fact) Aliases() []ir.Value { return slices.Clone(f.aliases) }

// State returns the resource state.
func (f Fact) State() State { return f.state }

// Empty reports whether no value refers to the resource any more.
func (f Fact) Empty() bool { return len(f.keys) == 0 }

// Contains reports whether v is an alias of the resource.
func (f Fact) Contains(v ir.Value) bool {
	_, ok := slices.BinarySearch(f.keys, ir.EquivKey(v))
	return ok
}

// WithState returns a copy of f in state s.
func (f Fact) WithState(s State) Fact {
	f.state = s
	return f
}

// Key identifies the fact by alias membership and state.
func (f Fact) Key() string {
	return strings.Join(f.keys, "|") + "#" + f.state.String()
}

func (f Fact) String() string {
	names := make([]string, len(f.aliases))
	for i, v := range f.aliases {
		names[i] = v.String()
	}
	return "{" + strings.Join(names, ", ") + "}: " + f.state.String()
}

// FactSet is the set of facts holding at a program point. The zero value is
// an empty set. Sets are treated as values: operations return new sets.
type FactSet struct {
	facts map[string]Fact
}

// NewFactSet returns a set holding facts.
func NewFactSet(facts ...Fact) FactSet {
	s := FactSet{facts: make(map[string]Fact, len(facts))}
	for _, f := range facts {
		s.facts[f.Key()] = f
	}
	return s
}

// Len returns the number of facts.
func (s FactSet) Len() int { return len(s.facts) }

// Facts returns the facts ordered by key.
func (s FactSet) Facts() []Fact {
	out := make([]Fact, 0, len(s.facts))
	for _, k := range slices.Sorted(maps.Keys(s.facts)) {
		out = append(out, s.facts[k])
	}
	return out
}

// Has reports whether f is in the set.
func (s FactSet) Has(f Fact) bool {
	_, ok := s.facts[f.Key()]
	return ok
}

// Union returns the facts of s and o.
func (s FactSet) Union(o FactSet) FactSet {
	out := FactSet{facts: maps.Clone(s.facts)}
	if out.facts == nil {
		out.facts = make(map[string]Fact, len(o.facts))
	}
	maps.Copy(out.facts, o.facts)
	return out
}

// Equal reports whether s and o hold the same facts.
func (s FactSet) Equal(o FactSet) bool {
	if len(s.facts) != len(o.facts) {
		return false
	}
	for k := range s.facts {
		if _, ok := o.facts[k]; !ok {
			return false
		}
	}
	return true
}

func (s FactSet) String() string {
	parts := make([]string, 0, len(s.facts))
	for _, f := range s.Facts() {
		parts = append(parts, f.String())
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

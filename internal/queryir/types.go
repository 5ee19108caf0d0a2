package queryir

import "github.com/roach88/cae/internal/ir"

// FieldKind names the label kind in Equals filters.
const FieldKind = "kind"

// Filter is a sealed interface over filter nodes:
// KindIs, Equals, And and Or.
type Filter interface {
	filterNode()
}

// KindIs matches labels whose kind is one of Kinds.
//
// Semantics:
//
//	kind IN (<kinds>)
//
// An empty Kinds list matches nothing.
type KindIs struct {
	Kinds []string
}

func (KindIs) filterNode() {}

// Kinds is shorthand for KindIs{Kinds: kinds}.
func Kinds(kinds ...string) KindIs {
	return KindIs{Kinds: kinds}
}

// Equals matches labels whose field equals Value.
//
// Semantics:
//
//	fields.<field> = <value>
//
// Missing fields never match. Positions compare as [x, y] arrays:
//
//	Equals{Field: "to", Value: ir.IRArray{ir.IRInt(3), ir.IRInt(1)}}
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) filterNode() {}

// Eq is shorthand for Equals{Field: field, Value: value}.
func Eq(field string, value ir.IRValue) Equals {
	return Equals{Field: field, Value: value}
}

// And matches when every filter matches. Empty And matches everything.
type And struct {
	Filters []Filter
}

func (And) filterNode() {}

// AllOf is shorthand for And{Filters: fs}.
func AllOf(fs ...Filter) And {
	return And{Filters: fs}
}

// Or matches when at least one filter matches. Empty Or matches nothing.
type Or struct {
	Filters []Filter
}

func (Or) filterNode() {}

// AnyOf is shorthand for Or{Filters: fs}.
func AnyOf(fs ...Filter) Or {
	return Or{Filters: fs}
}

// Select addresses archived nodes of one run.
//
// Semantics:
//
//	SELECT nodes FROM <run> WHERE turn IN (<turns>) AND <filter>
//
// Empty Turns selects every turn; nil Filter selects every node.
type Select struct {
	Run    string
	Turns  []int
	Filter Filter
}

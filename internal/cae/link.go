package cae

import "fmt"

// Label is the constraint on node payloads. Labels are compared by value
// and rendered with String in diagnostics.
type Label interface {
	comparable
	String() string
}

// Predicate decides whether a link is interesting to a query or
// subscription. Predicates must not mutate the graph.
type Predicate[L Label] func(Link[L]) bool

// NodeID identifies one node in one turn of one Graph.
type NodeID struct {
	graph uint64
	gen   uint64
	index int32
}

// Index returns the arena slot of the node.
func (id NodeID) Index() int { return int(id.index) }

// Generation returns the turn generation that issued the id.
func (id NodeID) Generation() uint64 { return id.gen }

// IsZero reports whether id was never issued by a Graph.
func (id NodeID) IsZero() bool { return id.graph == 0 }

func (id NodeID) String() string {
	if id.IsZero() {
		return "n?"
	}
	return fmt.Sprintf("n%d@%d", id.index, id.gen)
}

// Link is a value handle to a node: its identity plus a copy of its label.
// Two links name the same node when their IDs are equal.
type Link[L Label] struct {
	ID    NodeID
	Label L
}

// Same reports whether l and other refer to the same node.
func (l Link[L]) Same(other Link[L]) bool {
	return l.ID == other.ID
}

// IsRoot reports whether l is the Root of its turn.
func (l Link[L]) IsRoot() bool {
	return !l.ID.IsZero() && l.ID.index == rootIndex
}

func (l Link[L]) String() string {
	return fmt.Sprintf("%s %s", l.ID, l.Label.String())
}

// Any matches every link.
func Any[L Label]() Predicate[L] {
	return func(Link[L]) bool { return true }
}

// LabelIs matches links whose label equals want.
func LabelIs[L Label](want L) Predicate[L] {
	return func(l Link[L]) bool { return l.Label == want }
}

// Not inverts p.
func Not[L Label](p Predicate[L]) Predicate[L] {
	return func(l Link[L]) bool { return !p(l) }
}

// AllOf matches when every predicate matches.
func AllOf[L Label](ps ...Predicate[L]) Predicate[L] {
	return func(l Link[L]) bool {
		for _, p := range ps {
			if !p(l) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches when at least one predicate matches.
func AnyOf[L Label](ps ...Predicate[L]) Predicate[L] {
	return func(l Link[L]) bool {
		for _, p := range ps {
			if p(l) {
				return true
			}
		}
		return false
	}
}

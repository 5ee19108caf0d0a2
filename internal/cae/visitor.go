package cae

import "iter"

// Visitor walks a turn in pre-order depth-first order starting at the
// Root. Children are visited in insertion order.
//
// A Visitor holds only a cursor, so many visitors can walk the same
// unmutated graph at once. Resuming a visitor after NewTurn, or against a
// different Graph, panics with a *LinkError (ErrCodeStaleVisitor).
type Visitor[L Label] struct {
	graph uint64
	gen   uint64
	next  int32
}

// Scan returns a visitor positioned before the Root of the current turn.
func (g *Graph[L]) Scan() *Visitor[L] {
	return &Visitor[L]{graph: g.id, gen: g.gen, next: rootIndex}
}

// Next returns the next link in scan order, or false once the walk is
// complete.
func (v *Visitor[L]) Next(g *Graph[L]) (Link[L], bool) {
	if v.graph != g.id || v.gen != g.gen {
		panic(&LinkError{
			Code:       ErrCodeStaleVisitor,
			Op:         "Visitor.Next",
			ID:         NodeID{graph: v.graph, gen: v.gen, index: v.next},
			Generation: g.gen,
		})
	}
	if v.next == none {
		return Link[L]{}, false
	}

	cur := v.next
	v.next = g.successor(cur)
	return g.link(cur), true
}

// successor returns the pre-order successor of idx, or none when idx is the
// last node of the walk.
func (g *Graph[L]) successor(idx int32) int32 {
	if c := g.nodes[idx].firstChild; c != none {
		return c
	}
	for idx != rootIndex {
		if s := g.nodes[idx].nextSibling; s != none {
			return s
		}
		idx = g.nodes[idx].parent
	}
	return none
}

// All returns the turn's links in scan order.
func (g *Graph[L]) All() iter.Seq[Link[L]] {
	return func(yield func(Link[L]) bool) {
		v := g.Scan()
		for {
			l, ok := v.Next(g)
			if !ok || !yield(l) {
				return
			}
		}
	}
}

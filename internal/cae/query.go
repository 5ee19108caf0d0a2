package cae

import "iter"

// FindFirstLink returns the first link in scan order accepted by pred.
func (g *Graph[L]) FindFirstLink(pred Predicate[L]) (Link[L], bool) {
	for l := range g.All() {
		if pred(l) {
			return l, true
		}
	}
	return Link[L]{}, false
}

// FindFirstAncestor walks strictly upward from effect and returns the
// nearest ancestor accepted by pred. The effect itself is never tested.
// The Root is tested like any other ancestor, so it is only returned when
// pred accepts the root label.
func (g *Graph[L]) FindFirstAncestor(effect Link[L], pred Predicate[L]) (Link[L], bool) {
	idx := g.resolve("FindFirstAncestor", effect)
	for p := g.nodes[idx].parent; p != none; p = g.nodes[p].parent {
		if l := g.link(p); pred(l) {
			return l, true
		}
	}
	return Link[L]{}, false
}

// Ancestors yields the causes of effect from nearest to the Root.
// The handle is validated when Ancestors is called.
func (g *Graph[L]) Ancestors(effect Link[L]) iter.Seq[Link[L]] {
	idx := g.resolve("Ancestors", effect)
	gen := g.gen
	return func(yield func(Link[L]) bool) {
		if g.gen != gen {
			panic(&LinkError{Code: ErrCodeStaleLink, Op: "Ancestors", ID: effect.ID, Generation: g.gen})
		}
		for p := g.nodes[idx].parent; p != none; p = g.nodes[p].parent {
			if !yield(g.link(p)) {
				return
			}
		}
	}
}

// Path returns the chain from the Root down to l, both included.
func (g *Graph[L]) Path(l Link[L]) []Link[L] {
	idx := g.resolve("Path", l)
	out := make([]Link[L], g.nodes[idx].depth+1)
	for i := len(out) - 1; idx != none; i-- {
		out[i] = g.link(idx)
		idx = g.nodes[idx].parent
	}
	return out
}

// Filter returns every link accepted by pred, in scan order. The result is
// never nil.
func (g *Graph[L]) Filter(pred Predicate[L]) []Link[L] {
	out := make([]Link[L], 0)
	for l := range g.All() {
		if pred(l) {
			out = append(out, l)
		}
	}
	return out
}

// Count returns the number of links accepted by pred.
func (g *Graph[L]) Count(pred Predicate[L]) int {
	n := 0
	for l := range g.All() {
		if pred(l) {
			n++
		}
	}
	return n
}

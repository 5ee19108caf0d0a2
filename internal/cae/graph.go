package cae

import (
	"log/slog"
)

const (
	rootIndex int32 = 0
	none      int32 = -1
)

// DefaultCapacity is the arena capacity reserved by New.
const DefaultCapacity = 64

type node[L Label] struct {
	label       L
	parent      int32
	firstChild  int32
	lastChild   int32
	nextSibling int32
	depth       int32
}

// Graph is the per-turn causal tree.
//
// Thread-safety: a Graph is NOT safe for concurrent mutation. Readers may
// traverse concurrently only while no writer is active.
type Graph[L Label] struct {
	id        uint64
	gen       uint64
	rootLabel L
	nodes     []node[L]
	logger    *slog.Logger
}

type options struct {
	logger   *slog.Logger
	capacity int
}

// Option configures a Graph.
type Option func(*options)

// WithLogger sets the logger used for turn lifecycle messages.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCapacity reserves arena space for n nodes per turn.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// New creates a Graph holding a single Root node labelled root.
func New[L Label](root L, opts ...Option) *Graph[L] {
	o := options{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	g := &Graph[L]{
		id:        graphIDs.Next(),
		gen:       1,
		rootLabel: root,
		nodes:     make([]node[L], 0, o.capacity),
		logger:    o.logger,
	}
	g.plantRoot()
	return g
}

func (g *Graph[L]) plantRoot() {
	g.nodes = append(g.nodes, node[L]{
		label:       g.rootLabel,
		parent:      none,
		firstChild:  none,
		lastChild:   none,
		nextSibling: none,
	})
}

// NewTurn discards every node and starts a fresh turn with a new Root.
// All links issued before the call become stale.
func (g *Graph[L]) NewTurn() {
	prev := len(g.nodes)
	clear(g.nodes)
	g.nodes = g.nodes[:0]
	g.gen++
	g.plantRoot()

	g.logger.Debug("cae new turn",
		"graph", g.id,
		"generation", g.gen,
		"discarded", prev,
	)
}

// Root returns the Root of the current turn.
func (g *Graph[L]) Root() Link[L] {
	return g.link(rootIndex)
}

// Generation returns the current turn generation. It starts at 1 and
// increases by one on every NewTurn.
func (g *Graph[L]) Generation() uint64 {
	return g.gen
}

// Len returns the number of nodes in the current turn, Root included.
func (g *Graph[L]) Len() int {
	return len(g.nodes)
}

// AddEffect records label as a new effect of cause and returns its link.
// The new node becomes the last child of cause. Panics with *LinkError if
// cause was not issued by g in the current turn.
func (g *Graph[L]) AddEffect(cause Link[L], label L) Link[L] {
	parent := g.resolve("AddEffect", cause)

	idx := int32(len(g.nodes))
	g.nodes = append(g.nodes, node[L]{
		label:       label,
		parent:      parent,
		firstChild:  none,
		lastChild:   none,
		nextSibling: none,
		depth:       g.nodes[parent].depth + 1,
	})

	p := &g.nodes[parent]
	if p.lastChild == none {
		p.firstChild = idx
	} else {
		g.nodes[p.lastChild].nextSibling = idx
	}
	p.lastChild = idx

	return g.link(idx)
}

// Cause returns the unique cause of effect. It returns false for the Root.
func (g *Graph[L]) Cause(effect Link[L]) (Link[L], bool) {
	idx := g.resolve("Cause", effect)
	parent := g.nodes[idx].parent
	if parent == none {
		return Link[L]{}, false
	}
	return g.link(parent), true
}

// Effects returns the direct effects of cause in insertion order.
func (g *Graph[L]) Effects(cause Link[L]) []Link[L] {
	idx := g.resolve("Effects", cause)
	out := make([]Link[L], 0)
	for c := g.nodes[idx].firstChild; c != none; c = g.nodes[c].nextSibling {
		out = append(out, g.link(c))
	}
	return out
}

// Depth returns the number of edges between l and the Root.
func (g *Graph[L]) Depth(l Link[L]) int {
	return int(g.nodes[g.resolve("Depth", l)].depth)
}

// Contains reports whether l names a node of the current turn of g.
// Unlike the other operations it never panics.
func (g *Graph[L]) Contains(l Link[L]) bool {
	return g.check(l.ID) == ""
}

func (g *Graph[L]) link(idx int32) Link[L] {
	return Link[L]{
		ID:    NodeID{graph: g.id, gen: g.gen, index: idx},
		Label: g.nodes[idx].label,
	}
}

// resolve validates l and returns its arena index.
func (g *Graph[L]) resolve(op string, l Link[L]) int32 {
	if code := g.check(l.ID); code != "" {
		panic(&LinkError{Code: code, Op: op, ID: l.ID, Generation: g.gen})
	}
	return l.ID.index
}

func (g *Graph[L]) check(id NodeID) LinkErrorCode {
	switch {
	case id.graph != g.id:
		return ErrCodeForeignLink
	case id.gen != g.gen:
		return ErrCodeStaleLink
	case id.index < 0 || int(id.index) >= len(g.nodes):
		return ErrCodeUnknownNode
	}
	return ""
}

// Package cae implements the per-turn cause-and-effect graph.
//
// A Graph is a rooted tree of host-defined labels. Every node except the
// Root has exactly one cause (its parent). Systems append effects during the
// building phase of a tick and downstream systems query the finished tree:
//
//	g := cae.New(event.Root())
//	g.NewTurn()
//	turn := g.AddEffect(g.Root(), event.Turn(hero))
//	move := g.AddEffect(turn, event.MoveIntent(hero, from, to))
//
//	actor, ok := g.FindFirstAncestor(move, event.Is(event.KindTurn))
//
// STORAGE:
//
// Nodes live in a single arena slice owned by the Graph. Children are kept
// as an intrusive first-child / next-sibling list so insertion order is
// preserved without per-node allocations. NewTurn clears the arena in
// O(previous node count) and keeps its capacity for the next tick.
//
// HANDLES:
//
// A Link carries a NodeID tagged with the graph instance and the turn
// generation that issued it. Every operation taking a Link validates the
// tag and panics with a *LinkError when the handle is stale (issued before
// the last NewTurn) or foreign (issued by another Graph). The zero Link is
// foreign to every graph.
//
// CONCURRENCY:
//
// A Graph has exactly one writer. There is no internal locking. Any number
// of Visitors may traverse the graph concurrently as long as nothing
// mutates it, which the host guarantees by running writer systems before
// reader systems.
//
// SUBSCRIPTIONS:
//
// A Registry holds named predicates. Polling a Subscription re-scans the
// whole turn and returns every match in scan order, so polling twice
// without an intervening mutation yields the same result.
package cae

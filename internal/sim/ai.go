package sim

import "github.com/roach88/cae/internal/event"

// nearestHostile returns the closest living hostile of e by Chebyshev
// distance, lowest id first on ties.
func nearestHostile(w *World, e *Entity) (*Entity, bool) {
	var best *Entity
	bestDist := 0
	for _, o := range w.Living() {
		if !e.Hostile(o) {
			continue
		}
		d := e.Pos.Chebyshev(o.Pos)
		if best == nil || d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, best != nil
}

// free reports whether an entity could step onto p right now.
func (w *World) free(p event.Point) bool {
	if !w.InBounds(p) || w.IsWall(p) {
		return false
	}
	_, occupied := w.EntityAt(p)
	return !occupied
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// aiIntent picks the intent of an AI-controlled entity: attack an adjacent
// hostile, otherwise step towards the nearest one, otherwise wait.
func aiIntent(w *World, e *Entity) event.Label {
	target, ok := nearestHostile(w, e)
	if !ok {
		return event.Wait(e.ID)
	}
	if e.Pos.Chebyshev(target.Pos) <= 1 {
		return event.AttackIntent(e.ID, target.ID)
	}

	dx, dy := sign(target.Pos.X-e.Pos.X), sign(target.Pos.Y-e.Pos.Y)
	for _, d := range []event.Point{{X: dx, Y: dy}, {X: dx}, {Y: dy}} {
		if d == (event.Point{}) {
			continue
		}
		if to := e.Pos.Add(d); w.free(to) {
			return event.MoveIntent(e.ID, e.Pos, to)
		}
	}
	return event.Wait(e.ID)
}

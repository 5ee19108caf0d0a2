package event

import "slices"

// Is matches links whose label has one of kinds.
func Is(kinds ...Kind) Predicate {
	return func(l Link) bool {
		return slices.Contains(kinds, l.Label.Kind)
	}
}

// ActorIs matches labels performed by id.
func ActorIs(id EntityID) Predicate {
	return func(l Link) bool { return l.Label.Actor == id }
}

// SubjectIs matches labels that happen to id.
func SubjectIs(id EntityID) Predicate {
	return func(l Link) bool { return l.Label.Subject() == id }
}

// TurnOf matches the Turn node of actor.
func TurnOf(actor EntityID) Predicate {
	return func(l Link) bool {
		return l.Label.Kind == KindTurn && l.Label.Actor == actor
	}
}

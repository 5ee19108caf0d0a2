package sim

import (
	"errors"
	"fmt"

	"github.com/roach88/cae/internal/event"
)

// Controller decides where an entity's intents come from.
type Controller string

const (
	// ControllerScript entities act on queued commands and wait otherwise.
	ControllerScript Controller = "script"
	// ControllerAI entities chase and attack the nearest hostile.
	ControllerAI Controller = "ai"
)

// DefaultPotionHeal is used when a world does not set PotionHeal.
const DefaultPotionHeal = 5

// EntitySpec declares one entity of a world.
type EntitySpec struct {
	Name       string      `json:"name"`
	Pos        event.Point `json:"pos"`
	HP         int         `json:"hp"`
	Attack     int         `json:"attack"`
	Faction    string      `json:"faction"`
	Controller Controller  `json:"controller"`
	Potions    int         `json:"potions"`
}

// TrapSpec declares a trap. Radius 0 hurts only the entity stepping on it;
// a positive radius bursts over every cell within that Chebyshev distance.
type TrapSpec struct {
	Name   string      `json:"name"`
	Pos    event.Point `json:"pos"`
	Damage int         `json:"damage"`
	Radius int         `json:"radius"`
}

// WorldSpec is the declarative description of a world, usually compiled
// from CUE.
type WorldSpec struct {
	Name       string        `json:"name"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	PotionHeal int           `json:"potion_heal"`
	Walls      []event.Point `json:"walls"`
	Entities   []EntitySpec  `json:"entities"`
	Traps      []TrapSpec    `json:"traps"`
}

// Entity is the live state of one declared entity.
type Entity struct {
	ID         event.EntityID
	Name       string
	Pos        event.Point
	HP         int
	MaxHP      int
	Attack     int
	Faction    string
	Controller Controller
	Potions    int
}

// Alive reports whether e still has hit points.
func (e *Entity) Alive() bool { return e.HP > 0 }

// Hostile reports whether e and other fight each other.
func (e *Entity) Hostile(other *Entity) bool {
	return e.ID != other.ID && e.Faction != other.Faction
}

// World is the mutable grid state.
type World struct {
	Name       string
	Width      int
	Height     int
	PotionHeal int

	walls    map[event.Point]struct{}
	traps    map[event.Point]TrapSpec
	entities []*Entity
	byName   map[string]*Entity
}

// NewWorld builds a world from spec. Entity ids follow declaration order
// starting at 1.
func NewWorld(spec WorldSpec) (*World, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("world %q: invalid size %dx%d", spec.Name, spec.Width, spec.Height)
	}
	w := &World{
		Name:       spec.Name,
		Width:      spec.Width,
		Height:     spec.Height,
		PotionHeal: spec.PotionHeal,
		walls:      make(map[event.Point]struct{}, len(spec.Walls)),
		traps:      make(map[event.Point]TrapSpec, len(spec.Traps)),
		byName:     make(map[string]*Entity, len(spec.Entities)),
	}
	if w.PotionHeal == 0 {
		w.PotionHeal = DefaultPotionHeal
	}

	var errs []error
	for _, p := range spec.Walls {
		if !w.InBounds(p) {
			errs = append(errs, fmt.Errorf("wall %s out of bounds", p))
			continue
		}
		w.walls[p] = struct{}{}
	}
	for _, t := range spec.Traps {
		switch {
		case !w.InBounds(t.Pos):
			errs = append(errs, fmt.Errorf("trap %q at %s out of bounds", t.Name, t.Pos))
		case w.IsWall(t.Pos):
			errs = append(errs, fmt.Errorf("trap %q at %s is inside a wall", t.Name, t.Pos))
		default:
			w.traps[t.Pos] = t
		}
	}
	for i, es := range spec.Entities {
		e := &Entity{
			ID:         event.EntityID(i + 1),
			Name:       es.Name,
			Pos:        es.Pos,
			HP:         es.HP,
			MaxHP:      es.HP,
			Attack:     es.Attack,
			Faction:    es.Faction,
			Controller: es.Controller,
			Potions:    es.Potions,
		}
		if e.Controller == "" {
			e.Controller = ControllerScript
		}
		switch {
		case es.Name == "":
			errs = append(errs, fmt.Errorf("entity %d has no name", e.ID))
		case w.byName[es.Name] != nil:
			errs = append(errs, fmt.Errorf("duplicate entity %q", es.Name))
		case !w.InBounds(es.Pos) || w.IsWall(es.Pos):
			errs = append(errs, fmt.Errorf("entity %q at %s is not on a free cell", es.Name, es.Pos))
		case es.HP <= 0:
			errs = append(errs, fmt.Errorf("entity %q must start with positive hp", es.Name))
		}
		if other, ok := w.EntityAt(es.Pos); ok {
			errs = append(errs, fmt.Errorf("entities %q and %q share %s", other.Name, es.Name, es.Pos))
		}
		w.entities = append(w.entities, e)
		if es.Name != "" && w.byName[es.Name] == nil {
			w.byName[es.Name] = e
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("world %q: %w", spec.Name, errors.Join(errs...))
	}
	return w, nil
}

// InBounds reports whether p lies on the grid.
func (w *World) InBounds(p event.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.Width && p.Y < w.Height
}

func (w *World) IsWall(p event.Point) bool {
	_, ok := w.walls[p]
	return ok
}

// TrapAt returns the trap at p, if any.
func (w *World) TrapAt(p event.Point) (TrapSpec, bool) {
	t, ok := w.traps[p]
	return t, ok
}

// Entity returns the entity with id.
func (w *World) Entity(id event.EntityID) (*Entity, bool) {
	if id < 1 || int(id) > len(w.entities) {
		return nil, false
	}
	return w.entities[id-1], true
}

// EntityByName returns the entity declared as name.
func (w *World) EntityByName(name string) (*Entity, bool) {
	e, ok := w.byName[name]
	return e, ok
}

// Entities returns every entity, dead or alive, in id order.
func (w *World) Entities() []*Entity {
	return w.entities
}

// Living returns the living entities in id order.
func (w *World) Living() []*Entity {
	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		if e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

// EntityAt returns the living entity standing on p.
func (w *World) EntityAt(p event.Point) (*Entity, bool) {
	for _, e := range w.entities {
		if e.Alive() && e.Pos == p {
			return e, true
		}
	}
	return nil, false
}

// NameOf returns the name of id, or "something" for id 0 and unknown ids.
func (w *World) NameOf(id event.EntityID) string {
	if e, ok := w.Entity(id); ok {
		return e.Name
	}
	return "something"
}

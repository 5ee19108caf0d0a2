package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/sim"
)

// Validation error codes (E200-E299)
const (
	ErrWorldSize         = "E201" // width and height must be positive
	ErrOutOfBounds       = "E202" // position outside the grid
	ErrInsideWall        = "E203" // entity or trap placed on a wall
	ErrSharedCell        = "E204" // two entities start on the same cell
	ErrInvalidStat       = "E205" // negative or zero stat
	ErrInvalidController = "E206" // controller is neither script nor ai
	ErrNoEntities        = "E207" // world declares no entity
	ErrDuplicateName     = "E208" // duplicate entity or trap name
	ErrEmptyName         = "E209" // entity or trap without a name
)

// ValidationError represents a world validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled world. Returns all errors found (does not
// fail-fast).
func Validate(spec *sim.WorldSpec) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if spec.Width <= 0 || spec.Height <= 0 {
		add(ErrWorldSize, "size", "world must be at least 1x1, got %dx%d", spec.Width, spec.Height)
	}
	if spec.PotionHeal < 0 {
		add(ErrInvalidStat, "potion_heal", "potion_heal must not be negative")
	}
	inBounds := func(p event.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < spec.Width && p.Y < spec.Height
	}

	walls := make(map[event.Point]bool)
	for i, p := range spec.Walls {
		if !inBounds(p) {
			add(ErrOutOfBounds, fmt.Sprintf("walls[%d]", i), "wall %s is outside the grid", p)
		}
		walls[p] = true
	}

	if len(spec.Entities) == 0 {
		add(ErrNoEntities, "entities", "at least one entity is required")
	}
	names := make(map[string]bool)
	cells := make(map[event.Point]string)
	for i, e := range spec.Entities {
		field := fmt.Sprintf("entities[%d]", i)
		if strings.TrimSpace(e.Name) == "" {
			add(ErrEmptyName, field, "entity name is required")
		} else {
			field = "entities." + e.Name
			if names[e.Name] {
				add(ErrDuplicateName, field, "duplicate entity name %q", e.Name)
			}
			names[e.Name] = true
		}

		switch {
		case !inBounds(e.Pos):
			add(ErrOutOfBounds, field+".pos", "%s is outside the grid", e.Pos)
		case walls[e.Pos]:
			add(ErrInsideWall, field+".pos", "%s is a wall", e.Pos)
		}
		if other, ok := cells[e.Pos]; ok {
			add(ErrSharedCell, field+".pos", "%s is already taken by %q", e.Pos, other)
		} else {
			cells[e.Pos] = e.Name
		}

		if e.HP <= 0 {
			add(ErrInvalidStat, field+".hp", "hp must be positive")
		}
		if e.Attack < 0 {
			add(ErrInvalidStat, field+".attack", "attack must not be negative")
		}
		if e.Potions < 0 {
			add(ErrInvalidStat, field+".potions", "potions must not be negative")
		}
		switch e.Controller {
		case sim.ControllerScript, sim.ControllerAI, "":
		default:
			add(ErrInvalidController, field+".controller", "controller must be %q or %q, got %q",
				sim.ControllerScript, sim.ControllerAI, e.Controller)
		}
	}

	trapNames := make(map[string]bool)
	for i, t := range spec.Traps {
		field := fmt.Sprintf("traps[%d]", i)
		if strings.TrimSpace(t.Name) == "" {
			add(ErrEmptyName, field, "trap name is required")
		} else {
			field = "traps." + t.Name
			if trapNames[t.Name] {
				add(ErrDuplicateName, field, "duplicate trap name %q", t.Name)
			}
			trapNames[t.Name] = true
		}
		switch {
		case !inBounds(t.Pos):
			add(ErrOutOfBounds, field+".pos", "%s is outside the grid", t.Pos)
		case walls[t.Pos]:
			add(ErrInsideWall, field+".pos", "%s is a wall", t.Pos)
		}
		if t.Damage < 0 {
			add(ErrInvalidStat, field+".damage", "damage must not be negative")
		}
		if t.Radius < 0 {
			add(ErrInvalidStat, field+".radius", "radius must not be negative")
		}
	}
	return errs
}

package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/sim"
)

//go:embed schema.cue
var schemaSrc string

// WorldPath is where a world definition lives inside a CUE file.
const WorldPath = "world"

// CompileSource compiles CUE source containing a top-level world struct.
// filename is only used in error positions.
func CompileSource(filename string, src []byte) (*sim.WorldSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileWorld(v.LookupPath(cue.ParsePath(WorldPath)))
}

// CompileWorld unifies v with the world schema and converts it into a
// WorldSpec. Entities keep their declaration order, which fixes their ids.
//
//	world: {
//		name: "arena", width: 6, height: 4
//		walls: [[1, 0]]
//		entities: Hero: {pos: [1, 1], hp: 10, attack: 3, faction: "heroes"}
//		traps: spikes: {pos: [1, 2], damage: 2}
//	}
func CompileWorld(v cue.Value) (*sim.WorldSpec, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: WorldPath, Message: "world is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("world schema: %w", err)
	}
	w := schema.LookupPath(cue.ParsePath("#World")).Unify(v)
	if err := w.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &sim.WorldSpec{}
	var err error
	if spec.Name, err = stringField(w, "name"); err != nil {
		return nil, err
	}
	if spec.Width, err = intField(w, "width"); err != nil {
		return nil, err
	}
	if spec.Height, err = intField(w, "height"); err != nil {
		return nil, err
	}
	if spec.PotionHeal, err = intField(w, "potion_heal"); err != nil {
		return nil, err
	}
	if spec.Walls, err = parseWalls(w.LookupPath(cue.ParsePath("walls"))); err != nil {
		return nil, err
	}
	if spec.Entities, err = parseEntities(w.LookupPath(cue.ParsePath("entities"))); err != nil {
		return nil, err
	}
	if spec.Traps, err = parseTraps(w.LookupPath(cue.ParsePath("traps"))); err != nil {
		return nil, err
	}
	return spec, nil
}

func field(v cue.Value, name string) (cue.Value, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return f, &CompileError{Field: name, Message: name + " is required", Pos: v.Pos()}
	}
	if d, ok := f.Default(); ok {
		f = d
	}
	return f, nil
}

func intField(v cue.Value, name string) (int, error) {
	f, err := field(v, name)
	if err != nil {
		return 0, err
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func stringField(v cue.Value, name string) (string, error) {
	f, err := field(v, name)
	if err != nil {
		return "", err
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func parsePoint(v cue.Value) (event.Point, error) {
	iter, err := v.List()
	if err != nil {
		return event.Point{}, formatCUEError(err)
	}
	var xy []int
	for iter.Next() {
		n, err := iter.Value().Int64()
		if err != nil {
			return event.Point{}, formatCUEError(err)
		}
		xy = append(xy, int(n))
	}
	if len(xy) != 2 {
		return event.Point{}, &CompileError{Field: "pos", Message: "position must be [x, y]", Pos: v.Pos()}
	}
	return event.Pt(xy[0], xy[1]), nil
}

func parseWalls(v cue.Value) ([]event.Point, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	walls := []event.Point{}
	for iter.Next() {
		p, err := parsePoint(iter.Value())
		if err != nil {
			return nil, err
		}
		walls = append(walls, p)
	}
	return walls, nil
}

func parseEntities(v cue.Value) ([]sim.EntitySpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	entities := []sim.EntitySpec{}
	for iter.Next() {
		name := iter.Label()
		ev := iter.Value()

		e := sim.EntitySpec{Name: name}
		pos, err := field(ev, "pos")
		if err != nil {
			return nil, err
		}
		if e.Pos, err = parsePoint(pos); err != nil {
			return nil, err
		}
		if e.HP, err = intField(ev, "hp"); err != nil {
			return nil, err
		}
		if e.Attack, err = intField(ev, "attack"); err != nil {
			return nil, err
		}
		if e.Potions, err = intField(ev, "potions"); err != nil {
			return nil, err
		}
		if e.Faction, err = stringField(ev, "faction"); err != nil {
			return nil, err
		}
		controller, err := stringField(ev, "controller")
		if err != nil {
			return nil, err
		}
		e.Controller = sim.Controller(controller)
		entities = append(entities, e)
	}
	return entities, nil
}

func parseTraps(v cue.Value) ([]sim.TrapSpec, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	traps := []sim.TrapSpec{}
	for iter.Next() {
		tv := iter.Value()
		t := sim.TrapSpec{Name: iter.Label()}
		pos, err := field(tv, "pos")
		if err != nil {
			return nil, err
		}
		if t.Pos, err = parsePoint(pos); err != nil {
			return nil, err
		}
		if t.Damage, err = intField(tv, "damage"); err != nil {
			return nil, err
		}
		if t.Radius, err = intField(tv, "radius"); err != nil {
			return nil, err
		}
		traps = append(traps, t)
	}
	return traps, nil
}

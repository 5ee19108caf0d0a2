package sim

import (
	"context"
	"fmt"

	"github.com/roach88/cae/internal/event"
)

// subscribed is embedded by systems that poll a single subscription.
type subscribed struct {
	name string
	pred event.Predicate
	sub  *event.Subscription
}

func (s *subscribed) Name() string { return s.name }

func (s *subscribed) Subscribe(r *event.Registry) error {
	sub, err := r.Subscribe(s.name, s.pred)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

// Turns plants one Turn per living entity under the Root, in id order,
// with the entity's intent below it.
type Turns struct{}

func NewTurns() *Turns { return &Turns{} }

func (*Turns) Name() string { return "turns" }
func (*Turns) Phase() Phase { return PhaseWrite }

func (*Turns) Run(_ context.Context, t *Tick) error {
	g, w := t.Graph, t.World
	root := g.Root()
	for _, e := range w.Living() {
		turn := g.AddEffect(root, event.Turn(e.ID))
		g.AddEffect(turn, intentOf(w, e, t.Commands))
	}
	return nil
}

func intentOf(w *World, e *Entity, commands map[event.EntityID]Command) event.Label {
	cmd, ok := commands[e.ID]
	if !ok {
		if e.Controller == ControllerAI {
			return aiIntent(w, e)
		}
		return event.Wait(e.ID)
	}

	switch cmd.Action {
	case ActionMove:
		d, err := event.ParseDirection(cmd.Dir)
		if err != nil {
			return event.Blocked(e.ID, err.Error())
		}
		return event.MoveIntent(e.ID, e.Pos, e.Pos.Add(d))
	case ActionAttack:
		target, ok := w.EntityByName(cmd.Target)
		if !ok {
			return event.Blocked(e.ID, fmt.Sprintf("unknown target %q", cmd.Target))
		}
		return event.AttackIntent(e.ID, target.ID)
	case ActionUse:
		return event.UseItem(e.ID, cmd.item())
	}
	return event.Wait(e.ID)
}

// Movement resolves MoveIntents in scan order. Earlier movers claim cells
// first; stepping into a hostile becomes a bump attack.
type Movement struct{ subscribed }

func NewMovement() *Movement {
	return &Movement{subscribed{name: "movement", pred: event.Is(event.KindMoveIntent)}}
}

func (*Movement) Phase() Phase { return PhaseWrite }

func (m *Movement) Run(_ context.Context, t *Tick) error {
	g, w := t.Graph, t.World
	for _, l := range m.sub.Poll(g) {
		intent := l.Label
		mover, ok := w.Entity(intent.Actor)
		if !ok {
			return fmt.Errorf("move intent for unknown entity %d", intent.Actor)
		}
		to := intent.To

		if !w.InBounds(to) {
			g.AddEffect(l, event.Blocked(mover.ID, "edge of the world"))
			continue
		}
		if w.IsWall(to) {
			g.AddEffect(l, event.Blocked(mover.ID, "wall"))
			continue
		}
		if occ, ok := w.EntityAt(to); ok && occ.ID != mover.ID {
			if mover.Hostile(occ) {
				g.AddEffect(l, event.AttackIntent(mover.ID, occ.ID))
			} else {
				g.AddEffect(l, event.Blocked(mover.ID, "occupied by "+occ.Name))
			}
			continue
		}

		g.AddEffect(l, event.Movement(mover.ID, mover.Pos, to))
		mover.Pos = to
	}
	return nil
}

// Traps springs the trap under every Movement's destination.
type Traps struct{ subscribed }

func NewTraps() *Traps {
	return &Traps{subscribed{name: "traps", pred: event.Is(event.KindMovement)}}
}

func (*Traps) Phase() Phase { return PhaseWrite }

func (tr *Traps) Run(_ context.Context, t *Tick) error {
	g, w := t.Graph, t.World
	for _, l := range tr.sub.Poll(g) {
		mv := l.Label
		trap, ok := w.TrapAt(mv.To)
		if !ok {
			continue
		}
		trigger := g.AddEffect(l, event.EntryTrigger(mv.Actor, trap.Name, mv.To))
		if trap.Radius <= 0 {
			g.AddEffect(trigger, event.TrapDamage(trap.Name, mv.Actor, trap.Damage))
			continue
		}

		burst := g.AddEffect(trigger, event.AreaEffect(trap.Name, mv.To, trap.Radius))
		for _, e := range w.Living() {
			if e.Pos.Chebyshev(mv.To) <= trap.Radius {
				g.AddEffect(burst, event.TrapDamage(trap.Name, e.ID, trap.Damage))
			}
		}
	}
	return nil
}

// Combat turns AttackIntents into Damage.
type Combat struct{ subscribed }

func NewCombat() *Combat {
	return &Combat{subscribed{name: "combat", pred: event.Is(event.KindAttackIntent)}}
}

func (*Combat) Phase() Phase { return PhaseWrite }

func (c *Combat) Run(_ context.Context, t *Tick) error {
	g, w := t.Graph, t.World
	for _, l := range c.sub.Poll(g) {
		attacker, ok := w.Entity(l.Label.Actor)
		if !ok {
			return fmt.Errorf("attack by unknown entity %d", l.Label.Actor)
		}
		target, ok := w.Entity(l.Label.Target)
		if !ok {
			return fmt.Errorf("attack on unknown entity %d", l.Label.Target)
		}

		switch {
		case !target.Alive():
			g.AddEffect(l, event.Blocked(attacker.ID, target.Name+" is already dead"))
		case attacker.Pos.Chebyshev(target.Pos) > 1:
			g.AddEffect(l, event.Blocked(attacker.ID, target.Name+" is out of reach"))
		default:
			g.AddEffect(l, event.Damage(attacker.ID, target.ID, attacker.Attack))
		}
	}
	return nil
}

// Items resolves UseItem. Only potions exist.
type Items struct{ subscribed }

func NewItems() *Items {
	return &Items{subscribed{name: "items", pred: event.Is(event.KindUseItem)}}
}

func (*Items) Phase() Phase { return PhaseWrite }

func (it *Items) Run(_ context.Context, t *Tick) error {
	g, w := t.Graph, t.World
	for _, l := range it.sub.Poll(g) {
		user, ok := w.Entity(l.Label.Actor)
		if !ok {
			return fmt.Errorf("item used by unknown entity %d", l.Label.Actor)
		}
		switch {
		case l.Label.Name != DefaultItem:
			g.AddEffect(l, event.Blocked(user.ID, fmt.Sprintf("unknown item %q", l.Label.Name)))
		case user.Potions == 0:
			g.AddEffect(l, event.Blocked(user.ID, "no potions"))
		default:
			user.Potions--
			g.AddEffect(l, event.Heal(user.ID, user.ID, w.PotionHeal))
		}
	}
	return nil
}

// Health applies Damage and Heal in scan order and records a Death under
// the Damage that kills. Damage and healing aimed at an entity that died
// earlier in the same turn is ignored.
type Health struct{ subscribed }

func NewHealth() *Health {
	return &Health{subscribed{name: "health", pred: event.Is(event.KindDamage, event.KindHeal)}}
}

func (*Health) Phase() Phase { return PhaseWrite }

func (h *Health) Run(_ context.Context, t *Tick) error {
	g, w := t.Graph, t.World
	for _, l := range h.sub.Poll(g) {
		target, ok := w.Entity(l.Label.Target)
		if !ok {
			return fmt.Errorf("%s on unknown entity %d", l.Label.Kind, l.Label.Target)
		}
		if !target.Alive() {
			continue
		}

		if l.Label.Kind == event.KindHeal {
			target.HP = min(target.MaxHP, target.HP+l.Label.Amount)
			continue
		}
		target.HP -= l.Label.Amount
		if target.HP <= 0 {
			target.HP = 0
			g.AddEffect(l, event.Death(target.ID))
		}
	}
	return nil
}

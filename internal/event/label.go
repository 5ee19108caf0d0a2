package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/ir"
)

// Kind distinguishes label variants.
type Kind uint8

const (
	KindRoot Kind = iota
	KindTurn
	KindMoveIntent
	KindMovement
	KindBlocked
	KindEntryTrigger
	KindAreaEffect
	KindAttackIntent
	KindDamage
	KindDeath
	KindUseItem
	KindHeal
	KindWait
)

var kindNames = [...]string{
	KindRoot:         "Root",
	KindTurn:         "Turn",
	KindMoveIntent:   "MoveIntent",
	KindMovement:     "Movement",
	KindBlocked:      "Blocked",
	KindEntryTrigger: "EntryTrigger",
	KindAreaEffect:   "AreaEffect",
	KindAttackIntent: "AttackIntent",
	KindDamage:       "Damage",
	KindDeath:        "Death",
	KindUseItem:      "UseItem",
	KindHeal:         "Heal",
	KindWait:         "Wait",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind resolves a kind by name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Label is the payload of every node in the simulation's causal graph.
// It is a plain comparable value; which fields are meaningful depends on
// Kind (see the constructors).
type Label struct {
	Kind   Kind
	Actor  EntityID
	Target EntityID
	From   Point
	To     Point
	Amount int
	Radius int

	// Name is the item used or the trap sprung.
	Name string

	// Reason explains a Blocked outcome.
	Reason string
}

// Graph, Link and Predicate instantiate the engine for simulation labels.
type (
	Graph        = cae.Graph[Label]
	Link         = cae.Link[Label]
	Predicate    = cae.Predicate[Label]
	Registry     = cae.Registry[Label]
	Subscription = cae.Subscription[Label]
)

// NewGraph returns a graph rooted at Root().
func NewGraph(opts ...cae.Option) *Graph {
	return cae.New(Root(), opts...)
}

// Root is the label of every turn's Root node.
func Root() Label { return Label{Kind: KindRoot} }

// Turn marks the start of actor's turn. All of actor's intents hang below it.
func Turn(actor EntityID) Label { return Label{Kind: KindTurn, Actor: actor} }

// MoveIntent records actor asking to step from one cell to the next.
func MoveIntent(actor EntityID, from, to Point) Label {
	return Label{Kind: KindMoveIntent, Actor: actor, From: from, To: to}
}

// Movement records actor actually stepping from one cell to another.
func Movement(actor EntityID, from, to Point) Label {
	return Label{Kind: KindMovement, Actor: actor, From: from, To: to}
}

// Blocked records an intent of actor that could not happen, and why.
func Blocked(actor EntityID, reason string) Label {
	return Label{Kind: KindBlocked, Actor: actor, Reason: reason}
}

// EntryTrigger records actor stepping onto trap at position at.
func EntryTrigger(actor EntityID, trap string, at Point) Label {
	return Label{Kind: KindEntryTrigger, Actor: actor, Name: trap, To: at}
}

// AreaEffect records trap bursting over every cell within radius of at.
func AreaEffect(trap string, at Point, radius int) Label {
	return Label{Kind: KindAreaEffect, Name: trap, To: at, Radius: radius}
}

// AttackIntent records actor swinging at target.
func AttackIntent(actor, target EntityID) Label {
	return Label{Kind: KindAttackIntent, Actor: actor, Target: target}
}

// Damage records amount hit points dealt to target by source.
func Damage(source, target EntityID, amount int) Label {
	return Label{Kind: KindDamage, Actor: source, Target: target, Amount: amount}
}

// TrapDamage records damage dealt by a trap rather than an entity.
func TrapDamage(trap string, target EntityID, amount int) Label {
	return Label{Kind: KindDamage, Target: target, Amount: amount, Name: trap}
}

// Death records target dropping to zero hit points.
func Death(target EntityID) Label { return Label{Kind: KindDeath, Target: target} }

// UseItem records actor using an item from its pack.
func UseItem(actor EntityID, item string) Label {
	return Label{Kind: KindUseItem, Actor: actor, Name: item}
}

// Heal records amount hit points restored to target by actor.
func Heal(actor, target EntityID, amount int) Label {
	return Label{Kind: KindHeal, Actor: actor, Target: target, Amount: amount}
}

// Wait records actor passing its turn.
func Wait(actor EntityID) Label { return Label{Kind: KindWait, Actor: actor} }

// Subject returns the entity the label happens to: the target for
// Damage, Death and Heal, the actor otherwise.
func (l Label) Subject() EntityID {
	switch l.Kind {
	case KindDamage, KindDeath, KindHeal:
		return l.Target
	}
	return l.Actor
}

// KindName returns the kind's name.
func (l Label) KindName() string { return l.Kind.String() }

type field struct {
	key  string
	text string
	val  ir.IRValue
}

func intField(key string, n int) field {
	return field{key: key, text: strconv.Itoa(n), val: ir.IRInt(n)}
}

func strField(key, s string) field {
	return field{key: key, text: s, val: ir.IRString(s)}
}

func pointField(key string, p Point) field {
	return field{key: key, text: p.String(), val: p.value()}
}

// fields lists the meaningful fields of l in display order.
func (l Label) fields() []field {
	var fs []field
	switch l.Kind {
	case KindTurn, KindWait:
		fs = append(fs, intField("actor", int(l.Actor)))
	case KindMoveIntent, KindMovement:
		fs = append(fs, intField("actor", int(l.Actor)), pointField("from", l.From), pointField("to", l.To))
	case KindBlocked:
		fs = append(fs, intField("actor", int(l.Actor)), strField("reason", l.Reason))
	case KindEntryTrigger:
		fs = append(fs, intField("actor", int(l.Actor)), strField("trap", l.Name), pointField("at", l.To))
	case KindAreaEffect:
		fs = append(fs, strField("trap", l.Name), pointField("at", l.To), intField("radius", l.Radius))
	case KindAttackIntent:
		fs = append(fs, intField("actor", int(l.Actor)), intField("target", int(l.Target)))
	case KindDamage:
		if l.Actor != 0 {
			fs = append(fs, intField("actor", int(l.Actor)))
		}
		if l.Name != "" {
			fs = append(fs, strField("trap", l.Name))
		}
		fs = append(fs, intField("target", int(l.Target)), intField("amount", l.Amount))
	case KindDeath:
		fs = append(fs, intField("target", int(l.Target)))
	case KindUseItem:
		fs = append(fs, intField("actor", int(l.Actor)), strField("item", l.Name))
	case KindHeal:
		fs = append(fs, intField("actor", int(l.Actor)), intField("target", int(l.Target)), intField("amount", l.Amount))
	}
	return fs
}

// Fields returns the meaningful fields of l keyed by name. Positions are
// two-element [x, y] arrays.
func (l Label) Fields() ir.IRObject {
	fs := l.fields()
	obj := make(ir.IRObject, len(fs))
	for _, f := range fs {
		obj[f.key] = f.val
	}
	return obj
}

// String renders l as Kind{key=value ...}, or just Kind when it has no
// fields.
func (l Label) String() string {
	fs := l.fields()
	if len(fs) == 0 {
		return l.Kind.String()
	}
	var b strings.Builder
	b.WriteString(l.Kind.String())
	b.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(f.text)
	}
	b.WriteByte('}')
	return b.String()
}

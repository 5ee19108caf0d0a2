package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/event"
)

// Phase orders systems within a tick.
type Phase int

const (
	// PhaseWrite systems may add effects to the turn.
	PhaseWrite Phase = iota + 1
	// PhaseRead systems observe the finished turn and must not add effects.
	PhaseRead
)

func (p Phase) String() string {
	switch p {
	case PhaseWrite:
		return "write"
	case PhaseRead:
		return "read"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// System is one step of a tick.
type System interface {
	Name() string
	Phase() Phase
	Run(ctx context.Context, t *Tick) error
}

// Subscriber is implemented by systems that poll subscriptions. Subscribe
// is called once, when the system is registered.
type Subscriber interface {
	Subscribe(r *event.Registry) error
}

var (
	// ErrPhaseOrder is returned when a write system is registered after a
	// read system.
	ErrPhaseOrder = errors.New("write system registered after a read system")

	// ErrDuplicateSystem is returned when two systems share a name.
	ErrDuplicateSystem = errors.New("duplicate system")

	// ErrReaderWrote is returned when a read system added effects.
	ErrReaderWrote = errors.New("read system added effects")
)

// Particle is a visual effect descriptor spawned by the particles system.
type Particle struct {
	Kind   string      `json:"kind"`
	At     event.Point `json:"at"`
	Amount int         `json:"amount,omitempty"`
	Radius int         `json:"radius,omitempty"`
}

// TickReport summarises one tick.
type TickReport struct {
	RunID     string     `json:"run_id"`
	Turn      int        `json:"turn"`
	Nodes     int        `json:"nodes"`
	Digest    string     `json:"digest"`
	Narration []string   `json:"narration"`
	Particles []Particle `json:"particles"`
}

// Tick is the state handed to every system during one tick.
type Tick struct {
	RunID string
	Turn  int
	Graph *event.Graph
	World *World

	// Commands holds this tick's command for each scripted actor.
	Commands map[event.EntityID]Command

	Report *TickReport
	Logger *slog.Logger

	// seal runs between the write and read phases.
	seal     func(*Tick) error
	snapshot []cae.NodeRecord[event.Label]
}

// Snapshot returns the finished turn in scan order. It is nil until the
// write phase is over.
func (t *Tick) Snapshot() []cae.NodeRecord[event.Label] {
	return t.snapshot
}

// Dispatcher runs registered systems, writers first, in registration order.
type Dispatcher struct {
	registry *event.Registry
	systems  []System
	names    map[string]bool
	reading  bool
	budget   nodeBudget
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher whose systems subscribe on registry.
func NewDispatcher(registry *event.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		names:    make(map[string]bool),
		logger:   logger,
	}
}

// Register appends s. Write systems cannot follow read systems.
func (d *Dispatcher) Register(s System) error {
	name := s.Name()
	if d.names[name] {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateSystem)
	}
	switch s.Phase() {
	case PhaseWrite:
		if d.reading {
			return fmt.Errorf("register %q: %w", name, ErrPhaseOrder)
		}
	case PhaseRead:
		d.reading = true
	default:
		return fmt.Errorf("register %q: unknown phase %v", name, s.Phase())
	}
	if sub, ok := s.(Subscriber); ok {
		if err := sub.Subscribe(d.registry); err != nil {
			return fmt.Errorf("register %q: %w", name, err)
		}
	}
	d.names[name] = true
	d.systems = append(d.systems, s)
	return nil
}

// MustRegister is like Register but panics on error.
func (d *Dispatcher) MustRegister(systems ...System) {
	for _, s := range systems {
		if err := d.Register(s); err != nil {
			panic(err)
		}
	}
}

// SetMaxNodes caps the node count of every turn. Zero means no limit.
func (d *Dispatcher) SetMaxNodes(n int) {
	d.budget = nodeBudget{max: n}
}

// Systems returns the registered systems in run order.
func (d *Dispatcher) Systems() []System {
	return append([]System(nil), d.systems...)
}

// Tick starts a new turn on t.Graph and runs every system. The first
// failing system aborts the tick.
func (d *Dispatcher) Tick(ctx context.Context, t *Tick) error {
	t.Graph.NewTurn()

	sealed := false
	var size int
	for _, s := range d.systems {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Phase() == PhaseRead && !sealed {
			if err := d.sealTurn(t); err != nil {
				return err
			}
			sealed = true
			size = t.Graph.Len()
		}

		d.logger.DebugContext(ctx, "running system", "system", s.Name(), "turn", t.Turn)
		if err := s.Run(ctx, t); err != nil {
			return fmt.Errorf("system %q: %w", s.Name(), err)
		}
		if err := d.budget.check(t.Turn, s.Name(), t.Graph.Len()); err != nil {
			return err
		}
		if sealed && t.Graph.Len() != size {
			return fmt.Errorf("system %q: %w", s.Name(), ErrReaderWrote)
		}
	}
	if !sealed {
		return d.sealTurn(t)
	}
	return nil
}

func (d *Dispatcher) sealTurn(t *Tick) error {
	if t.seal == nil {
		return nil
	}
	return t.seal(t)
}

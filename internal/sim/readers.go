package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/sink"
	"github.com/roach88/cae/internal/store"
)

// Narration renders a line for every notable effect, in scan order, and
// publishes the turn's lines to a sink.
type Narration struct {
	subscribed
	sink   sink.Sink
	logger *slog.Logger
}

// NewNarration creates the narration system. s may be nil.
func NewNarration(s sink.Sink, logger *slog.Logger) *Narration {
	if logger == nil {
		logger = slog.Default()
	}
	return &Narration{
		subscribed: subscribed{
			name: "narration",
			pred: event.Is(event.KindDamage, event.KindHeal, event.KindDeath, event.KindBlocked, event.KindEntryTrigger),
		},
		sink:   s,
		logger: logger,
	}
}

func (*Narration) Phase() Phase { return PhaseRead }

func (n *Narration) Run(ctx context.Context, t *Tick) error {
	lines := []string{}
	for _, l := range n.sub.Poll(t.Graph) {
		lines = append(lines, describe(t, l))
	}
	t.Report.Narration = lines

	if n.sink == nil || len(lines) == 0 {
		return nil
	}
	// A sink outage must not fail a turn whose state has already changed.
	if err := n.sink.Publish(ctx, t.RunID, t.Turn, lines); err != nil {
		n.logger.Warn("narration publish failed", "run_id", t.RunID, "turn", t.Turn, "error", err)
	}
	return nil
}

// turnActor returns the entity whose Turn l descends from.
func turnActor(g *event.Graph, l event.Link) (event.EntityID, bool) {
	turn, ok := g.FindFirstAncestor(l, event.Is(event.KindTurn))
	if !ok {
		return 0, false
	}
	return turn.Label.Actor, true
}

func describe(t *Tick, l event.Link) string {
	w, lab := t.World, l.Label
	switch lab.Kind {
	case event.KindDamage:
		if lab.Actor != 0 {
			return fmt.Sprintf("%s hits %s for %d.", w.NameOf(lab.Actor), w.NameOf(lab.Target), lab.Amount)
		}
		return fmt.Sprintf("%s is hurt by the %s for %d.", w.NameOf(lab.Target), lab.Name, lab.Amount)
	case event.KindHeal:
		return fmt.Sprintf("%s drinks a potion and recovers %d.", w.NameOf(lab.Target), lab.Amount)
	case event.KindDeath:
		killer, ok := turnActor(t.Graph, l)
		if !ok || killer == lab.Target {
			return fmt.Sprintf("%s dies.", w.NameOf(lab.Target))
		}
		return fmt.Sprintf("%s is killed by %s.", w.NameOf(lab.Target), w.NameOf(killer))
	case event.KindBlocked:
		return fmt.Sprintf("%s is blocked: %s.", w.NameOf(lab.Actor), lab.Reason)
	case event.KindEntryTrigger:
		return fmt.Sprintf("%s triggers the %s at %s.", w.NameOf(lab.Actor), lab.Name, lab.To)
	}
	return lab.String()
}

// Particles spawns a visual effect for every hit, heal and burst.
type Particles struct{ subscribed }

func NewParticles() *Particles {
	return &Particles{subscribed{
		name: "particles",
		pred: event.Is(event.KindDamage, event.KindHeal, event.KindAreaEffect),
	}}
}

func (*Particles) Phase() Phase { return PhaseRead }

func (p *Particles) Run(_ context.Context, t *Tick) error {
	out := []Particle{}
	for _, l := range p.sub.Poll(t.Graph) {
		lab := l.Label
		switch lab.Kind {
		case event.KindAreaEffect:
			out = append(out, Particle{Kind: "burst", At: lab.To, Radius: lab.Radius})
		case event.KindDamage, event.KindHeal:
			target, ok := t.World.Entity(lab.Target)
			if !ok {
				continue
			}
			kind := "hit"
			if lab.Kind == event.KindHeal {
				kind = "heal"
			}
			out = append(out, Particle{Kind: kind, At: target.Pos, Amount: lab.Amount})
		}
	}
	t.Report.Particles = out
	return nil
}

// Archive is where finished turns are written. *store.Store implements it.
type Archive interface {
	WriteRun(ctx context.Context, run store.Run) error
	WriteTurn(ctx context.Context, turn store.Turn) error
}

// Archiver writes every finished turn, with its narration, to an Archive.
// It must be registered after Narration.
type Archiver struct {
	archive  Archive
	run      store.Run
	wroteRun bool
}

// NewArchiver creates the archive system. run.ID is filled in from the
// tick when empty.
func NewArchiver(a Archive, run store.Run) *Archiver {
	return &Archiver{archive: a, run: run}
}

func (*Archiver) Name() string { return "archive" }
func (*Archiver) Phase() Phase { return PhaseRead }

func (a *Archiver) Run(ctx context.Context, t *Tick) error {
	if !a.wroteRun {
		if a.run.ID == "" {
			a.run.ID = t.RunID
		}
		if err := a.archive.WriteRun(ctx, a.run); err != nil {
			return err
		}
		a.wroteRun = true
	}
	return a.archive.WriteTurn(ctx, archivedTurn(t))
}

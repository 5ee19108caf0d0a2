package sim

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cae/internal/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// arenaSpec is a 6x4 room:
//
//	. # . . . .
//	. H O . . .
//	. ^ . . . .
//	. . . . . .
//
// H is Hero (id 1), O is Orc (id 2), ^ are spikes.
func arenaSpec() WorldSpec {
	return WorldSpec{
		Name:   "arena",
		Width:  6,
		Height: 4,
		Walls:  []event.Point{event.Pt(1, 0)},
		Entities: []EntitySpec{
			{Name: "Hero", Pos: event.Pt(1, 1), HP: 10, Attack: 3, Faction: "heroes", Controller: ControllerScript, Potions: 1},
			{Name: "Orc", Pos: event.Pt(2, 1), HP: 5, Attack: 2, Faction: "monsters", Controller: ControllerScript},
		},
		Traps: []TrapSpec{{Name: "spikes", Pos: event.Pt(1, 2), Damage: 2}},
	}
}

func newTestSim(t *testing.T, spec WorldSpec, opts ...Option) *Sim {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger()), WithRunID("run-test")}, opts...)
	s, err := New(spec, opts...)
	require.NoError(t, err)
	return s
}

// step enqueues cmds and runs one tick.
func step(t *testing.T, s *Sim, cmds ...Command) TickReport {
	t.Helper()
	for _, c := range cmds {
		require.NoError(t, s.Enqueue(c))
	}
	rep, err := s.Step(context.Background())
	require.NoError(t, err)
	return rep
}

// scan returns the labels of the last turn in scan order.
func scan(s *Sim) []string {
	var out []string
	for l := range s.Graph().All() {
		out = append(out, l.Label.String())
	}
	return out
}

func move(actor, dir string) Command {
	return Command{Actor: actor, Action: ActionMove, Dir: dir}
}

func attack(actor, target string) Command {
	return Command{Actor: actor, Action: ActionAttack, Target: target}
}

func hp(s *Sim, name string) int {
	e, _ := s.World().EntityByName(name)
	return e.HP
}

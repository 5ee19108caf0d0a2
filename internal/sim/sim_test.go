package sim

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/sink"
	"github.com/roach88/cae/internal/store"
)

func TestSim_New_AssignsRunID(t *testing.T) {
	s, err := New(arenaSpec(), WithLogger(discardLogger()), WithRunIDGenerator(NewFixedGenerator("fixed-1")))
	require.NoError(t, err)
	assert.Equal(t, "fixed-1", s.RunID())

	s, err = New(arenaSpec(), WithLogger(discardLogger()))
	require.NoError(t, err)
	assert.Len(t, s.RunID(), 36)
}

func TestSim_New_InvalidWorld(t *testing.T) {
	spec := arenaSpec()
	spec.Entities[1].Pos = spec.Entities[0].Pos

	_, err := New(spec, WithLogger(discardLogger()))
	assert.Error(t, err)
}

func TestSim_AttackAdjacent(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	rep := step(t, s, attack("Hero", "Orc"))

	assert.Equal(t, []string{
		"Root",
		"Turn{actor=1}",
		"AttackIntent{actor=1 target=2}",
		"Damage{actor=1 target=2 amount=3}",
		"Turn{actor=2}",
		"Wait{actor=2}",
	}, scan(s))
	assert.Equal(t, 1, rep.Turn)
	assert.Equal(t, 6, rep.Nodes)
	assert.Len(t, rep.Digest, 64)
	assert.Equal(t, []string{"Hero hits Orc for 3."}, rep.Narration)
	assert.Equal(t, []Particle{{Kind: "hit", At: event.Pt(2, 1), Amount: 3}}, rep.Particles)
	assert.Equal(t, 2, hp(s, "Orc"))
}

func TestSim_KilledEntityStillActsThisTurn(t *testing.T) {
	s := newTestSim(t, arenaSpec())
	step(t, s, attack("Hero", "Orc"))

	rep := step(t, s, attack("Hero", "Orc"), attack("Orc", "Hero"))

	assert.Equal(t, []string{
		"Root",
		"Turn{actor=1}",
		"AttackIntent{actor=1 target=2}",
		"Damage{actor=1 target=2 amount=3}",
		"Death{target=2}",
		"Turn{actor=2}",
		"AttackIntent{actor=2 target=1}",
		"Damage{actor=2 target=1 amount=2}",
	}, scan(s))
	assert.Equal(t, []string{
		"Hero hits Orc for 3.",
		"Orc is killed by Hero.",
		"Orc hits Hero for 2.",
	}, rep.Narration)
	assert.Equal(t, 0, hp(s, "Orc"))
	assert.Equal(t, 8, hp(s, "Hero"))

	// Dead entities get no turn afterwards.
	step(t, s, attack("Orc", "Hero"))
	assert.Equal(t, []string{"Root", "Turn{actor=1}", "Wait{actor=1}"}, scan(s))
}

func TestSim_DeathAncestorIsKillersTurn(t *testing.T) {
	s := newTestSim(t, arenaSpec())
	step(t, s, attack("Hero", "Orc"))
	step(t, s, attack("Hero", "Orc"))

	g := s.Graph()
	death, ok := g.FindFirstLink(event.Is(event.KindDeath))
	require.True(t, ok)

	turn, ok := g.FindFirstAncestor(death, event.Is(event.KindTurn))
	require.True(t, ok)
	assert.Equal(t, event.EntityID(1), turn.Label.Actor)

	dmg, ok := g.Cause(death)
	require.True(t, ok)
	assert.Equal(t, event.KindDamage, dmg.Label.Kind)
}

func TestSim_BumpAttack(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	rep := step(t, s, move("Hero", "east"))

	assert.Equal(t, []string{
		"Root",
		"Turn{actor=1}",
		"MoveIntent{actor=1 from=(1,1) to=(2,1)}",
		"AttackIntent{actor=1 target=2}",
		"Damage{actor=1 target=2 amount=3}",
		"Turn{actor=2}",
		"Wait{actor=2}",
	}, scan(s))
	assert.Equal(t, []string{"Hero hits Orc for 3."}, rep.Narration)
	assert.Equal(t, event.Pt(1, 1), mustEntity(t, s, "Hero").Pos)
}

func TestSim_BlockedByWallAndEdge(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	rep := step(t, s, move("Hero", "north"))
	assert.Equal(t, []string{"Hero is blocked: wall."}, rep.Narration)

	step(t, s, move("Hero", "west"))
	assert.Equal(t, event.Pt(0, 1), mustEntity(t, s, "Hero").Pos)

	rep = step(t, s, move("Hero", "west"))
	assert.Equal(t, []string{"Hero is blocked: edge of the world."}, rep.Narration)
}

func TestSim_FriendlyBlocks(t *testing.T) {
	spec := arenaSpec()
	spec.Entities[1].Faction = "heroes"
	s := newTestSim(t, spec)

	rep := step(t, s, move("Hero", "east"))
	assert.Equal(t, []string{"Hero is blocked: occupied by Orc."}, rep.Narration)
}

func TestSim_EarlierMoverClaimsCell(t *testing.T) {
	spec := arenaSpec()
	spec.Entities[1].Faction = "heroes"
	spec.Entities[1].Pos = event.Pt(3, 1)
	s := newTestSim(t, spec)

	// Both want (2,1); Hero's turn comes first.
	rep := step(t, s, move("Hero", "east"), move("Orc", "west"))

	assert.Equal(t, event.Pt(2, 1), mustEntity(t, s, "Hero").Pos)
	assert.Equal(t, event.Pt(3, 1), mustEntity(t, s, "Orc").Pos)
	assert.Equal(t, []string{"Orc is blocked: occupied by Hero."}, rep.Narration)
}

func TestSim_Trap(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	rep := step(t, s, move("Hero", "south"))

	assert.Equal(t, []string{
		"Root",
		"Turn{actor=1}",
		"MoveIntent{actor=1 from=(1,1) to=(1,2)}",
		"Movement{actor=1 from=(1,1) to=(1,2)}",
		"EntryTrigger{actor=1 trap=spikes at=(1,2)}",
		"Damage{trap=spikes target=1 amount=2}",
		"Turn{actor=2}",
		"Wait{actor=2}",
	}, scan(s))
	assert.Equal(t, []string{
		"Hero triggers the spikes at (1,2).",
		"Hero is hurt by the spikes for 2.",
	}, rep.Narration)
	assert.Equal(t, 8, hp(s, "Hero"))
}

func TestSim_AreaTrap(t *testing.T) {
	spec := arenaSpec()
	spec.Traps = []TrapSpec{{Name: "bomb", Pos: event.Pt(1, 2), Damage: 4, Radius: 1}}
	s := newTestSim(t, spec)

	rep := step(t, s, move("Hero", "south"))

	assert.Equal(t, []string{
		"Root",
		"Turn{actor=1}",
		"MoveIntent{actor=1 from=(1,1) to=(1,2)}",
		"Movement{actor=1 from=(1,1) to=(1,2)}",
		"EntryTrigger{actor=1 trap=bomb at=(1,2)}",
		"AreaEffect{trap=bomb at=(1,2) radius=1}",
		"Damage{trap=bomb target=1 amount=4}",
		"Damage{trap=bomb target=2 amount=4}",
		"Turn{actor=2}",
		"Wait{actor=2}",
	}, scan(s))
	assert.Equal(t, 6, hp(s, "Hero"))
	assert.Equal(t, 1, hp(s, "Orc"))
	assert.Equal(t, []Particle{
		{Kind: "burst", At: event.Pt(1, 2), Radius: 1},
		{Kind: "hit", At: event.Pt(1, 2), Amount: 4},
		{Kind: "hit", At: event.Pt(2, 1), Amount: 4},
	}, rep.Particles)
}

func TestSim_AreaTrapKillsBystander(t *testing.T) {
	spec := arenaSpec()
	spec.Traps = []TrapSpec{{Name: "bomb", Pos: event.Pt(1, 2), Damage: 5, Radius: 1}}
	s := newTestSim(t, spec)

	rep := step(t, s, move("Hero", "south"))

	assert.Equal(t, []string{
		"Hero triggers the bomb at (1,2).",
		"Hero is hurt by the bomb for 5.",
		"Orc is hurt by the bomb for 5.",
		"Orc is killed by Hero.",
	}, rep.Narration)
}

func TestSim_Potions(t *testing.T) {
	s := newTestSim(t, arenaSpec())
	step(t, s, attack("Orc", "Hero"))
	require.Equal(t, 8, hp(s, "Hero"))

	rep := step(t, s, Command{Actor: "Hero", Action: ActionUse})
	assert.Equal(t, []string{"Hero drinks a potion and recovers 5."}, rep.Narration)
	assert.Equal(t, 10, hp(s, "Hero"), "healing is capped at max hp")
	assert.Equal(t, []Particle{{Kind: "heal", At: event.Pt(1, 1), Amount: 5}}, rep.Particles)

	rep = step(t, s, Command{Actor: "Hero", Action: ActionUse})
	assert.Equal(t, []string{"Hero is blocked: no potions."}, rep.Narration)

	rep = step(t, s, Command{Actor: "Hero", Action: ActionUse, Item: "scroll"})
	assert.Equal(t, []string{`Hero is blocked: unknown item "scroll".`}, rep.Narration)
}

func TestSim_AttackOutOfReachAndUnknownTarget(t *testing.T) {
	spec := arenaSpec()
	spec.Entities[1].Pos = event.Pt(4, 3)
	s := newTestSim(t, spec)

	rep := step(t, s, attack("Hero", "Orc"))
	assert.Equal(t, []string{"Hero is blocked: Orc is out of reach."}, rep.Narration)

	rep = step(t, s, attack("Hero", "Dragon"))
	assert.Equal(t, []string{`Hero is blocked: unknown target "Dragon".`}, rep.Narration)
}

func TestSim_AIChasesAndAttacks(t *testing.T) {
	spec := arenaSpec()
	spec.Entities[1].Pos = event.Pt(4, 1)
	spec.Entities[1].Controller = ControllerAI
	s := newTestSim(t, spec)

	step(t, s)
	assert.Equal(t, event.Pt(3, 1), mustEntity(t, s, "Orc").Pos)

	step(t, s)
	assert.Equal(t, event.Pt(2, 1), mustEntity(t, s, "Orc").Pos)

	rep := step(t, s)
	assert.Equal(t, []string{"Orc hits Hero for 2."}, rep.Narration)
}

func TestSim_CommandOverridesAI(t *testing.T) {
	spec := arenaSpec()
	spec.Entities[1].Controller = ControllerAI
	s := newTestSim(t, spec)

	step(t, s, Command{Actor: "Orc", Action: ActionWait})
	assert.Contains(t, scan(s), "Wait{actor=2}")
}

func TestSim_OneCommandPerActorPerTick(t *testing.T) {
	s := newTestSim(t, arenaSpec())
	require.NoError(t, s.Enqueue(move("Hero", "west")))
	require.NoError(t, s.Enqueue(move("Hero", "west")))

	_, err := s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, event.Pt(0, 1), mustEntity(t, s, "Hero").Pos)
	assert.Equal(t, 1, s.Pending())

	_, err = s.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Pending())
}

func TestSim_UnknownActorDropped(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	rep := step(t, s, Command{Actor: "Nobody", Action: ActionWait})
	assert.Empty(t, rep.Narration)
	assert.Equal(t, 0, s.Pending())
}

func TestSim_Enqueue_Invalid(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	assert.Error(t, s.Enqueue(Command{Actor: "Hero", Action: "dance"}))
	assert.Error(t, s.Enqueue(move("Hero", "up")))
	assert.Error(t, s.Enqueue(Command{Actor: "Hero", Action: ActionAttack}))
	assert.Error(t, s.Enqueue(Command{Action: ActionWait}))
}

func TestSim_DigestIgnoresRunID(t *testing.T) {
	a := newTestSim(t, arenaSpec(), WithRunID("a"))
	b := newTestSim(t, arenaSpec(), WithRunID("b"))

	for i := 0; i < 3; i++ {
		ra := step(t, a, attack("Hero", "Orc"))
		rb := step(t, b, attack("Hero", "Orc"))
		assert.Equal(t, ra.Digest, rb.Digest, "turn %d", i+1)
	}

	moved := step(t, newTestSim(t, arenaSpec()), move("Hero", "west"))
	hit := step(t, newTestSim(t, arenaSpec()), attack("Hero", "Orc"))
	assert.NotEqual(t, moved.Digest, hit.Digest)
}

func TestSim_MaxTurns(t *testing.T) {
	s := newTestSim(t, arenaSpec(), WithMaxTurns(1))

	step(t, s)
	_, err := s.Step(context.Background())
	assert.ErrorIs(t, err, ErrMaxTurns)
	assert.Equal(t, 1, s.Turn())
}

func TestSim_MaxNodes(t *testing.T) {
	mem := sink.NewMemory()
	s := newTestSim(t, arenaSpec(), WithMaxNodes(3), WithSink(mem))

	require.NoError(t, s.Enqueue(attack("Hero", "Orc")))
	_, err := s.Step(context.Background())
	require.Error(t, err)
	assert.True(t, IsNodeBudgetError(err))
	assert.Contains(t, err.Error(), "turn 1: ")
	assert.Empty(t, mem.Entries(), "an aborted turn is not narrated")
}

func TestSim_AbortedTickKeepsWorldChanges(t *testing.T) {
	s := newTestSim(t, arenaSpec(), WithMaxNodes(5))

	// Root, two Turns and two intents fit; the Movement node does not.
	require.NoError(t, s.Enqueue(move("Hero", "west")))
	_, err := s.Step(context.Background())
	var be *NodeBudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "movement", be.System)

	assert.Equal(t, 1, s.Turn(), "the aborted tick still counts")
	hero, ok := s.World().EntityByName("Hero")
	require.True(t, ok)
	assert.Equal(t, event.Pt(0, 1), hero.Pos, "the move made before the abort is kept")
	assert.Equal(t, 6, s.Graph().Len())
}

func TestSim_Sink(t *testing.T) {
	mem := sink.NewMemory()
	s := newTestSim(t, arenaSpec(), WithSink(mem))

	step(t, s, attack("Hero", "Orc"))
	step(t, s)

	entries := mem.Entries()
	require.Len(t, entries, 1, "quiet turns publish nothing")
	assert.Equal(t, sink.Entry{RunID: "run-test", Turn: 1, Lines: []string{"Hero hits Orc for 3."}}, entries[0])
}

type failingSink struct{}

func (failingSink) Publish(context.Context, string, int, []string) error {
	return errors.New("down")
}

func TestSim_SinkFailureDoesNotFailTick(t *testing.T) {
	s := newTestSim(t, arenaSpec(), WithSink(failingSink{}))

	rep := step(t, s, attack("Hero", "Orc"))
	assert.Equal(t, []string{"Hero hits Orc for 3."}, rep.Narration)
}

func TestSim_Archive(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s := newTestSim(t, arenaSpec(), WithArchive(st, store.Run{Scenario: "duel"}))
	rep1 := step(t, s, attack("Hero", "Orc"))
	rep2 := step(t, s, attack("Hero", "Orc"))

	ctx := context.Background()
	run, err := st.ReadRun(ctx, "run-test")
	require.NoError(t, err)
	assert.Equal(t, "duel", run.Scenario)
	assert.Equal(t, "arena", run.World)

	turn, err := st.ReadTurn(ctx, "run-test", 2)
	require.NoError(t, err)
	assert.Equal(t, rep2.Digest, turn.Digest)
	assert.Equal(t, rep2.Narration, turn.Narration)
	require.Len(t, turn.Nodes, rep2.Nodes)
	assert.Equal(t, "Death{target=2}", turn.Nodes[4].Label)

	recs := s.Graph().Snapshot()
	digest, err := Digest(2, recs)
	require.NoError(t, err)
	assert.Equal(t, turn.Digest, digest)

	turns, err := st.ReadTurns(ctx, "run-test")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, rep1.Digest, turns[0].Digest)

	chain, err := st.ReadAncestors(ctx, "run-test", 2, turn.Nodes[4].Index)
	require.NoError(t, err)
	require.Len(t, chain, 4)
	assert.Equal(t, "Turn{actor=1}", chain[2].Label)
}

func TestSim_RegistryHoldsSystemSubscriptions(t *testing.T) {
	s := newTestSim(t, arenaSpec())

	for _, name := range []string{"movement", "traps", "combat", "items", "health", "narration", "particles"} {
		_, ok := s.Registry().Lookup(name)
		assert.True(t, ok, name)
	}
	_, ok := s.Registry().Lookup("turns")
	assert.False(t, ok)
}

func TestSim_RunDrainsQueueAfterStop(t *testing.T) {
	s := newTestSim(t, arenaSpec())
	require.NoError(t, s.Enqueue(move("Hero", "west")))
	require.NoError(t, s.Enqueue(move("Hero", "south")))
	s.Stop()

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 2, s.Turn())
	assert.Equal(t, event.Pt(0, 2), mustEntity(t, s, "Hero").Pos)
	assert.ErrorIs(t, s.Enqueue(move("Hero", "west")), ErrStopped)
}

func TestSim_RunStopsOnCancel(t *testing.T) {
	s := newTestSim(t, arenaSpec())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.Enqueue(attack("Hero", "Orc")))
	require.Eventually(t, func() bool { return s.Turn() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSim_RunStopsAtTurnLimit(t *testing.T) {
	s := newTestSim(t, arenaSpec(), WithMaxTurns(1))
	require.NoError(t, s.Enqueue(move("Hero", "west")))
	require.NoError(t, s.Enqueue(move("Hero", "west")))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, s.Turn())
}

func mustEntity(t *testing.T, s *Sim, name string) *Entity {
	t.Helper()
	e, ok := s.World().EntityByName(name)
	require.True(t, ok, name)
	return e
}

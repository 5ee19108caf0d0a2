package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/event"
)

type fakeSystem struct {
	name  string
	phase Phase
	run   func(t *Tick) error
	calls *[]string
}

func (f *fakeSystem) Name() string { return f.name }
func (f *fakeSystem) Phase() Phase { return f.phase }

func (f *fakeSystem) Run(_ context.Context, t *Tick) error {
	if f.calls != nil {
		*f.calls = append(*f.calls, f.name)
	}
	if f.run != nil {
		return f.run(t)
	}
	return nil
}

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(cae.NewRegistry[event.Label](), discardLogger())
}

func newTestTick() *Tick {
	return &Tick{
		Graph:  event.NewGraph(cae.WithLogger(discardLogger())),
		Report: &TickReport{},
		seal:   sealTurn,
	}
}

func TestDispatcher_RejectsWriterAfterReader(t *testing.T) {
	d := newTestDispatcher()
	require.NoError(t, d.Register(&fakeSystem{name: "w1", phase: PhaseWrite}))
	require.NoError(t, d.Register(&fakeSystem{name: "r1", phase: PhaseRead}))

	err := d.Register(&fakeSystem{name: "w2", phase: PhaseWrite})
	assert.ErrorIs(t, err, ErrPhaseOrder)
	assert.Len(t, d.Systems(), 2)
}

func TestDispatcher_RejectsDuplicateNames(t *testing.T) {
	d := newTestDispatcher()
	require.NoError(t, d.Register(NewMovement()))

	assert.ErrorIs(t, d.Register(NewMovement()), ErrDuplicateSystem)
}

func TestDispatcher_RejectsUnknownPhase(t *testing.T) {
	d := newTestDispatcher()
	assert.Error(t, d.Register(&fakeSystem{name: "x"}))
}

func TestDispatcher_SubscriptionNameClash(t *testing.T) {
	reg := cae.NewRegistry[event.Label]()
	reg.MustSubscribe("combat", event.Is(event.KindDamage))
	d := NewDispatcher(reg, discardLogger())

	err := d.Register(NewCombat())
	assert.ErrorIs(t, err, cae.ErrDuplicateSubscription)
}

func TestDispatcher_TickOrderAndSeal(t *testing.T) {
	d := newTestDispatcher()
	var calls []string
	var digestSeenByReader string

	d.MustRegister(
		&fakeSystem{name: "w1", phase: PhaseWrite, calls: &calls, run: func(t *Tick) error {
			t.Graph.AddEffect(t.Graph.Root(), event.Wait(1))
			return nil
		}},
		&fakeSystem{name: "w2", phase: PhaseWrite, calls: &calls},
		&fakeSystem{name: "r1", phase: PhaseRead, calls: &calls, run: func(t *Tick) error {
			digestSeenByReader = t.Report.Digest
			return nil
		}},
	)

	tick := newTestTick()
	require.NoError(t, d.Tick(context.Background(), tick))

	assert.Equal(t, []string{"w1", "w2", "r1"}, calls)
	assert.Equal(t, 2, tick.Report.Nodes)
	assert.NotEmpty(t, digestSeenByReader)
	assert.Len(t, tick.Snapshot(), 2)
}

func TestDispatcher_SealsWithoutReaders(t *testing.T) {
	d := newTestDispatcher()
	d.MustRegister(&fakeSystem{name: "w", phase: PhaseWrite})

	tick := newTestTick()
	require.NoError(t, d.Tick(context.Background(), tick))
	assert.Equal(t, 1, tick.Report.Nodes)
}

func TestDispatcher_ReaderMustNotWrite(t *testing.T) {
	d := newTestDispatcher()
	d.MustRegister(&fakeSystem{name: "sneaky", phase: PhaseRead, run: func(t *Tick) error {
		t.Graph.AddEffect(t.Graph.Root(), event.Wait(1))
		return nil
	}})

	err := d.Tick(context.Background(), newTestTick())
	assert.ErrorIs(t, err, ErrReaderWrote)
}

func TestDispatcher_StartsNewTurn(t *testing.T) {
	d := newTestDispatcher()
	d.MustRegister(&fakeSystem{name: "w", phase: PhaseWrite, run: func(t *Tick) error {
		t.Graph.AddEffect(t.Graph.Root(), event.Wait(1))
		return nil
	}})

	tick := newTestTick()
	require.NoError(t, d.Tick(context.Background(), tick))
	stale := tick.Graph.Root()
	require.NoError(t, d.Tick(context.Background(), tick))

	assert.Equal(t, 2, tick.Graph.Len(), "previous turn is discarded")
	assert.False(t, tick.Graph.Contains(stale))
}

func TestDispatcher_SystemErrorAborts(t *testing.T) {
	d := newTestDispatcher()
	var calls []string
	d.MustRegister(
		&fakeSystem{name: "bad", phase: PhaseWrite, calls: &calls, run: func(*Tick) error {
			return assert.AnError
		}},
		&fakeSystem{name: "after", phase: PhaseWrite, calls: &calls},
	)

	err := d.Tick(context.Background(), newTestTick())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), `system "bad"`)
	assert.Equal(t, []string{"bad"}, calls)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	d := newTestDispatcher()
	d.MustRegister(&fakeSystem{name: "w", phase: PhaseWrite})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Tick(ctx, newTestTick()), context.Canceled)
}

func TestSim_ExtraSystemsKeepPhaseOrder(t *testing.T) {
	var calls []string
	s := newTestSim(t, arenaSpec(), WithSystems(
		&fakeSystem{name: "audit", phase: PhaseRead, calls: &calls},
		&fakeSystem{name: "weather", phase: PhaseWrite, calls: &calls},
	))

	var names []string
	for _, sys := range s.systems.Systems() {
		names = append(names, sys.Name())
	}
	assert.Equal(t, []string{
		"turns", "movement", "traps", "combat", "items", "health", "weather",
		"narration", "particles", "audit",
	}, names)

	step(t, s)
	assert.Equal(t, []string{"weather", "audit"}, calls)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "write", PhaseWrite.String())
	assert.Equal(t, "read", PhaseRead.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}

func TestDispatcher_NodeBudget(t *testing.T) {
	d := newTestDispatcher()
	d.SetMaxNodes(3)
	var calls []string
	d.MustRegister(
		&fakeSystem{name: "flood", phase: PhaseWrite, calls: &calls, run: func(t *Tick) error {
			for i := 0; i < 3; i++ {
				t.Graph.AddEffect(t.Graph.Root(), event.Wait(1))
			}
			return nil
		}},
		&fakeSystem{name: "after", phase: PhaseWrite, calls: &calls},
	)

	tick := newTestTick()
	tick.Turn = 4
	err := d.Tick(context.Background(), tick)
	require.Error(t, err)
	assert.True(t, IsNodeBudgetError(err))

	var be *NodeBudgetError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, NodeBudgetError{Turn: 4, System: "flood", Nodes: 4, Limit: 3}, *be)
	assert.Equal(t, `turn 4 exceeded node budget after system "flood": 4 nodes > 3 limit`, err.Error())
	assert.Equal(t, []string{"flood"}, calls)
}

func TestDispatcher_NodeBudgetAtLimit(t *testing.T) {
	d := newTestDispatcher()
	d.SetMaxNodes(2)
	d.MustRegister(&fakeSystem{name: "w", phase: PhaseWrite, run: func(t *Tick) error {
		t.Graph.AddEffect(t.Graph.Root(), event.Wait(1))
		return nil
	}})

	require.NoError(t, d.Tick(context.Background(), newTestTick()))
}

func TestNodeBudget_Unlimited(t *testing.T) {
	assert.NoError(t, nodeBudget{}.check(1, "w", 1_000_000))
	assert.False(t, IsNodeBudgetError(assert.AnError))
}

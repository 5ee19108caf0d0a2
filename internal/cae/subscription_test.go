package cae

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Subscribe(t *testing.T) {
	r := NewRegistry[name]()

	s, err := r.Subscribe("damage", LabelIs[name]("Damage"))
	require.NoError(t, err)
	assert.Equal(t, "damage", s.Name())

	got, ok := r.Lookup("damage")
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_Subscribe_Duplicate(t *testing.T) {
	r := NewRegistry[name]()
	r.MustSubscribe("damage", LabelIs[name]("Damage"))

	_, err := r.Subscribe("damage", LabelIs[name]("Other"))
	require.ErrorIs(t, err, ErrDuplicateSubscription)
	assert.Len(t, r.Subscriptions(), 1)

	assert.Panics(t, func() {
		r.MustSubscribe("damage", LabelIs[name]("Damage"))
	})
}

func TestRegistry_Subscribe_Invalid(t *testing.T) {
	r := NewRegistry[name]()

	_, err := r.Subscribe("", LabelIs[name]("Damage"))
	require.ErrorIs(t, err, ErrInvalidSubscription)

	_, err = r.Subscribe("nil", nil)
	require.ErrorIs(t, err, ErrInvalidSubscription)
}

func TestSubscription_Poll_ScanOrder(t *testing.T) {
	g := newTestGraph()
	r := NewRegistry[name]()
	sub := r.MustSubscribe("hits", LabelIs[name]("Hit"))

	a := g.AddEffect(g.Root(), "A")
	late := g.AddEffect(g.Root(), "Hit")
	early := g.AddEffect(a, "Hit")

	got := sub.Poll(g)
	require.Len(t, got, 2)
	assert.True(t, got[0].Same(early), "matches follow scan order, not insertion order")
	assert.True(t, got[1].Same(late))
}

func TestSubscription_Poll_Idempotent(t *testing.T) {
	g := newTestGraph()
	sub := NewRegistry[name]().MustSubscribe("hits", LabelIs[name]("Hit"))

	g.AddEffect(g.Root(), "Hit")
	g.AddEffect(g.Root(), "Miss")

	first := sub.Poll(g)
	second := sub.Poll(g)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, g.Len(), "polling must not mutate")
}

func TestSubscription_Poll_SeesLaterEffects(t *testing.T) {
	g := newTestGraph()
	sub := NewRegistry[name]().MustSubscribe("hits", LabelIs[name]("Hit"))

	g.AddEffect(g.Root(), "Hit")
	require.Len(t, sub.Poll(g), 1)

	g.AddEffect(g.Root(), "Hit")
	assert.Len(t, sub.Poll(g), 2, "every poll is a full re-scan")
}

func TestSubscription_Poll_EmptyAfterNewTurn(t *testing.T) {
	g := newTestGraph()
	sub := NewRegistry[name]().MustSubscribe("hits", LabelIs[name]("Hit"))

	g.AddEffect(g.Root(), "Hit")
	g.NewTurn()

	got := sub.Poll(g)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSubscription_DamageThenDeath(t *testing.T) {
	g := newTestGraph()
	r := NewRegistry[name]()
	damage := r.MustSubscribe("damage", LabelIs[name]("Damage"))
	death := r.MustSubscribe("death", LabelIs[name]("Death"))

	turn := g.AddEffect(g.Root(), "Turn")
	attack := g.AddEffect(turn, "Attack")

	// Health system: consumes Damage, records Death under it.
	for _, d := range damage.Poll(g) {
		g.AddEffect(d, "Death")
	}
	assert.Empty(t, death.Poll(g), "no damage yet, no death")

	g.AddEffect(attack, "Damage")
	for _, d := range damage.Poll(g) {
		g.AddEffect(d, "Death")
	}

	deaths := death.Poll(g)
	require.Len(t, deaths, 1)

	cause, ok := g.Cause(deaths[0])
	require.True(t, ok)
	assert.Equal(t, name("Damage"), cause.Label)

	first, ok := death.First(g)
	require.True(t, ok)
	assert.True(t, first.Same(deaths[0]))
}

func TestRegistry_PollAll_MatchesIndividualPolls(t *testing.T) {
	g := newTestGraph()
	r := NewRegistry[name]()
	r.MustSubscribe("a", LabelIs[name]("A"))
	r.MustSubscribe("any", Any[name]())
	r.MustSubscribe("none", LabelIs[name]("missing"))

	buildRAB(g)
	g.AddEffect(g.Root(), "A")

	results := r.PollAll(g)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, res.Subscription.Poll(g), res.Links, res.Subscription.Name())
	}
	assert.Equal(t, "a", results[0].Subscription.Name())
	assert.NotNil(t, results[2].Links)
}

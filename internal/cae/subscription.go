package cae

import "fmt"

// Subscription is a named predicate registered once and polled every turn.
type Subscription[L Label] struct {
	name string
	pred Predicate[L]
}

// Name returns the subscription's registered name.
func (s *Subscription[L]) Name() string { return s.name }

// Matches reports whether l satisfies the subscription's predicate.
func (s *Subscription[L]) Matches(l Link[L]) bool { return s.pred(l) }

// Poll re-scans the current turn of g and returns every matching link in
// scan order. Polling is read-only: calling it twice with no mutation in
// between returns the same links.
func (s *Subscription[L]) Poll(g *Graph[L]) []Link[L] {
	return g.Filter(s.pred)
}

// First returns the first matching link of the current turn.
func (s *Subscription[L]) First(g *Graph[L]) (Link[L], bool) {
	return g.FindFirstLink(s.pred)
}

// Registry holds the subscriptions of a simulation, in registration order.
//
// Subscriptions are registered while systems are constructed, before the
// first tick. Registry is not safe for concurrent registration.
type Registry[L Label] struct {
	subs   []*Subscription[L]
	byName map[string]*Subscription[L]
}

// NewRegistry returns an empty Registry.
func NewRegistry[L Label]() *Registry[L] {
	return &Registry[L]{byName: make(map[string]*Subscription[L])}
}

// Subscribe registers pred under name. Names are unique within a Registry.
func (r *Registry[L]) Subscribe(name string, pred Predicate[L]) (*Subscription[L], error) {
	if name == "" || pred == nil {
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrInvalidSubscription)
	}
	if _, exists := r.byName[name]; exists {
		return nil, fmt.Errorf("subscribe %q: %w", name, ErrDuplicateSubscription)
	}
	s := &Subscription[L]{name: name, pred: pred}
	r.subs = append(r.subs, s)
	r.byName[name] = s
	return s, nil
}

// MustSubscribe is like Subscribe but panics on error.
// Use when names are fixed at compile time.
func (r *Registry[L]) MustSubscribe(name string, pred Predicate[L]) *Subscription[L] {
	s, err := r.Subscribe(name, pred)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup returns the subscription registered under name.
func (r *Registry[L]) Lookup(name string) (*Subscription[L], bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Subscriptions returns the registered subscriptions in registration order.
func (r *Registry[L]) Subscriptions() []*Subscription[L] {
	out := make([]*Subscription[L], len(r.subs))
	copy(out, r.subs)
	return out
}

// PollResult pairs a subscription with its matches for one turn.
type PollResult[L Label] struct {
	Subscription *Subscription[L]
	Links        []Link[L]
}

// PollAll evaluates every subscription during a single scan of g. Results
// follow registration order; links within each result follow scan order
// and match what Subscription.Poll would return.
func (r *Registry[L]) PollAll(g *Graph[L]) []PollResult[L] {
	out := make([]PollResult[L], len(r.subs))
	for i, s := range r.subs {
		out[i] = PollResult[L]{Subscription: s, Links: make([]Link[L], 0)}
	}
	for l := range g.All() {
		for i, s := range r.subs {
			if s.pred(l) {
				out[i].Links = append(out[i].Links, l)
			}
		}
	}
	return out
}

// Package sim is a small turn-based grid simulation driven by the causal
// graph in package cae.
//
// TICKS
//
// Every tick starts a new turn on the graph and runs the registered
// systems in two phases. Write systems poll subscriptions and add effects
// under the links they react to; read systems only look at the finished
// turn (narration, particles, archiving). A write system can never be
// registered after a read system, so every reader sees the complete turn.
//
// Resolution within a tick is simultaneous: every entity alive when the
// tick starts gets a Turn node and acts, even if it is killed by an effect
// that appears earlier in scan order.
//
// CONCURRENCY
//
// Enqueue and Stop are safe from any goroutine. Step and Run serialise on
// the Sim; the graph and world are only touched inside a tick.
package sim

// Package sink publishes narration lines produced by a simulation tick.
//
// A Sink receives every line of a turn at once, after the tick's read
// systems have run. Memory keeps lines for tests and the scenario harness,
// Log writes them through slog, and Redis appends them to a per-run list so
// other processes can follow a run.
package sink

// Package store archives finished turns in SQLite for offline inspection.
//
// The simulation never reads the archive back; each turn's causal graph is
// still discarded by NewTurn. The archive holds a copy:
//   - Runs: one row per simulation run (scenario, world, versions)
//   - Turns: node count and canonical digest per turn
//   - Nodes: the flattened tree, with parent pointers and scan order
//   - Narration: the lines produced for each turn
//
// # Deterministic reads
//
// Every query orders by a total key (turn, ord / line_no / id COLLATE
// BINARY) so two reads of the same archive return identical slices, and
// empty results are empty slices, never nil.
//
// # Database configuration
//
//   - WAL mode: inspection commands may read while a run writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store

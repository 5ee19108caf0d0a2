package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/cae/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run record and returns its id.
func createTestRun(t *testing.T, s *Store, id string) string {
	t.Helper()
	err := s.WriteRun(context.Background(), Run{
		ID:            id,
		Scenario:      "test",
		World:         "world.cue",
		EngineVersion: ir.EngineVersion,
		SchemaVersion: ir.SchemaVersion,
	})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return id
}

// createTestTurn builds the turn
//
//	Root
//	  Turn{actor=1}
//	    AttackIntent{actor=1 target=2}
//	      Damage{actor=1 target=2 amount=3}
//	  Turn{actor=2}
//	    Wait{actor=2}
//
// with arena indexes in insertion order (Turn 2 inserted before the
// attack chain).
func createTestTurn(runID string, turn int) Turn {
	nodes := []Node{
		{Index: 0, Ord: 0, Parent: -1, Depth: 0, Kind: "Root", Label: "Root", Fields: ir.IRObject{}},
		{Index: 1, Ord: 1, Parent: 0, Depth: 1, Kind: "Turn", Label: "Turn{actor=1}",
			Fields: ir.IRObject{"actor": ir.IRInt(1)}},
		{Index: 3, Ord: 2, Parent: 1, Depth: 2, Kind: "AttackIntent", Label: "AttackIntent{actor=1 target=2}",
			Fields: ir.IRObject{"actor": ir.IRInt(1), "target": ir.IRInt(2)}},
		{Index: 5, Ord: 3, Parent: 3, Depth: 3, Kind: "Damage", Label: "Damage{actor=1 target=2 amount=3}",
			Fields: ir.IRObject{"actor": ir.IRInt(1), "target": ir.IRInt(2), "amount": ir.IRInt(3)}},
		{Index: 2, Ord: 4, Parent: 0, Depth: 1, Kind: "Turn", Label: "Turn{actor=2}",
			Fields: ir.IRObject{"actor": ir.IRInt(2)}},
		{Index: 4, Ord: 5, Parent: 2, Depth: 2, Kind: "Wait", Label: "Wait{actor=2}",
			Fields: ir.IRObject{"actor": ir.IRInt(2)}},
	}
	for i := range nodes {
		nodes[i].RunID = runID
		nodes[i].Turn = turn
	}
	return Turn{
		RunID:     runID,
		Turn:      turn,
		NodeCount: len(nodes),
		Digest:    "digest-" + string(rune('0'+turn)),
		Nodes:     nodes,
		Narration: []string{"Hero hits Orc for 3.", "Orc waits."},
	}
}

package sim

import (
	"fmt"

	"github.com/roach88/cae/internal/cae"
	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/ir"
	"github.com/roach88/cae/internal/store"
)

// sealTurn snapshots the finished turn and fills the report's node count
// and digest.
func sealTurn(t *Tick) error {
	t.snapshot = t.Graph.Snapshot()
	digest, err := Digest(t.Turn, t.snapshot)
	if err != nil {
		return fmt.Errorf("turn %d: %w", t.Turn, err)
	}
	t.Report.Nodes = len(t.snapshot)
	t.Report.Digest = digest
	return nil
}

// Digest hashes a turn snapshot. Equal scenarios produce equal digests
// whatever their run id.
func Digest(turn int, recs []cae.NodeRecord[event.Label]) (string, error) {
	nodes := make([]ir.TurnNode, len(recs))
	for i, r := range recs {
		nodes[i] = ir.TurnNode{
			Ord:    r.Ord,
			Parent: r.Parent,
			Depth:  r.Depth,
			Kind:   r.Label.KindName(),
			Fields: r.Label.Fields(),
		}
	}
	return ir.TurnDigest(int64(turn), nodes)
}

func archivedTurn(t *Tick) store.Turn {
	nodes := make([]store.Node, len(t.snapshot))
	for i, r := range t.snapshot {
		nodes[i] = store.Node{
			RunID:  t.RunID,
			Turn:   t.Turn,
			Index:  r.Index,
			Ord:    r.Ord,
			Parent: r.Parent,
			Depth:  r.Depth,
			Kind:   r.Label.KindName(),
			Label:  r.Label.String(),
			Fields: r.Label.Fields(),
		}
	}
	return store.Turn{
		RunID:     t.RunID,
		Turn:      t.Turn,
		NodeCount: len(nodes),
		Digest:    t.Report.Digest,
		Nodes:     nodes,
		Narration: t.Report.Narration,
	}
}

package cae

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// NodeRecord is a flattened, read-only copy of one node.
type NodeRecord[L Label] struct {
	// Ord is the node's position in scan order (Root is 0).
	Ord int

	// Index is the arena slot, which is also insertion order.
	Index int

	// Parent is the arena slot of the cause, or -1 for the Root.
	Parent int

	Depth int
	Label L
}

// Snapshot copies the current turn into records ordered by scan order.
func (g *Graph[L]) Snapshot() []NodeRecord[L] {
	out := make([]NodeRecord[L], 0, len(g.nodes))
	for l := range g.All() {
		n := g.nodes[l.ID.index]
		out = append(out, NodeRecord[L]{
			Ord:    len(out),
			Index:  int(l.ID.index),
			Parent: int(n.parent),
			Depth:  int(n.depth),
			Label:  n.label,
		})
	}
	return out
}

// WriteTree writes the turn as an indented outline, one node per line in
// scan order, two spaces per level.
func (g *Graph[L]) WriteTree(w io.Writer) error {
	return WriteRecordsTree(w, g.Snapshot())
}

// WriteDOT writes the turn as a Graphviz digraph. Nodes are named n<index>
// and labelled with Label.String(); edges run from cause to effect and
// carry no label. Output order is deterministic: nodes in scan order, then
// edges in scan order of their effect.
func (g *Graph[L]) WriteDOT(w io.Writer) error {
	return WriteRecordsDOT(w, g.Snapshot())
}

// WriteRecordsTree renders records in scan order the way Graph.WriteTree
// does. Records need not come from a live graph.
func WriteRecordsTree[L Label](w io.Writer, recs []NodeRecord[L]) error {
	bw := bufio.NewWriter(w)
	for _, r := range recs {
		bw.WriteString(strings.Repeat("  ", r.Depth))
		bw.WriteString(r.Label.String())
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteRecordsDOT renders records in scan order the way Graph.WriteDOT
// does.
func WriteRecordsDOT[L Label](w io.Writer, recs []NodeRecord[L]) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("digraph cae {\n")
	for _, r := range recs {
		fmt.Fprintf(bw, "  n%d [label=%s];\n", r.Index, dotQuote(r.Label.String()))
	}
	for _, r := range recs {
		if r.Parent >= 0 {
			fmt.Fprintf(bw, "  n%d -> n%d;\n", r.Parent, r.Index)
		}
	}
	bw.WriteString("}\n")
	return bw.Flush()
}

// dotQuote produces a DOT double-quoted string.
func dotQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// LogDump writes the turn outline to logger at debug level. Nothing is
// rendered when debug logging is disabled.
func (g *Graph[L]) LogDump(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = g.logger
	}
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	var b strings.Builder
	_ = g.WriteTree(&b)
	logger.DebugContext(ctx, "cae turn dump",
		"graph", g.id,
		"generation", g.gen,
		"nodes", len(g.nodes),
		"tree", b.String(),
	)
}

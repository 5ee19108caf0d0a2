package store

import "github.com/roach88/cae/internal/ir"

// Run describes one archived simulation run.
type Run struct {
	ID            string `json:"id"`
	Scenario      string `json:"scenario"`
	World         string `json:"world"`
	EngineVersion string `json:"engine_version"`
	SchemaVersion string `json:"schema_version"`
}

// Turn is one archived turn. Nodes and Narration are only populated by
// ReadTurn.
type Turn struct {
	RunID     string   `json:"run_id"`
	Turn      int      `json:"turn"`
	NodeCount int      `json:"node_count"`
	Digest    string   `json:"digest"`
	Nodes     []Node   `json:"nodes,omitempty"`
	Narration []string `json:"narration,omitempty"`
}

// Node is one archived graph node.
type Node struct {
	RunID string `json:"run_id"`
	Turn  int    `json:"turn"`

	// Index is the arena slot; Parent refers to it. Parent is -1 for the
	// Root.
	Index  int `json:"idx"`
	Ord    int `json:"ord"`
	Parent int `json:"parent"`
	Depth  int `json:"depth"`

	Kind   string      `json:"kind"`
	Label  string      `json:"label"`
	Fields ir.IRObject `json:"fields"`
}

// NarrationLine is one archived narration line.
type NarrationLine struct {
	Turn int    `json:"turn"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

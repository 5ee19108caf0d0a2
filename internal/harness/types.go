package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/cae/internal/sim"
)

// TurnResult is one played turn: the tick report plus the turn's outline.
type TurnResult struct {
	sim.TickReport

	// Tree is the turn's causal graph as an indented outline.
	Tree string `json:"tree"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	Scenario string `json:"scenario"`
	RunID    string `json:"run_id"`

	// Pass is true when every assertion held and the transcript, if any,
	// matched.
	Pass bool `json:"pass"`

	Turns []TurnResult `json:"turns"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// DOT is the Graphviz rendering of the last turn.
	DOT string `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(scenario, runID string) *Result {
	return &Result{
		Scenario: scenario,
		RunID:    runID,
		Pass:     true,
		Turns:    []TurnResult{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Digests returns the turn digests in turn order.
func (r *Result) Digests() []string {
	out := make([]string, len(r.Turns))
	for i, t := range r.Turns {
		out[i] = t.Digest
	}
	return out
}

// Transcript renders every narration line prefixed with its turn number,
// one per line.
func (r *Result) Transcript() string {
	var b strings.Builder
	for _, t := range r.Turns {
		for _, line := range t.Narration {
			fmt.Fprintf(&b, "turn %d: %s\n", t.Turn, line)
		}
	}
	return b.String()
}

package sim

import (
	"errors"
	"fmt"
)

// nodeBudget caps how many nodes one turn may hold. A runaway write system
// (one that keeps adding effects in a loop) trips it instead of growing the
// graph without bound.
type nodeBudget struct {
	max int
}

// check returns a *NodeBudgetError when nodes exceeds the budget. A zero
// budget never trips.
func (b nodeBudget) check(turn int, system string, nodes int) error {
	if b.max <= 0 || nodes <= b.max {
		return nil
	}
	return &NodeBudgetError{
		Turn:   turn,
		System: system,
		Nodes:  nodes,
		Limit:  b.max,
	}
}

// NodeBudgetError is returned when a turn grows past the node budget. The
// tick is aborted; nothing is narrated or archived for it.
type NodeBudgetError struct {
	Turn   int    // Turn that overflowed
	System string // First system after which the count was over
	Nodes  int    // Node count, Root included
	Limit  int    // Configured budget
}

func (e *NodeBudgetError) Error() string {
	return fmt.Sprintf("turn %d exceeded node budget after system %q: %d nodes > %d limit",
		e.Turn, e.System, e.Nodes, e.Limit)
}

// IsNodeBudgetError reports whether err wraps a *NodeBudgetError.
func IsNodeBudgetError(err error) bool {
	var be *NodeBudgetError
	return errors.As(err, &be)
}

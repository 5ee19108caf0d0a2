package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/ir"
	"github.com/roach88/cae/internal/queryir"
	"github.com/roach88/cae/internal/sim"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Turn     int
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Tree     string // Outline of the turn for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "turn %d: assertion failed: %s\n", e.Turn, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Tree != "" {
		fmt.Fprintf(&buf, "\nTurn graph:\n")
		for _, line := range strings.SplitAfter(e.Tree, "\n") {
			if line != "" {
				fmt.Fprintf(&buf, "  %s", line)
			}
		}
	}
	return buf.String()
}

// turnView is what assertions are evaluated against: the live graph of the
// turn that just finished, the world after it and its report.
type turnView struct {
	graph  *event.Graph
	world  *sim.World
	report TurnResult
}

func (v *turnView) fail(typ, expected, actual string) error {
	return &AssertionError{
		Type:     typ,
		Turn:     v.report.Turn,
		Expected: expected,
		Actual:   actual,
		Tree:     v.report.Tree,
	}
}

// kindPredicate matches labels of kind whose fields equal fields.
func kindPredicate(kind string, fields map[string]any) (event.Predicate, error) {
	k, err := event.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return event.Is(k), nil
	}

	filters := []queryir.Filter{}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		v, err := ir.FromGo(fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		filters = append(filters, queryir.Eq(name, v))
	}
	match, err := queryir.Matcher[event.Label](queryir.AllOf(filters...))
	if err != nil {
		return nil, err
	}
	is := event.Is(k)
	return func(l event.Link) bool { return is(l) && match(l) }, nil
}

func describeKind(kind string, fields map[string]any) string {
	if len(fields) == 0 {
		return kind
	}
	parts := []string{}
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, fmt.Sprintf("%s=%v", name, fields[name]))
	}
	return fmt.Sprintf("%s{%s}", kind, strings.Join(parts, " "))
}

// assertCount checks the number of nodes of a kind in the turn.
func assertCount(v *turnView, a Assertion) error {
	pred, err := kindPredicate(a.Kind, a.Where)
	if err != nil {
		return err
	}
	if n := v.graph.Count(pred); n != a.Count {
		return v.fail(AssertCount,
			fmt.Sprintf("%d nodes of %s", a.Count, describeKind(a.Kind, a.Where)),
			fmt.Sprintf("%d nodes", n))
	}
	return nil
}

// assertOrder checks that the first node of each kind appears in the given
// scan order. Other nodes may appear in between.
func assertOrder(v *turnView, a Assertion) error {
	positions := make([]int, len(a.Kinds))
	for i, kind := range a.Kinds {
		k, err := event.ParseKind(kind)
		if err != nil {
			return err
		}
		positions[i] = -1
		ord := 0
		for l := range v.graph.All() {
			if l.Label.Kind == k {
				positions[i] = ord
				break
			}
			ord++
		}
		if positions[i] < 0 {
			return v.fail(AssertOrder,
				fmt.Sprintf("all kinds present: %v", a.Kinds),
				fmt.Sprintf("missing kind: %s", kind))
		}
	}

	for i := 1; i < len(positions); i++ {
		if positions[i-1] >= positions[i] {
			return v.fail(AssertOrder,
				fmt.Sprintf("kinds in order: %v", a.Kinds),
				fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					a.Kinds[i-1], positions[i-1], a.Kinds[i], positions[i]))
		}
	}
	return nil
}

// assertAncestor checks that every node of Kind has a cause matching Match
// and Fields. The turn must contain at least one node of Kind.
func assertAncestor(v *turnView, a Assertion) error {
	from, err := kindPredicate(a.Kind, nil)
	if err != nil {
		return err
	}
	match, err := kindPredicate(a.Match, a.Fields)
	if err != nil {
		return err
	}

	effects := v.graph.Filter(from)
	if len(effects) == 0 {
		return v.fail(AssertAncestor,
			fmt.Sprintf("at least one %s", a.Kind),
			"none in turn")
	}
	want := describeKind(a.Match, a.Fields)
	for _, l := range effects {
		if _, ok := v.graph.FindFirstAncestor(l, match); !ok {
			return v.fail(AssertAncestor,
				fmt.Sprintf("%s caused by %s", l.Label, want),
				fmt.Sprintf("causes: %s", chain(v.graph, l)))
		}
	}
	return nil
}

func chain(g *event.Graph, l event.Link) string {
	parts := []string{}
	for a := range g.Ancestors(l) {
		parts = append(parts, a.Label.String())
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " <- ")
}

// assertNarrationContains checks that a narration line of the turn contains
// the text.
func assertNarrationContains(v *turnView, a Assertion) error {
	for _, line := range v.report.Narration {
		if strings.Contains(line, a.Text) {
			return nil
		}
	}
	return v.fail(AssertNarrationContains,
		fmt.Sprintf("narration containing %q", a.Text),
		fmt.Sprintf("%q", v.report.Narration))
}

// assertHP checks an entity's hit points after the turn.
func assertHP(v *turnView, a Assertion) error {
	e, ok := v.world.EntityByName(a.Entity)
	if !ok {
		return v.fail(AssertHP,
			fmt.Sprintf("entity %s", a.Entity),
			"no such entity")
	}
	if e.HP != a.Value {
		return v.fail(AssertHP,
			fmt.Sprintf("%s hp = %d", a.Entity, a.Value),
			fmt.Sprintf("%s hp = %d", a.Entity, e.HP))
	}
	return nil
}

// evaluateAssertions runs every assertion against a finished turn and
// returns the failure messages.
func evaluateAssertions(v *turnView, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertCount:
			err = assertCount(v, a)
		case AssertOrder:
			err = assertOrder(v, a)
		case AssertAncestor:
			err = assertAncestor(v, a)
		case AssertNarrationContains:
			err = assertNarrationContains(v, a)
		case AssertHP:
			err = assertHP(v, a)
		default:
			err = fmt.Errorf("turn %d: assertion[%d]: unknown assertion type %q", v.report.Turn, i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cae/internal/event"
	"github.com/roach88/cae/internal/sim"
)

// Scenario is a scripted run of a world with per-turn expectations.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// World is the CUE world file or directory. Relative paths are
	// resolved against the scenario file's directory by LoadScenario.
	World string `yaml:"world"`

	// RunID fixes the run id. A fresh UUIDv7 is used when empty. Turn
	// digests do not depend on it.
	RunID string `yaml:"run_id,omitempty"`

	// Turns is played in order, one tick per entry.
	Turns []TurnStep `yaml:"turns"`

	// Golden is an optional narration transcript file to compare against.
	// Relative paths are resolved like World.
	Golden string `yaml:"golden,omitempty"`

	// path is the file the scenario was loaded from.
	path string
}

// Path returns the file the scenario was loaded from, or "".
func (s *Scenario) Path() string { return s.path }

// TurnStep queues commands for one tick and checks the turn it produces.
type TurnStep struct {
	Commands []sim.Command `yaml:"commands,omitempty"`
	Expect   []Assertion   `yaml:"expect,omitempty"`
}

// Assertion checks one property of a finished turn.
type Assertion struct {
	// Type is one of count, order, ancestor, narration_contains, hp.
	Type string `yaml:"type"`

	// Kind is the label kind counted (count) or the kind whose causes are
	// searched (ancestor).
	Kind string `yaml:"kind,omitempty"`

	// Where narrows count to labels whose fields equal these values.
	Where map[string]any `yaml:"where,omitempty"`

	// Count is the expected number of matching nodes (count).
	Count int `yaml:"count,omitempty"`

	// Kinds must appear in this relative scan order (order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Match is the ancestor kind every Kind node must descend from
	// (ancestor). Fields narrows the ancestor further.
	Match  string         `yaml:"match,omitempty"`
	Fields map[string]any `yaml:"fields,omitempty"`

	// Text must appear in one of the turn's narration lines
	// (narration_contains).
	Text string `yaml:"text,omitempty"`

	// Entity must have exactly Value hit points after the turn (hp).
	Entity string `yaml:"entity,omitempty"`
	Value  int    `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertCount             = "count"
	AssertOrder             = "order"
	AssertAncestor          = "ancestor"
	AssertNarrationContains = "narration_contains"
	AssertHP                = "hp"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	scenario.path = path
	return scenario, nil
}

// ParseScenario decodes a scenario and resolves its relative paths against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Unknown fields are rejected, so "expects:" does not silently skip checks.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.World = resolve(baseDir, scenario.World)
	scenario.Golden = resolve(baseDir, scenario.Golden)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.World == "" {
		return fmt.Errorf("world is required")
	}
	if _, err := os.Stat(s.World); os.IsNotExist(err) {
		return fmt.Errorf("world file not found: %s", s.World)
	}
	if len(s.Turns) == 0 {
		return fmt.Errorf("turns list is required and must be non-empty")
	}

	for i, step := range s.Turns {
		for j, cmd := range step.Commands {
			if err := cmd.Validate(); err != nil {
				return fmt.Errorf("turns[%d].commands[%d]: %w", i, j, err)
			}
		}
		for j := range step.Expect {
			if err := validateAssertion(&step.Expect[j]); err != nil {
				return fmt.Errorf("turns[%d].expect[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertCount:
		if a.Kind == "" {
			return fmt.Errorf("kind is required for count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative")
		}
	case AssertOrder:
		if len(a.Kinds) < 2 {
			return fmt.Errorf("order needs at least two kinds")
		}
	case AssertAncestor:
		if a.Kind == "" || a.Match == "" {
			return fmt.Errorf("kind and match are required for ancestor")
		}
	case AssertNarrationContains:
		if a.Text == "" {
			return fmt.Errorf("text is required for narration_contains")
		}
	case AssertHP:
		if a.Entity == "" {
			return fmt.Errorf("entity is required for hp")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	kinds := append([]string{a.Kind, a.Match}, a.Kinds...)
	for _, k := range kinds {
		if k == "" {
			continue
		}
		if _, err := event.ParseKind(k); err != nil {
			return err
		}
	}
	return nil
}
